// Package sas issues and verifies short-lived, read-only capability URLs
// signed with an account-level HMAC key.
package sas

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// ClockSkew is how far the validity start is backdated.
	ClockSkew = time.Minute

	permissionRead = "r"
	version        = "1"
)

var (
	ErrInvalidKey        = errors.New("signing key material is invalid")
	ErrSignatureInvalid  = errors.New("signature does not match")
	ErrExpired           = errors.New("capability url has expired")
	ErrNotYetValid       = errors.New("capability url is not yet valid")
	ErrPermissionDenied  = errors.New("capability url does not grant read")
	ErrMalformedURLQuery = errors.New("capability url query is malformed")
)

// Credential is the account name and decoded key parsed from a connection string.
type Credential struct {
	AccountName string
	Key         []byte
}

// ParseConnectionString reads "AccountName=...;AccountKey=<base64>" style
// settings. Any other keys are ignored.
func ParseConnectionString(conn string) (Credential, error) {
	var name, key string
	for _, part := range strings.Split(conn, ";") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "AccountName":
			name = v
		case "AccountKey":
			key = v
		}
	}
	if name == "" || key == "" {
		return Credential{}, fmt.Errorf("%w: AccountName/AccountKey missing in connection string", ErrInvalidKey)
	}

	decoded, err := base64.StdEncoding.DecodeString(key)
	if err != nil {
		return Credential{}, fmt.Errorf("%w: AccountKey is not base64: %v", ErrInvalidKey, err)
	}
	if len(decoded) == 0 {
		return Credential{}, fmt.Errorf("%w: AccountKey is empty", ErrInvalidKey)
	}
	return Credential{AccountName: name, Key: decoded}, nil
}

// Issuer signs capability URLs rooted at baseURL.
type Issuer struct {
	cred    Credential
	baseURL string
	now     func() time.Time
}

// NewIssuer parses the connection string and fails fast if the key cannot be used.
func NewIssuer(connectionString, baseURL string) (*Issuer, error) {
	cred, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	if baseURL == "" {
		return nil, fmt.Errorf("%w: public base url is required", ErrInvalidKey)
	}
	return &Issuer{
		cred:    cred,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		now:     time.Now,
	}, nil
}

// WithClock replaces the time source. Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	i.now = now
	return i
}

// SignedURL returns a fresh read-only URL for container/name valid for ttl.
func (i *Issuer) SignedURL(container, name string, ttl time.Duration) (string, error) {
	if container == "" || name == "" {
		return "", errors.New("container and object name are required")
	}
	if ttl <= 0 {
		return "", fmt.Errorf("validity duration must be positive, got %s", ttl)
	}

	now := i.now().UTC()
	start := formatTime(now.Add(-ClockSkew))
	end := formatTime(now.Add(ttl))

	q := url.Values{}
	q.Set("sv", version)
	q.Set("sp", permissionRead)
	q.Set("st", start)
	q.Set("se", end)
	q.Set("sig", i.sign(container, name, permissionRead, start, end))

	return fmt.Sprintf("%s/blob/%s/%s?%s", i.baseURL, url.PathEscape(container), url.PathEscape(name), q.Encode()), nil
}

// Verify checks that query authorizes a read of container/name at the issuer's
// current time.
func (i *Issuer) Verify(container, name string, query url.Values) error {
	perm, start, end, sig := query.Get("sp"), query.Get("st"), query.Get("se"), query.Get("sig")
	if start == "" || end == "" || sig == "" || query.Get("sv") != version {
		return ErrMalformedURLQuery
	}

	expected := i.sign(container, name, perm, start, end)
	if !hmac.Equal([]byte(expected), []byte(sig)) {
		return ErrSignatureInvalid
	}
	if perm != permissionRead {
		return ErrPermissionDenied
	}

	startsOn, err := time.Parse(time.RFC3339, start)
	if err != nil {
		return fmt.Errorf("%w: st: %v", ErrMalformedURLQuery, err)
	}
	expiresOn, err := time.Parse(time.RFC3339, end)
	if err != nil {
		return fmt.Errorf("%w: se: %v", ErrMalformedURLQuery, err)
	}

	now := i.now().UTC()
	if now.Before(startsOn) {
		return ErrNotYetValid
	}
	if now.After(expiresOn) {
		return ErrExpired
	}
	return nil
}

// sign computes the HMAC over the canonical string-to-sign.
func (i *Issuer) sign(container, name, perm, start, end string) string {
	resource := "/" + i.cred.AccountName + "/" + container + "/" + name
	canonical := strings.Join([]string{resource, perm, start, end}, "\n")

	mac := hmac.New(sha256.New, i.cred.Key)
	mac.Write([]byte(canonical))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func formatTime(t time.Time) string {
	return t.Truncate(time.Second).Format(time.RFC3339)
}

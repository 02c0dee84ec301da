package gcp

import (
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"cloud.google.com/go/storage"
)

var ErrInvalidSigningKey = errors.New("invalid GCS signing key")

// V4Signer issues Cloud Storage V4 signed GET URLs, so the bucket itself
// enforces the capability. V4 URLs start at signing time; GCS does not accept
// a backdated start.
type V4Signer struct {
	accessID   string
	privateKey []byte
	now        func() time.Time
}

// NewV4Signer parses the service account PEM key up front. A key that does not
// parse is a configuration error.
func NewV4Signer(accessID, privateKeyPEM string) (*V4Signer, error) {
	if accessID == "" {
		return nil, fmt.Errorf("%w: GCS_SIGNER_EMAIL must be set", ErrInvalidSigningKey)
	}
	// Keys pasted into env vars usually carry escaped newlines.
	keyPEM := []byte(strings.ReplaceAll(privateKeyPEM, `\n`, "\n"))

	block, _ := pem.Decode(keyPEM)
	if block == nil {
		return nil, fmt.Errorf("%w: no PEM block found", ErrInvalidSigningKey)
	}
	if _, err := x509.ParsePKCS8PrivateKey(block.Bytes); err != nil {
		if _, err1 := x509.ParsePKCS1PrivateKey(block.Bytes); err1 != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidSigningKey, err)
		}
	}

	return &V4Signer{accessID: accessID, privateKey: keyPEM, now: time.Now}, nil
}

func (s *V4Signer) SignedURL(bucket, name string, ttl time.Duration) (string, error) {
	u, err := storage.SignedURL(bucket, name, &storage.SignedURLOptions{
		GoogleAccessID: s.accessID,
		PrivateKey:     s.privateKey,
		Method:         http.MethodGet,
		Expires:        s.now().Add(ttl),
		Scheme:         storage.SigningSchemeV4,
	})
	if err != nil {
		return "", fmt.Errorf("failed to sign gs://%s/%s: %w", bucket, name, err)
	}
	return u, nil
}

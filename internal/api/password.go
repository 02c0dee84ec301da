package api

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
)

var (
	errPasswordNotConfigured = errors.New("upload password not configured on server")
	errPasswordMissing       = errors.New("missing password")
	errPasswordInvalid       = errors.New("invalid password")
)

var (
	acceptedHeaders = []string{"x-password", "x-api-key", "authorization Bearer"}
	acceptedFields  = []string{"password", "pass", "token"}
)

// headerPassword returns the secret from headers or the query string, in
// priority order: X-Password, X-Api-Key, bearer token, query fields.
func headerPassword(r *http.Request) string {
	if v := strings.TrimSpace(r.Header.Get("X-Password")); v != "" {
		return v
	}
	if v := strings.TrimSpace(r.Header.Get("X-Api-Key")); v != "" {
		return v
	}
	if v := bearerToken(r); v != "" {
		return v
	}
	query := r.URL.Query()
	for _, k := range acceptedFields {
		if v := strings.TrimSpace(query.Get(k)); v != "" {
			return v
		}
	}
	return ""
}

// providedPassword extends headerPassword with multipart form fields. The
// form must already be parsed.
func providedPassword(r *http.Request) string {
	if v := headerPassword(r); v != "" {
		return v
	}
	if r.MultipartForm == nil {
		return ""
	}
	for _, k := range acceptedFields {
		if vs := r.MultipartForm.Value[k]; len(vs) > 0 {
			if v := strings.TrimSpace(vs[0]); v != "" {
				return v
			}
		}
	}
	return ""
}

func bearerToken(r *http.Request) string {
	scheme, token, ok := strings.Cut(r.Header.Get("Authorization"), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// checkPassword applies the upload gate. A nil error means the request may
// proceed.
func (h *handler) checkPassword(provided string) error {
	if !h.opts.RequirePassword {
		return nil
	}
	if h.opts.Password == "" {
		return errPasswordNotConfigured
	}
	if provided == "" {
		return errPasswordMissing
	}
	if subtle.ConstantTimeCompare([]byte(provided), []byte(h.opts.Password)) != 1 {
		return errPasswordInvalid
	}
	return nil
}

package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/Lllllllleong/mediaflow/internal/models"
	"github.com/Lllllllleong/mediaflow/internal/sas"
	"github.com/Lllllllleong/mediaflow/internal/services"
)

// multipart parts beyond this size spill to temporary files.
const formMemory = 8 << 20

type handler struct {
	opts Options
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response body", "error", err)
	}
}

// writeError maps err onto a status code and writes it as {"error": ...}.
// Unclassified errors are logged and reported without detail.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	msg := err.Error()
	switch status {
	case http.StatusInternalServerError:
		slog.Error("Request failed", "error", err)
		msg = "internal error"
	case http.StatusNotFound:
		msg = "not found"
	}
	writeJSON(w, status, errorResponse{Error: msg})
}

func statusFor(err error) int {
	var maxErr *http.MaxBytesError
	switch {
	case errors.Is(err, services.ErrNoFile), errors.Is(err, errPasswordMissing):
		return http.StatusBadRequest
	case errors.Is(err, errPasswordInvalid):
		return http.StatusUnauthorized
	case errors.Is(err, errPasswordNotConfigured), errors.Is(err, services.ErrMisconfigured),
		errors.Is(err, services.ErrUnavailable):
		return http.StatusServiceUnavailable
	case errors.Is(err, models.ErrJobNotFound), errors.Is(err, models.ErrObjectNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrObjectExists):
		return http.StatusConflict
	case errors.As(err, &maxErr):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, sas.ErrSignatureInvalid), errors.Is(err, sas.ErrExpired),
		errors.Is(err, sas.ErrNotYetValid), errors.Is(err, sas.ErrPermissionDenied),
		errors.Is(err, sas.ErrMalformedURLQuery):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func misconfigured(component string) error {
	return fmt.Errorf("%w: %s is not configured", services.ErrMisconfigured, component)
}

func (h *handler) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (h *handler) config(w http.ResponseWriter, r *http.Request) {
	proto := r.Header.Get("X-Forwarded-Proto")
	if proto == "" {
		proto = "https"
	}
	writeJSON(w, http.StatusOK, models.PublicConfig{
		APIBase:          proto + "://" + r.Host,
		BlobBaseURL:      h.opts.BlobBaseURL,
		UploadsContainer: h.opts.UploadsContainer,
		ThumbsContainer:  h.opts.ThumbsContainer,
		PasswordRequired: h.opts.RequirePassword,
		AcceptedHeaders:  acceptedHeaders,
		AcceptedFields:   acceptedFields,
	})
}

type diagAuthResponse struct {
	ProvidedLen  int  `json:"providedLen"`
	HasBearer    bool `json:"hasBearer"`
	HasXPassword bool `json:"hasXPassword"`
	HasQuery     bool `json:"hasQuery"`
}

func (h *handler) diagAuth(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	hasQuery := false
	for _, k := range acceptedFields {
		if query.Get(k) != "" {
			hasQuery = true
		}
	}
	writeJSON(w, http.StatusOK, diagAuthResponse{
		ProvidedLen:  len(headerPassword(r)),
		HasBearer:    bearerToken(r) != "",
		HasXPassword: r.Header.Get("X-Password") != "",
		HasQuery:     hasQuery,
	})
}

func (h *handler) upload(w http.ResponseWriter, r *http.Request) {
	if h.opts.Uploader == nil {
		writeError(w, misconfigured("upload storage"))
		return
	}
	// Fail before reading the body when the gate can never pass.
	if h.opts.RequirePassword && h.opts.Password == "" {
		writeError(w, errPasswordNotConfigured)
		return
	}

	if h.opts.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.opts.MaxUploadBytes)
	}
	if err := r.ParseMultipartForm(formMemory); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeError(w, err)
			return
		}
		// Not multipart at all: the gate may still reject it before "no file".
		if gateErr := h.checkPassword(headerPassword(r)); gateErr != nil {
			writeError(w, gateErr)
			return
		}
		writeError(w, services.ErrNoFile)
		return
	}
	defer r.MultipartForm.RemoveAll()

	provided := providedPassword(r)
	if err := h.checkPassword(provided); err != nil {
		slog.Warn("Upload rejected by password gate",
			"requirePassword", h.opts.RequirePassword,
			"providedLen", len(provided),
			"error", err,
		)
		writeError(w, err)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, services.ErrNoFile)
		return
	}
	defer file.Close()

	resp, err := h.opts.Uploader.Upload(r.Context(), services.UploadRequest{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Body:        file,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, resp)
}

func partContentType(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func (h *handler) jobStatus(w http.ResponseWriter, r *http.Request) {
	if h.opts.Resolver == nil {
		writeError(w, misconfigured("status resolver"))
		return
	}
	resp, err := h.opts.Resolver.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// blob streams an object addressed by a capability URL issued by this
// deployment.
func (h *handler) blob(w http.ResponseWriter, r *http.Request) {
	if h.opts.Verifier == nil || h.opts.Blobs == nil {
		writeError(w, misconfigured("blob proxy"))
		return
	}
	container := chi.URLParam(r, "container")
	name, err := url.PathUnescape(chi.URLParam(r, "*"))
	if err != nil || name == "" || strings.Contains(name, "/") {
		writeError(w, models.ErrObjectNotFound)
		return
	}
	if container != h.opts.UploadsContainer && container != h.opts.ThumbsContainer {
		writeError(w, models.ErrObjectNotFound)
		return
	}
	if err := h.opts.Verifier.Verify(container, name, r.URL.Query()); err != nil {
		writeError(w, err)
		return
	}

	body, contentType, err := h.opts.Blobs.Open(r.Context(), container, name)
	if err != nil {
		writeError(w, err)
		return
	}
	defer body.Close()

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "private, max-age=60")
	if _, err := io.Copy(w, body); err != nil {
		slog.Warn("Blob stream interrupted", "container", container, "name", name, "error", err)
	}
}

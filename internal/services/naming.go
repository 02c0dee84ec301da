package services

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// unsafeNameChars matches anything outside the object-name safe set.
var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SanitizeFilename replaces every character outside [A-Za-z0-9._-] with '_'.
func SanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	// Browsers on some platforms send full client paths.
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	safe := unsafeNameChars.ReplaceAllString(name, "_")
	if strings.Trim(safe, "._") == "" {
		return "upload"
	}
	return safe
}

// NewJobID derives the job identifier from the ingestion time and the
// original filename. It is also the source object name and the record key.
func NewJobID(now time.Time, filename string) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + SanitizeFilename(filename)
}

// SourceURL is the canonical URL of a source object. The ingestor stores it on
// the record and the notifier rebuilds it from the event, so both sides must
// agree on it exactly.
func SourceURL(baseURL, container, name string) string {
	return strings.TrimSuffix(baseURL, "/") + "/" + container + "/" + url.PathEscape(name)
}

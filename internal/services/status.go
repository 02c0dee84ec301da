package services

import "github.com/Lllllllleong/mediaflow/internal/models"

// RecordLookup is the outcome of the best-effort job record read.
type RecordLookup int

const (
	// RecordMissing means the store answered and has no such record.
	RecordMissing RecordLookup = iota
	// RecordFound means the store returned the record.
	RecordFound
	// RecordUnavailable means the store could not be asked or failed to answer.
	RecordUnavailable
)

// Variant is one expected derived object of a job.
type Variant struct {
	Key    string
	Suffix string
}

// Variants are probed in the thumbnails container as <id><suffix>.
var Variants = []Variant{
	{Key: "thumb", Suffix: ".thumb.jpg"},
	{Key: "thumb2x", Suffix: ".thumb@2x.jpg"},
}

// Evidence gathers what the three sources said about a job.
type Evidence struct {
	Record RecordLookup
	Stored models.Status
	// Derived maps variant key to a capability URL, for variants that exist.
	Derived map[string]string
	// ProbeFailed is set when at least one existence probe errored. It does
	// not change the merged status; the resolver refuses to report
	// not-found on top of it.
	ProbeFailed bool
}

// MergeStatus resolves the evidence into a single status. Precedence is
// derived-object existence, then stored record status, then queued.
//
// found is false when neither a record nor any derived object was seen. A
// record that could not be read counts as not seen.
func MergeStatus(e Evidence) (status models.Status, found bool) {
	if len(e.Derived) > 0 {
		return models.StatusDone, true
	}
	if e.Record != RecordFound {
		return "", false
	}
	switch {
	case e.Stored == models.StatusDone:
		// The record alone is not proof of completion.
		return models.StatusProcessing, true
	case e.Stored.Known():
		return e.Stored, true
	default:
		return models.StatusQueued, true
	}
}

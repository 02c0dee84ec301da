package models

import (
	"errors"
	"time"
)

// Status is the coarse processing state stored on a job record.
type Status string

const (
	StatusQueued     Status = "queued"
	StatusProcessing Status = "processing"
	StatusDone       Status = "done"
	StatusError      Status = "error"
)

// Known reports whether s is one of the enumerated statuses.
func (s Status) Known() bool {
	switch s {
	case StatusQueued, StatusProcessing, StatusDone, StatusError:
		return true
	}
	return false
}

var (
	ErrJobNotFound    = errors.New("job not found")
	ErrJobExists      = errors.New("job already exists")
	ErrObjectExists   = errors.New("object already exists")
	ErrObjectNotFound = errors.New("object not found")
)

// Job is the record written once at ingestion. The ID doubles as the source
// object name and the document key. A worker may later mutate Status.
type Job struct {
	ID        string    `firestore:"id" json:"id"`
	URL       string    `firestore:"url" json:"url"`
	Container string    `firestore:"container,omitempty" json:"container,omitempty"`
	Original  string    `firestore:"original" json:"original"`
	Status    Status    `firestore:"status" json:"status"`
	CreatedAt time.Time `firestore:"createdAt" json:"createdAt"`
}

package models

// These structs define the JSON payloads exchanged with clients, the storage
// trigger and the message channel.

// StorageObjectData is the data section of a storage "object finalized" CloudEvent.
type StorageObjectData struct {
	Bucket      string `json:"bucket"`
	Name        string `json:"name"`
	ContentType string `json:"contentType,omitempty"`
}

// BlobRef points at one object inside a container.
type BlobRef struct {
	Container string `json:"container"`
	Name      string `json:"name"`
}

// ProcessRequest is the body published to the message channel. ID is nil only
// when no identifier could be resolved at all.
type ProcessRequest struct {
	ID   *string `json:"id"`
	URL  string  `json:"url"`
	Blob BlobRef `json:"blob"`
}

// UploadResponse is returned by POST /api/upload.
type UploadResponse struct {
	ID       string `json:"id"`
	URL      string `json:"url"`
	Original string `json:"original"`
}

// JobStatusResponse is returned by GET /api/job/{id}.
type JobStatusResponse struct {
	ID         string  `json:"id"`
	Status     Status  `json:"status"`
	ThumbURL   *string `json:"thumbUrl"`
	Thumb2xURL *string `json:"thumb2xUrl"`
}

// PublicConfig is returned by GET /api/config.
type PublicConfig struct {
	APIBase          string   `json:"apiBase"`
	BlobBaseURL      string   `json:"blobBaseUrl"`
	UploadsContainer string   `json:"uploadsContainer"`
	ThumbsContainer  string   `json:"thumbsContainer"`
	PasswordRequired bool     `json:"passwordRequired"`
	AcceptedHeaders  []string `json:"acceptedHeaders"`
	AcceptedFields   []string `json:"acceptedFields"`
}

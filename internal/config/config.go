package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	JobStoreFirestore = "firestore"
	JobStoreMongo     = "mongo"

	PublisherCloudEvents = "cloudevents"
	PublisherWorkflows   = "workflows"
	PublisherRedis       = "redis"

	SigningHMAC = "hmac"
	SigningGCS  = "gcs"
)

// Config is the full environment-derived configuration. Missing connection
// settings are not rejected here; each component checks what it needs when
// it is built.
type Config struct {
	ProjectID string

	Storage   Storage
	JobStore  JobStore
	Publisher Publisher
	Signing   Signing
	Upload    Upload
}

type Storage struct {
	UploadsBucket string
	ThumbsBucket  string
	BaseURL       string
}

type JobStore struct {
	Kind                string
	FirestoreCollection string
	MongoURI            string
	MongoDatabase       string
	MongoCollection     string
}

type Publisher struct {
	Kind              string
	Subject           string
	CloudEventsTarget string
	WorkflowID        string
	WorkflowLocation  string
	RedisAddr         string
	RedisStream       string
}

type Signing struct {
	Mode             string
	ConnectionString string
	PublicBaseURL    string
	GCSSignerEmail   string
	GCSPrivateKey    string
	TTL              time.Duration
}

type Upload struct {
	RequirePassword bool
	Password        string
	MaxBytes        int64
}

// GetEnv is a helper to read an environment variable or return a default value.
func GetEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

// Load reads the configuration from the environment.
func Load() (*Config, error) {
	ttl, err := time.ParseDuration(GetEnv("SIGNED_URL_TTL", "15m"))
	if err != nil {
		return nil, fmt.Errorf("SIGNED_URL_TTL: %w", err)
	}
	if ttl <= 0 {
		return nil, fmt.Errorf("SIGNED_URL_TTL must be positive, got %s", ttl)
	}

	requirePassword := false
	if v := GetEnv("REQUIRE_PASSWORD", ""); v != "" {
		requirePassword, err = strconv.ParseBool(v)
		if err != nil {
			return nil, fmt.Errorf("REQUIRE_PASSWORD: %w", err)
		}
	}

	maxBytes, err := strconv.ParseInt(GetEnv("MAX_UPLOAD_BYTES", "33554432"), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES: %w", err)
	}

	projectID := GetEnv("GOOGLE_CLOUD_PROJECT", "")
	if projectID == "" {
		projectID = GetEnv("PROJECT_ID", "")
	}

	cfg := &Config{
		ProjectID: projectID,
		Storage: Storage{
			UploadsBucket: GetEnv("UPLOADS_BUCKET", "uploads"),
			ThumbsBucket:  GetEnv("THUMBS_BUCKET", "thumbnails"),
			BaseURL:       strings.TrimSuffix(GetEnv("BLOB_BASE_URL", "https://storage.googleapis.com"), "/"),
		},
		JobStore: JobStore{
			Kind:                strings.ToLower(GetEnv("JOB_STORE", JobStoreFirestore)),
			FirestoreCollection: GetEnv("FIRESTORE_COLLECTION", "jobs"),
			MongoURI:            GetEnv("MONGO_URI", ""),
			MongoDatabase:       GetEnv("MONGO_DB", "mediaflow"),
			MongoCollection:     GetEnv("MONGO_COLLECTION", "jobs"),
		},
		Publisher: Publisher{
			Kind:              strings.ToLower(GetEnv("PUBLISHER", PublisherCloudEvents)),
			Subject:           GetEnv("MESSAGE_SUBJECT", "mediaflow.process.request"),
			CloudEventsTarget: GetEnv("CLOUDEVENTS_TARGET", ""),
			WorkflowID:        GetEnv("WORKFLOW_ID", ""),
			WorkflowLocation:  GetEnv("WORKFLOW_LOCATION", "us-central1"),
			RedisAddr:         GetEnv("REDIS_ADDR", ""),
			RedisStream:       GetEnv("REDIS_STREAM", "process"),
		},
		Signing: Signing{
			Mode:             strings.ToLower(GetEnv("SIGNING_MODE", SigningHMAC)),
			ConnectionString: GetEnv("SIGNING_CONNECTION_STRING", ""),
			PublicBaseURL:    strings.TrimSuffix(GetEnv("SIGNED_URL_BASE", ""), "/"),
			GCSSignerEmail:   GetEnv("GCS_SIGNER_EMAIL", ""),
			GCSPrivateKey:    GetEnv("GCS_SIGNER_PRIVATE_KEY", ""),
			TTL:              ttl,
		},
		Upload: Upload{
			RequirePassword: requirePassword,
			Password:        GetEnv("UPLOAD_PASSWORD", ""),
			MaxBytes:        maxBytes,
		},
	}
	return cfg, nil
}

package storage

import "time"

// MinIOConfig holds MinIO connection and page publishing settings.
type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
	// Prefix is prepended to every object key.
	Prefix string
	// PublicBaseURL, when set, is used to build page URLs instead of
	// presigning them.
	PublicBaseURL string
	URLExpiry     time.Duration
}

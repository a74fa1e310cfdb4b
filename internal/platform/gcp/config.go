package gcp

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"google.golang.org/api/option"
)

type BucketMode string

const (
	BucketModeGCS         BucketMode = "gcs"
	BucketModeGCSEmulator BucketMode = "gcs_emulator"
)

type BucketConfig struct {
	Mode          BucketMode
	Bucket        string
	EmulatorHost  string
	CDNDomain     string
	PublicBaseURL string
}

// BucketConfigFromEnv reads GCS_BUCKET_NAME and friends. Setting
// STORAGE_EMULATOR_HOST without GCS_MODE selects the emulator.
func BucketConfigFromEnv() (BucketConfig, error) {
	cfg := BucketConfig{
		Bucket:        strings.TrimSpace(os.Getenv("GCS_BUCKET_NAME")),
		EmulatorHost:  strings.TrimRight(strings.TrimSpace(os.Getenv("STORAGE_EMULATOR_HOST")), "/"),
		CDNDomain:     strings.TrimSpace(os.Getenv("GCS_CDN_DOMAIN")),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(os.Getenv("OBJECT_STORAGE_PUBLIC_BASE_URL")), "/"),
	}
	raw := strings.ToLower(strings.TrimSpace(os.Getenv("GCS_MODE")))
	switch BucketMode(raw) {
	case "":
		cfg.Mode = BucketModeGCS
		if cfg.EmulatorHost != "" {
			cfg.Mode = BucketModeGCSEmulator
		}
	case BucketModeGCS, BucketModeGCSEmulator:
		cfg.Mode = BucketMode(raw)
	default:
		return cfg, fmt.Errorf("invalid GCS_MODE=%q (allowed: %q, %q)", raw, BucketModeGCS, BucketModeGCSEmulator)
	}
	return cfg, cfg.Validate()
}

func (c BucketConfig) Validate() error {
	if c.Bucket == "" {
		return fmt.Errorf("missing env var GCS_BUCKET_NAME")
	}
	if c.PublicBaseURL != "" && !isAbsoluteURL(c.PublicBaseURL) {
		return fmt.Errorf("invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL", c.PublicBaseURL)
	}
	if c.Mode != BucketModeGCSEmulator {
		return nil
	}
	if c.EmulatorHost == "" {
		return fmt.Errorf("GCS_MODE=%q requires STORAGE_EMULATOR_HOST", BucketModeGCSEmulator)
	}
	if !isAbsoluteURL(c.EmulatorHost) {
		return fmt.Errorf("invalid STORAGE_EMULATOR_HOST=%q; expected absolute URL like http://fake-gcs:4443", c.EmulatorHost)
	}
	return nil
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && strings.TrimSpace(u.Scheme) != "" && strings.TrimSpace(u.Host) != ""
}

// ClientOptionsFromEnv accepts inline JSON credentials or a credentials file path.
func ClientOptionsFromEnv() []option.ClientOption {
	creds := strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS_JSON"))
	if creds == "" {
		creds = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

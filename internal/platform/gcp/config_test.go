package gcp

import "testing"

func TestBucketConfigFromEnvDefaultGCS(t *testing.T) {
	t.Setenv("GCS_BUCKET_NAME", "study-files")
	t.Setenv("GCS_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "")

	cfg, err := BucketConfigFromEnv()
	if err != nil {
		t.Fatalf("BucketConfigFromEnv: %v", err)
	}
	if cfg.Mode != BucketModeGCS {
		t.Fatalf("mode: want=%q got=%q", BucketModeGCS, cfg.Mode)
	}
}

func TestBucketConfigFromEnvEmulatorFallback(t *testing.T) {
	t.Setenv("GCS_BUCKET_NAME", "study-files")
	t.Setenv("GCS_MODE", "")
	t.Setenv("STORAGE_EMULATOR_HOST", "http://fake-gcs:4443/")

	cfg, err := BucketConfigFromEnv()
	if err != nil {
		t.Fatalf("BucketConfigFromEnv: %v", err)
	}
	if cfg.Mode != BucketModeGCSEmulator {
		t.Fatalf("mode: want=%q got=%q", BucketModeGCSEmulator, cfg.Mode)
	}
	if cfg.EmulatorHost != "http://fake-gcs:4443" {
		t.Fatalf("emulator host: want trimmed got=%q", cfg.EmulatorHost)
	}
}

func TestBucketConfigFromEnvRejectsBadInput(t *testing.T) {
	cases := []struct {
		name, bucket, mode, host string
	}{
		{"missing bucket", "", "gcs", ""},
		{"invalid mode", "b", "local", ""},
		{"emulator without host", "b", "gcs_emulator", ""},
		{"emulator relative host", "b", "gcs_emulator", "fake-gcs:4443"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("GCS_BUCKET_NAME", tc.bucket)
			t.Setenv("GCS_MODE", tc.mode)
			t.Setenv("STORAGE_EMULATOR_HOST", tc.host)
			if _, err := BucketConfigFromEnv(); err == nil {
				t.Fatalf("BucketConfigFromEnv: expected error, got nil")
			}
		})
	}
}

func TestPublicURL(t *testing.T) {
	cases := []struct {
		name string
		cfg  BucketConfig
		want string
	}{
		{"default", BucketConfig{Mode: BucketModeGCS, Bucket: "b"}, "https://storage.googleapis.com/b/docs/a.pdf"},
		{"cdn", BucketConfig{Mode: BucketModeGCS, Bucket: "b", CDNDomain: "cdn.example.com"}, "https://cdn.example.com/docs/a.pdf"},
		{"public base", BucketConfig{Mode: BucketModeGCS, Bucket: "b", PublicBaseURL: "http://localhost:4443"}, "http://localhost:4443/b/docs/a.pdf"},
		{
			"emulator",
			BucketConfig{Mode: BucketModeGCSEmulator, Bucket: "b", EmulatorHost: "http://fake-gcs:4443"},
			"http://fake-gcs:4443/download/storage/v1/b/b/o/docs%2Fa.pdf?alt=media",
		},
	}
	for _, tc := range cases {
		if got := tc.cfg.PublicURL("/docs/a.pdf"); got != tc.want {
			t.Fatalf("%s: want=%q got=%q", tc.name, tc.want, got)
		}
	}
}

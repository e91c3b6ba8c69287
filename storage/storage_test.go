package storage_test

import (
	"context"
	"testing"

	"github.com/kbukum/speakerbind/errors"
	"github.com/kbukum/speakerbind/storage"
	_ "github.com/kbukum/speakerbind/storage/local"
)

func TestConfig_Key(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
		elem   []string
		want   string
	}{
		{"no prefix", "", []string{"clip", "diarization.json"}, "clip/diarization.json"},
		{"prefix", "runs", []string{"clip", "diarization.json"}, "runs/clip/diarization.json"},
		{"trimmed prefix", "/runs/", []string{"clip"}, "runs/clip"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := storage.Config{Prefix: tt.prefix}
			if got := cfg.Key(tt.elem...); got != tt.want {
				t.Errorf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     storage.Config
		wantErr bool
	}{
		{"local defaults", storage.Config{Provider: storage.ProviderLocal, BasePath: "x"}, false},
		{"local without path", storage.Config{Provider: storage.ProviderLocal}, true},
		{"s3 without bucket", storage.Config{Provider: storage.ProviderS3, Region: "us-east-1"}, true},
		{"s3 complete", storage.Config{Provider: storage.ProviderS3, Bucket: "b", Region: "us-east-1"}, false},
		{"unknown provider", storage.Config{Provider: "ftp"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("expected error=%v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_Local_RoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := storage.New(storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := storage.PutBytes(ctx, s, "clip-1/diarization.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, err := storage.GetBytes(ctx, s, "clip-1/diarization.json")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(got) != `{"a":1}` {
		t.Errorf("expected round-trip content, got %q", got)
	}

	files, err := s.List(ctx, "clip-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(files) != 1 || files[0].Path != "clip-1/diarization.json" {
		t.Fatalf("expected one listed file, got %+v", files)
	}
	if files[0].ContentType != "application/json" {
		t.Errorf("expected application/json, got %q", files[0].ContentType)
	}
}

func TestNew_UnregisteredProvider(t *testing.T) {
	_, err := storage.New(storage.Config{Provider: "ftp"}, nil)
	if err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestRegistered(t *testing.T) {
	names := storage.Registered()
	found := false
	for _, n := range names {
		if n == storage.ProviderLocal {
			found = true
		}
	}
	if !found {
		t.Errorf("expected %q to be registered, got %v", storage.ProviderLocal, names)
	}
}

func TestGetBytes_Missing(t *testing.T) {
	s, err := storage.New(storage.Config{Provider: storage.ProviderLocal, BasePath: t.TempDir()}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = storage.GetBytes(context.Background(), s, "nope.json")
	if !errors.HasCode(err, errors.ErrCodeNotFound) {
		t.Errorf("expected NOT_FOUND, got %v", err)
	}
}

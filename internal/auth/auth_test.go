package auth

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("CDP_USERNAME", "dealer@example.com")
	t.Setenv("CDP_PASSWORD", "hunter2")

	creds, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds.Username != "dealer@example.com" {
		t.Errorf("Username = %q, want dealer@example.com", creds.Username)
	}
	if creds.Password != "hunter2" {
		t.Errorf("Password = %q, want hunter2", creds.Password)
	}
}

func TestLoadFromDotEnvFile(t *testing.T) {
	t.Setenv("CDP_USERNAME", "")
	t.Setenv("CDP_PASSWORD", "")
	os.Unsetenv("CDP_USERNAME")
	os.Unsetenv("CDP_PASSWORD")

	envPath := filepath.Join(t.TempDir(), ".env")
	content := "CDP_USERNAME=file-user\nCDP_PASSWORD=file-pass\n"
	if err := os.WriteFile(envPath, []byte(content), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}

	creds, err := Load(envPath)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds.Username != "file-user" || creds.Password != "file-pass" {
		t.Errorf("creds = %+v, want file-user/file-pass", creds)
	}
}

func TestLoadMissingCredentials(t *testing.T) {
	t.Setenv("CDP_USERNAME", "")
	t.Setenv("CDP_PASSWORD", "")
	os.Unsetenv("CDP_USERNAME")
	os.Unsetenv("CDP_PASSWORD")

	_, err := Load(filepath.Join(t.TempDir(), "absent.env"))
	if !errors.Is(err, ErrMissingCredentials) {
		t.Errorf("Load() error = %v, want ErrMissingCredentials", err)
	}
}

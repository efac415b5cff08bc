package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.Downloads.AutoLimitBytes = 2048
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.Downloads.AutoLimitBytes != 2048 {
		t.Errorf("AutoLimitBytes = %d, want 2048", loaded.Downloads.AutoLimitBytes)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	if err := Save(path, Default()); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestSendEncrypted(t *testing.T) {
	cfg := Default()
	cfg.Messages.Encryption = true
	if !cfg.SendEncrypted(true) {
		t.Error("SendEncrypted(true) = false with global encryption on")
	}
	if cfg.SendEncrypted(false) {
		t.Error("SendEncrypted(false) = true; thread opt-out must win")
	}
	cfg.Messages.Encryption = false
	if cfg.SendEncrypted(true) {
		t.Error("SendEncrypted(true) = true with global encryption off")
	}
}

func TestCanAutoDownload(t *testing.T) {
	cfg := Default()
	cfg.Downloads.AutoLimitBytes = 100
	if !cfg.CanAutoDownload(100) {
		t.Error("size at limit should be downloadable")
	}
	if cfg.CanAutoDownload(101) {
		t.Error("size above limit should not be downloadable")
	}
	cfg.Downloads.AutoLimitBytes = 0
	if cfg.CanAutoDownload(1) {
		t.Error("zero limit should disable auto-download")
	}
}

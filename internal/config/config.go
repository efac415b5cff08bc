package config

import (
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the global ~/.chatengine/config.toml.
type Config struct {
	DefaultProfile string              `toml:"default_profile"`
	Account        AccountConfig       `toml:"account"`
	Messages       MessagesConfig      `toml:"messages"`
	Downloads      DownloadsConfig     `toml:"downloads"`
	Notifications  NotificationsConfig `toml:"notifications"`
}

// AccountConfig identifies the local account.
type AccountConfig struct {
	// Peer is the account's own address. Group membership changes naming it
	// are applied to the group state instead of the member list.
	Peer string `toml:"peer"`
}

// MessagesConfig controls outgoing message behavior.
type MessagesConfig struct {
	// Encryption is the global send-encrypted preference. The effective
	// decision for a message also depends on the thread's own setting.
	Encryption bool `toml:"encryption"`
	// ImageCompression is the compression level requested from the media
	// preparer for outgoing images (0 = none).
	ImageCompression int `toml:"image_compression"`
}

// DownloadsConfig controls attachment auto-download.
type DownloadsConfig struct {
	// AutoLimitBytes is the maximum declared attachment size that is
	// fetched without user interaction. Zero disables auto-download.
	AutoLimitBytes int64 `toml:"auto_limit_bytes"`
	Dir            string `toml:"dir"`
}

// NotificationsConfig controls UI notification signaling.
type NotificationsConfig struct {
	// DebounceMs is the coalescing window for notification updates.
	DebounceMs int `toml:"debounce_ms"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		DefaultProfile: "main",
		Messages: MessagesConfig{
			Encryption:       true,
			ImageCompression: 0,
		},
		Downloads: DownloadsConfig{
			AutoLimitBytes: 1 << 20,
		},
		Notifications: NotificationsConfig{
			DebounceMs: 500,
		},
	}
}

// IsSelf reports whether peer is the local account.
func (c *Config) IsSelf(peer string) bool {
	return c.Account.Peer != "" && peer == c.Account.Peer
}

// SendEncrypted computes the effective encryption decision for a message:
// the global preference gated by the thread-level setting.
func (c *Config) SendEncrypted(threadEncryption bool) bool {
	return c.Messages.Encryption && threadEncryption
}

// CanAutoDownload reports whether an attachment of the given declared size
// may be fetched automatically.
func (c *Config) CanAutoDownload(length int64) bool {
	return c.Downloads.AutoLimitBytes > 0 && length <= c.Downloads.AutoLimitBytes
}

// DebounceWindow returns the notification coalescing window.
func (c *Config) DebounceWindow() time.Duration {
	return time.Duration(c.Notifications.DebounceMs) * time.Millisecond
}

// Load reads config from the given path. Returns an error if the file is
// missing; callers fall back to Default.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

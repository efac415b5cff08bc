package profile

import (
	"os"
	"path/filepath"
)

// BaseDir returns ~/.chatengine.
func BaseDir() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".chatengine")
}

// Dir returns the profile-specific directory.
func Dir(name string) string {
	return filepath.Join(BaseDir(), "profiles", name)
}

// DBPath returns the message database path for a profile.
func DBPath(name string) string {
	return filepath.Join(Dir(name), "chat.db")
}

// DownloadDir returns the attachment download directory for a profile.
func DownloadDir(name string) string {
	return filepath.Join(Dir(name), "downloads")
}

// LogDir returns the log directory for a profile.
func LogDir(name string) string {
	return filepath.Join(Dir(name), "logs")
}

// LogPath returns the daemon log file path.
func LogPath(name string) string {
	return filepath.Join(LogDir(name), "chatengined.log")
}

// ConfigPath returns the global config file path.
func ConfigPath() string {
	return filepath.Join(BaseDir(), "config.toml")
}

// EnsureDir creates the profile directory tree with proper permissions.
func EnsureDir(name string) error {
	dirs := []string{
		Dir(name),
		LogDir(name),
		DownloadDir(name),
	}
	for _, d := range dirs {
		if err := os.MkdirAll(d, 0700); err != nil {
			return err
		}
	}
	return nil
}

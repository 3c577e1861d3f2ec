// Package paths resolves where ull keeps its config.yaml and its durable
// translation store (translations.db).
//
// The translation store is meant to outlive any one process, so by default it
// lives in a per-user data directory shared by every invocation. A project can
// pin its own store by creating a .ull-db directory in its working directory.
package paths

import (
	"os"
	"path/filepath"
	"runtime"
)

const appName = "ull"

// CWD-relative directory names.
const (
	DefaultConfigDirName = ".ull"
	DefaultDataDirName   = ".ull-db"
)

// Environment variable names for directory overrides.
const (
	EnvConfigDir = "ULL_CONFIG_DIR"
	EnvDataDir   = "ULL_DATA_DIR"
)

// platformDir holds platform-detection functions that can be overridden in tests.
var platformDir = struct {
	homeDir       func() (string, error)
	userConfigDir func() (string, error)
}{
	homeDir:       os.UserHomeDir,
	userConfigDir: os.UserConfigDir,
}

// DefaultConfigDir returns the platform-specific default configuration directory.
//
// Linux:   $XDG_CONFIG_HOME/ull (fallback ~/.config/ull)
// macOS:   ~/Library/Application Support/ull
// Windows: %APPDATA%/ull
func DefaultConfigDir() (string, error) {
	return platformDefault("XDG_CONFIG_HOME", ".config")
}

// DefaultDataDir returns the platform-specific default data directory.
//
// Linux:   $XDG_DATA_HOME/ull (fallback ~/.local/share/ull)
// macOS and Windows: same as DefaultConfigDir.
func DefaultDataDir() (string, error) {
	return platformDefault("XDG_DATA_HOME", filepath.Join(".local", "share"))
}

func platformDefault(xdgVar, homeRel string) (string, error) {
	if runtime.GOOS != "linux" {
		dir, err := platformDir.userConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, appName), nil
	}
	if xdg := os.Getenv(xdgVar); xdg != "" {
		return filepath.Join(xdg, appName), nil
	}
	home, err := platformDir.homeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, homeRel, appName), nil
}

// ResolveConfigDir returns the configuration directory following the
// precedence chain: flag > ULL_CONFIG_DIR > DefaultConfigDir().
func ResolveConfigDir(flag string) (string, error) {
	if flag != "" {
		return filepath.Abs(flag)
	}
	if env := os.Getenv(EnvConfigDir); env != "" {
		return filepath.Abs(env)
	}
	return DefaultConfigDir()
}

// ResolveDataDir returns the durable store directory following the
// precedence chain: flag > config value > ULL_DATA_DIR > an existing
// $(CWD)/.ull-db > DefaultDataDir().
func ResolveDataDir(flag, configValue string) (string, error) {
	for _, dir := range []string{flag, configValue, os.Getenv(EnvDataDir)} {
		if dir != "" {
			return filepath.Abs(dir)
		}
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	local := filepath.Join(cwd, DefaultDataDirName)
	if info, err := os.Stat(local); err == nil && info.IsDir() {
		return local, nil
	}
	return DefaultDataDir()
}

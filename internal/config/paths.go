package config

import (
	"os"
	"path/filepath"
)

const appName = "strands"

// Paths are the per-user directories strands reads and writes.
type Paths struct {
	Config string // global config files
	Data   string // session snapshots
	State  string // log files
}

// GetPaths resolves Paths from the XDG base directory variables, falling back to the
// platform defaults when a variable is unset.
func GetPaths() *Paths {
	home, _ := os.UserHomeDir()
	configHome, err := os.UserConfigDir()
	if err != nil {
		configHome = filepath.Join(home, ".config")
	}
	return &Paths{
		Config: xdgDir("XDG_CONFIG_HOME", configHome),
		Data:   xdgDir("XDG_DATA_HOME", filepath.Join(home, ".local", "share")),
		State:  xdgDir("XDG_STATE_HOME", filepath.Join(home, ".local", "state")),
	}
}

func xdgDir(env, fallback string) string {
	if base := os.Getenv(env); base != "" {
		return filepath.Join(base, appName)
	}
	return filepath.Join(fallback, appName)
}

// EnsurePaths creates every directory in p.
func (p *Paths) EnsurePaths() error {
	for _, dir := range []string{p.Config, p.Data, p.State} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return nil
}

// StoragePath is where session snapshots are stored.
func (p *Paths) StoragePath() string {
	return filepath.Join(p.Data, "storage")
}

// LogPath is where log files are written.
func (p *Paths) LogPath() string {
	return filepath.Join(p.State, "log")
}

// GetConfigDir returns the global config directory: STRANDS_CONFIG_DIR when set,
// otherwise the XDG config location.
func GetConfigDir() string {
	if dir := os.Getenv("STRANDS_CONFIG_DIR"); dir != "" {
		return dir
	}
	return GetPaths().Config
}

// SearchDirs lists the directories searched for config files, lowest priority first: the
// global config directory, then directory and its .strands subdirectory.
func SearchDirs(directory string) []string {
	dirs := []string{GetConfigDir()}
	if directory != "" {
		dirs = append(dirs, directory, filepath.Join(directory, "."+appName))
	}
	return dirs
}

package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// Paths holds the resolved on-disk locations used by the service.
type Paths struct {
	BaseDir     string
	DataDir     string
	SnapshotDir string
	LogsDir     string
	LogFile     string
}

// ExecutableDir returns the directory of the running binary with symlinks
// resolved.
func ExecutableDir() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", fmt.Errorf("failed to get executable path: %w", err)
	}

	exe, err = filepath.EvalSymlinks(exe)
	if err != nil {
		return "", fmt.Errorf("failed to resolve executable symlinks: %w", err)
	}

	return filepath.Dir(exe), nil
}

// ResolvePaths anchors every relative path of cfg at baseDir. When baseDir is
// empty the executable directory is used, so the service behaves the same
// whatever the working directory.
func ResolvePaths(cfg *Config, baseDir string) (*Paths, error) {
	if baseDir == "" {
		dir, err := ExecutableDir()
		if err != nil {
			return nil, err
		}
		baseDir = dir
	}

	logFile := anchor(baseDir, cfg.Logging.FilePath)
	return &Paths{
		BaseDir:     baseDir,
		DataDir:     anchor(baseDir, DefaultDataDir),
		SnapshotDir: anchor(baseDir, cfg.Snapshot.Dir),
		LogsDir:     filepath.Dir(logFile),
		LogFile:     logFile,
	}, nil
}

func anchor(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// EnsureDirectories creates the directories the configured backends write to.
func (p *Paths) EnsureDirectories(cfg *Config) error {
	directories := []string{p.DataDir}
	if cfg.Snapshot.Backend == SnapshotBackendFile {
		directories = append(directories, p.SnapshotDir)
	}
	if cfg.Logging.Output == "file" || cfg.Logging.Output == "both" {
		directories = append(directories, p.LogsDir)
	}

	for _, dir := range directories {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return nil
}

// LogPathResolution logs the resolved paths for debugging
func (p *Paths) LogPathResolution(logger *slog.Logger) {
	logger.Info("path resolution summary",
		slog.Group("directories",
			slog.String("base", p.BaseDir),
			slog.String("data", p.DataDir),
			slog.String("snapshots", p.SnapshotDir),
			slog.String("logs", p.LogsDir),
		),
		slog.String("log_file", p.LogFile))
}

// ExportPath returns where a named export file is written.
func (p *Paths) ExportPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(p.DataDir, "exports", name)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t, t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, []string{"http://localhost:8080"}, cfg.Security.AllowedOrigins)
	assert.True(t, cfg.Security.RateLimit.Enabled)

	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)

	assert.Equal(t, "Cire_", cfg.Analysis.ComparisonPrefix)
	assert.Equal(t, "Métal", cfg.Analysis.LabelA)
	assert.Equal(t, "Cire", cfg.Analysis.LabelB)
	assert.InDelta(t, 0.05, cfg.Analysis.ComparisonThreshold, 1e-12)
	assert.Equal(t, 12, cfg.Analysis.SlotCount)
	assert.Equal(t, BoundsPolicyStrict, cfg.Analysis.BoundsPolicy)
	assert.Equal(t, int64(32<<20), cfg.Analysis.MaxUploadBytes)

	assert.Equal(t, 2*time.Hour, cfg.Session.IdleTTL)
	assert.Equal(t, 64, cfg.Session.MaxSessions)

	assert.Equal(t, SnapshotBackendFile, cfg.Snapshot.Backend)
	assert.Equal(t, "data/snapshots", cfg.Snapshot.Dir)
	assert.Equal(t, "prometheus", cfg.Telemetry.MetricExporter)
}

func TestLoad_EnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())

	t.Setenv("METROLOG_SERVER_PORT", "9191")
	t.Setenv("METROLOG_ANALYSIS_COMPARISON_PREFIX", "Wax_")
	t.Setenv("METROLOG_ANALYSIS_BOUNDS_POLICY", "first_row")
	t.Setenv("METROLOG_SESSION_IDLE_TTL", "15m")
	t.Setenv("METROLOG_SECURITY_ALLOWED_ORIGINS", "http://a.test,http://b.test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, "Wax_", cfg.Analysis.ComparisonPrefix)
	assert.Equal(t, BoundsPolicyFirstRow, cfg.Analysis.BoundsPolicy)
	assert.Equal(t, 15*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Security.AllowedOrigins)
}

func TestLoad_FileAndEnvPrecedence(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)

	yamlContent := `
server:
  port: 7000
analysis:
  comparison_threshold: 0.1
  slot_count: 8
snapshot:
  backend: s3
  bucket: metrology
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlContent), 0o644))
	t.Setenv("METROLOG_SERVER_PORT", "7100")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7100, cfg.Server.Port, "env wins over file")
	assert.InDelta(t, 0.1, cfg.Analysis.ComparisonThreshold, 1e-12)
	assert.Equal(t, 8, cfg.Analysis.SlotCount)
	assert.Equal(t, SnapshotBackendS3, cfg.Snapshot.Backend)
	assert.Equal(t, "metrology", cfg.Snapshot.Bucket)
	assert.Equal(t, "Cire_", cfg.Analysis.ComparisonPrefix, "defaults fill the rest")
}

func TestLoad_ExplicitConfigFile(t *testing.T) {
	chdir(t, t.TempDir())
	path := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(path, []byte("session:\n  max_sessions: 3\n"), 0o644))
	t.Setenv("METROLOG_CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Session.MaxSessions)
}

func TestLoad_InvalidFile(t *testing.T) {
	dir := t.TempDir()
	chdir(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("server: [oops"), 0o644))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to load config from file")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "defaults are valid", mutate: func(*Config) {}},
		{name: "bad port", mutate: func(c *Config) { c.Server.Port = 0 }, wantErr: "invalid server port"},
		{name: "bad read timeout", mutate: func(c *Config) { c.Server.ReadTimeout = 0 }, wantErr: "read timeout"},
		{name: "no origins with cors", mutate: func(c *Config) { c.Security.AllowedOrigins = nil }, wantErr: "allowed origin"},
		{name: "no origins without cors", mutate: func(c *Config) {
			c.Security.AllowedOrigins = nil
			c.Security.EnableCORS = false
		}},
		{name: "zero slot count", mutate: func(c *Config) { c.Analysis.SlotCount = 0 }, wantErr: "slot count"},
		{name: "negative threshold", mutate: func(c *Config) { c.Analysis.ComparisonThreshold = -1 }, wantErr: "threshold"},
		{name: "unknown bounds policy", mutate: func(c *Config) { c.Analysis.BoundsPolicy = "mean" }, wantErr: "bounds policy"},
		{name: "s3 without bucket", mutate: func(c *Config) { c.Snapshot.Backend = SnapshotBackendS3 }, wantErr: "bucket"},
		{name: "unknown backend", mutate: func(c *Config) { c.Snapshot.Backend = "ftp" }, wantErr: "snapshot backend"},
		{name: "snapshots disabled", mutate: func(c *Config) { c.Snapshot.Backend = SnapshotBackendNone }},
		{name: "sample ratio", mutate: func(c *Config) { c.Telemetry.SampleRatio = 2 }, wantErr: "sample ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidate_NormalizesLogging(t *testing.T) {
	cfg := Default()
	cfg.Logging.Format = "text"
	cfg.Logging.Output = "syslog"
	cfg.Logging.FilePath = ""

	require.NoError(t, cfg.validate())
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, "console", cfg.Logging.Output)
	assert.Equal(t, filepath.Join("logs", "metrolog.log"), cfg.Logging.FilePath)
}

func TestMergeConfigs(t *testing.T) {
	file := Config{
		Server:   ServerConfig{Port: 9000, ReadTimeout: time.Minute},
		Analysis: AnalysisConfig{ComparisonPrefix: "W_", SlotCount: 6},
	}
	env := *Default()

	set := map[string]bool{"ANALYSIS_SLOT_COUNT": true}
	merged := mergeConfigs(file, env, func(k string) bool { return set[k] })

	assert.Equal(t, 9000, merged.Server.Port)
	assert.Equal(t, time.Minute, merged.Server.ReadTimeout)
	assert.Equal(t, "W_", merged.Analysis.ComparisonPrefix)
	assert.Equal(t, 12, merged.Analysis.SlotCount, "explicit env var is kept")
	assert.Equal(t, env.Server.WriteTimeout, merged.Server.WriteTimeout)
}

func TestResolvePaths(t *testing.T) {
	base := t.TempDir()
	cfg := Default()
	cfg.Logging.Output = "both"

	paths, err := ResolvePaths(cfg, base)
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(base, "data", "snapshots"), paths.SnapshotDir)
	assert.Equal(t, filepath.Join(base, "logs", "metrolog.log"), paths.LogFile)
	assert.Equal(t, filepath.Join(base, "logs"), paths.LogsDir)

	require.NoError(t, paths.EnsureDirectories(cfg))
	assert.DirExists(t, paths.SnapshotDir)
	assert.DirExists(t, paths.LogsDir)
}

func TestResolvePaths_AbsoluteKept(t *testing.T) {
	abs := filepath.Join(t.TempDir(), "snaps")
	cfg := Default()
	cfg.Snapshot.Dir = abs

	paths, err := ResolvePaths(cfg, "/opt/metrolog")
	require.NoError(t, err)
	assert.Equal(t, abs, paths.SnapshotDir)
}

func TestResolvePaths_ExecutableDir(t *testing.T) {
	paths, err := ResolvePaths(Default(), "")
	require.NoError(t, err)
	assert.NotEmpty(t, paths.BaseDir)
}

package cli

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate moves the test into a fresh repository root so discovery and
// .env loading never see the developer's files.
func isolate(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, ".git"), 0o755))
	t.Chdir(root)
	return root
}

func TestFindConfigFile_ExplicitPath(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte("schema: s.yaml"), 0o644))

	path, err := findConfigFile(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, tmpFile, path)
}

func TestFindConfigFile_ExplicitPathNotFound(t *testing.T) {
	_, err := findConfigFile("/nonexistent/path/relkit.yaml")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestFindConfigFile_AutoDiscovery(t *testing.T) {
	root := isolate(t)
	configPath := filepath.Join(root, "relkit.yml")
	require.NoError(t, os.WriteFile(configPath, []byte("schema: s.yaml"), 0o644))
	nested := filepath.Join(root, "deep", "nested")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	t.Chdir(nested)

	path, err := findConfigFile("")
	require.NoError(t, err)
	expected, _ := filepath.EvalSymlinks(configPath)
	actual, _ := filepath.EvalSymlinks(path)
	assert.Equal(t, expected, actual)
}

func TestFindConfigFile_StopsAtRepoRoot(t *testing.T) {
	isolate(t)
	path, err := findConfigFile("")
	require.NoError(t, err)
	assert.Empty(t, path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)
	cfg, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Empty(t, path)
	assert.Equal(t, "schema.yaml", cfg.Schema)
	assert.Equal(t, "postgres", cfg.Database.Driver)
	assert.Equal(t, 10, cfg.Database.MaxOpenConns)
	assert.Equal(t, 30*time.Minute, cfg.Database.ConnMaxLifetime)
	assert.Zero(t, cfg.Database.SlowThreshold)
	assert.Equal(t, LogConfig{Level: "info", Format: "text"}, cfg.Log)
}

func TestLoadConfig_FileAndEnv(t *testing.T) {
	root := isolate(t)
	content := `schema: schemas/bakery.yaml
database:
  driver: sqlite
  dsn: "file:bakery.db"
  slow_threshold: 250ms
  metrics: true
log:
  format: json
`
	require.NoError(t, os.WriteFile(filepath.Join(root, "relkit.yaml"), []byte(content), 0o644))
	t.Setenv("RELKIT_LOG_LEVEL", "debug")
	t.Setenv("RELKIT_DATABASE_MAX_OPEN_CONNS", "1")

	cfg, path, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "relkit.yaml", filepath.Base(path))
	assert.Equal(t, filepath.Join(filepath.Dir(path), "schemas", "bakery.yaml"), cfg.Schema)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file:bakery.db", cfg.Database.DSN)
	assert.Equal(t, 250*time.Millisecond, cfg.Database.SlowThreshold)
	assert.True(t, cfg.Database.Metrics)
	assert.Equal(t, 1, cfg.Database.MaxOpenConns)
	assert.Equal(t, LogConfig{Level: "debug", Format: "json"}, cfg.Log)
}

func TestLoadConfig_DotEnv(t *testing.T) {
	root := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(root, ".env"), []byte("RELKIT_DATABASE_DSN=postgres://localhost/bakery\n"), 0o644))
	t.Cleanup(func() { _ = os.Unsetenv("RELKIT_DATABASE_DSN") })

	cfg, _, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "postgres://localhost/bakery", cfg.Database.DSN)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	root := isolate(t)
	path := filepath.Join(root, "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("database: [unclosed"), 0o644))

	_, got, err := LoadConfig(path)
	require.Error(t, err)
	assert.Equal(t, path, got)
	assert.Contains(t, err.Error(), "reading config file")
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, ExitCode(nil))
	assert.Equal(t, ExitConfig, ExitCode(ConfigError("loading configuration", os.ErrNotExist)))
	assert.Equal(t, ExitDBConnect, ExitCode(DBConnectError("connecting", nil)))
	assert.Equal(t, ExitGeneral, ExitCode(os.ErrClosed))
	assert.Equal(t, "loading configuration: file does not exist",
		ConfigError("loading configuration", os.ErrNotExist).Error())
}

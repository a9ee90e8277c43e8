package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/mwantia/alder/internal/config"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitConfigReadsFileAndEnvironment(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	dir := t.TempDir()
	path := filepath.Join(dir, "alder.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
database:
  sqlite:
    path: /var/lib/alder/alder.db
opal:
  host: opal.example.org
  username: alder
`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("ALDER_TEST_ENV_FILE=loaded\n"), 0o600))

	t.Setenv("ALDER_OPAL_PASSWORD", "from-env")
	t.Cleanup(func() { os.Unsetenv("ALDER_TEST_ENV_FILE") })

	require.NoError(t, InitConfig(path))

	cfg, err := config.LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/alder/alder.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "opal.example.org", cfg.Opal.Host)
	assert.Equal(t, "alder", cfg.Opal.Username)
	assert.Equal(t, "from-env", cfg.Opal.Password)
	assert.Equal(t, "loaded", os.Getenv("ALDER_TEST_ENV_FILE"))
}

func TestInitConfigRejectsBrokenFile(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("opal: [unterminated"), 0o600))

	assert.Error(t, InitConfig(path))
}

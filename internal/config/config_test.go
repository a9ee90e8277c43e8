package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := GetDefault()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 100, cfg.Opal.PageSize)
	assert.Equal(t, "30s", cfg.Opal.Timeout)
}

func TestValidate(t *testing.T) {
	cfg := GetDefault()
	cfg.Database.Type = "postgres"
	assert.ErrorContains(t, cfg.Validate(), "unsupported database type")

	cfg = GetDefault()
	cfg.Database.SQLite.Path = ""
	assert.ErrorContains(t, cfg.Validate(), "database.sqlite.path")

	cfg = GetDefault()
	cfg.Images.Root = ""
	assert.ErrorContains(t, cfg.Validate(), "images.root")
}

func TestLoadConfigAppliesOverrides(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("opal.host", "opal.example.org")
	viper.Set("opal.page_size", 25)
	viper.Set("images.root", "/srv/alder/images")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "opal.example.org", cfg.Opal.Host)
	assert.Equal(t, 25, cfg.Opal.PageSize)
	assert.Equal(t, 8843, cfg.Opal.Port)
	assert.Equal(t, "/srv/alder/images", cfg.Images.Root)
	assert.Equal(t, "alder.db", cfg.Database.SQLite.Path)
	assert.Equal(t, "administrator", cfg.Admin.Username)
}

func TestLoadConfigRejectsInvalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)

	viper.Set("database.type", "mysql")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "invalid configuration")
}

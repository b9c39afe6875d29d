package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, CatalogSourceFile, cfg.Catalog.Source)
	assert.Equal(t, "diseases.csv", cfg.Catalog.Path)
	assert.Equal(t, 5, cfg.Match.DefaultTopN)
	assert.Less(t, cfg.Advice.RequestTimeout, cfg.Server.WriteTimeout)
	assert.Equal(t, "HF_API_KEY", cfg.Advice.APIKeyEnv)
	assert.False(t, cfg.Redis.Enabled)
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "medmind.yaml")
	yamlDoc := `
catalog:
  path: data/catalog.yaml
match:
  defaultTopN: 3
  maxTopN: 10
redis:
  enabled: true
  cacheTTL: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("MM_LOGGING_LEVEL", "debug")
	t.Setenv("MM_KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "data/catalog.yaml", cfg.Catalog.Path)
	assert.Equal(t, 3, cfg.Match.DefaultTopN)
	assert.Equal(t, 10, cfg.Match.MaxTopN)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, 30*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Kafka.Brokers)
	// untouched sections keep their defaults
	assert.Equal(t, 8080, cfg.Server.Port)
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("MM_CATALOG_SOURCE", "ftp")
	_, err := Load("")
	assert.ErrorContains(t, err, `unknown catalog.source "ftp"`)
}

func TestLoadRejectsAdviceTimeoutOutlivingWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "medmind.yaml")
	yamlDoc := `
server:
  writeTimeout: 30s
advice:
  requestTimeout: 30s
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	_, err := Load(path)
	assert.ErrorContains(t, err, "advice.requestTimeout (30s) must be shorter than server.writeTimeout (30s)")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestAdviceAPIKey(t *testing.T) {
	t.Setenv("TEST_MEDMIND_KEY", "secret")
	a := AdviceConfig{APIKeyEnv: "TEST_MEDMIND_KEY"}
	assert.Equal(t, "secret", a.APIKey())
	assert.Empty(t, AdviceConfig{}.APIKey())
}

func TestDevelopmentConfig(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "configs", "development.yaml"))
	require.NoError(t, err)

	assert.Equal(t, CatalogSourceFile, cfg.Catalog.Source)
	assert.Equal(t, "match-events", cfg.Kafka.Topics.MatchEvents)
	assert.Equal(t, 60*time.Second, cfg.Advice.RequestTimeout)
	assert.Equal(t, 5*time.Minute, cfg.Redis.CacheTTL)
}

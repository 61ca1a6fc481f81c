package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/hay-kot/criterio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// validConfig returns a Config with all required fields set for testing.
func validConfig(t *testing.T) *Config {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	return &cfg
}

func fieldNames(t *testing.T, err error) []string {
	t.Helper()
	var fieldErrs criterio.FieldErrors
	require.ErrorAs(t, err, &fieldErrs)
	names := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		names = append(names, fe.Field)
	}
	return names
}

func TestValidateDeep_ValidConfig(t *testing.T) {
	cfg := validConfig(t)
	cfg.Classifier.LexiconPaths = []string{filepath.Join(cfg.DataDir, "**", "*.yaml")}

	assert.NoError(t, cfg.ValidateDeep(""))
}

func TestValidate_UnknownKinds(t *testing.T) {
	cfg := validConfig(t)
	cfg.Classifier.Kind = "neural"
	cfg.Store.Driver = "postgres"

	names := fieldNames(t, cfg.Validate())
	assert.ElementsMatch(t, []string{"classifier.kind", "store.driver"}, names)
}

func TestValidate_Threshold(t *testing.T) {
	for _, thr := range []float64{0.3, 1.2} {
		cfg := validConfig(t)
		cfg.Classifier.Threshold = thr
		assert.Equal(t, []string{"classifier.threshold"}, fieldNames(t, cfg.Validate()), "threshold %g", thr)
	}
}

func TestValidate_RemoteNeedsURL(t *testing.T) {
	cfg := validConfig(t)
	cfg.Classifier.Kind = ClassifierRemote

	assert.Equal(t, []string{"classifier.remote.url"}, fieldNames(t, cfg.Validate()))
}

func TestValidate_RedisNeedsAddr(t *testing.T) {
	cfg := validConfig(t)
	cfg.Store.Driver = StoreRedis
	cfg.Store.Redis.Addr = ""

	assert.Equal(t, []string{"store.redis.addr"}, fieldNames(t, cfg.Validate()))
}

func TestValidateDeep_BadAddresses(t *testing.T) {
	cfg := validConfig(t)
	cfg.Server.Addr = "8080"
	cfg.Client.ServerURL = "localhost:8080"

	names := fieldNames(t, cfg.ValidateDeep(""))
	assert.ElementsMatch(t, []string{"server.addr", "client.server_url"}, names)
}

func TestValidateDeep_InvalidGlob(t *testing.T) {
	cfg := validConfig(t)
	cfg.Classifier.LexiconPaths = []string{"lexicons/[a-"}

	assert.Equal(t, []string{"classifier.lexicon_paths[0]"}, fieldNames(t, cfg.ValidateDeep("")))
}

func TestValidateDeep_DataDirIsFile(t *testing.T) {
	tmpFile := filepath.Join(t.TempDir(), "notadir")
	require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0o644))

	cfg := validConfig(t)
	cfg.DataDir = tmpFile

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep("")), "data_dir")
}

func TestValidateDeep_ConfigFileIsDirectory(t *testing.T) {
	cfg := validConfig(t)

	assert.Contains(t, fieldNames(t, cfg.ValidateDeep(t.TempDir())), "config_file")
}

func TestWarnings(t *testing.T) {
	cfg := validConfig(t)
	assert.Empty(t, cfg.Warnings())

	cfg.Moderation.Enabled = false
	cfg.Classifier.LexiconPaths = []string{filepath.Join(cfg.DataDir, "*.yaml")}

	warnings := cfg.Warnings()
	require.Len(t, warnings, 2)
	assert.Equal(t, "Moderation", warnings[0].Category)
	assert.Equal(t, "Classifier", warnings[1].Category)
}

func TestLoad_Defaults(t *testing.T) {
	dataDir := t.TempDir()

	cfg, err := Load(filepath.Join(dataDir, "missing.yaml"), dataDir)
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, 12, cfg.Client.TailLimit)
	assert.Equal(t, 8*time.Second, cfg.Client.NoticeDuration)
	assert.InDelta(t, 0.9, cfg.Classifier.Threshold, 1e-9)
	assert.Equal(t, StoreJSONFile, cfg.Store.Driver)
	assert.True(t, cfg.Moderation.Enabled)
	assert.Equal(t, filepath.Join(dataDir, "messages.json"), cfg.MessagesFile())
}

func TestLoad_FileOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
client:
  notice_duration: 3s
classifier:
  threshold: 0.8
store:
  driver: badger
moderation:
  enabled: false
`), 0o644))

	cfg, err := Load(path, dir)
	require.NoError(t, err)

	assert.Equal(t, 3*time.Second, cfg.Client.NoticeDuration)
	assert.InDelta(t, 0.8, cfg.Classifier.Threshold, 1e-9)
	assert.Equal(t, StoreBadger, cfg.Store.Driver)
	assert.False(t, cfg.Moderation.Enabled)
	assert.Equal(t, 12, cfg.Server.TailLimit, "unset keys keep defaults")
	assert.Equal(t, dir, cfg.DataDir)
}

func TestLoad_Invalid(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: sqlite\n"), 0o644))

	_, err := Load(path, dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")

	var fieldErrs criterio.FieldErrors
	assert.ErrorAs(t, err, &fieldErrs)
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftsync/internal/api"
	"driftsync/internal/reconciler"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte(content), 0o644))
	return dir
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(t.TempDir())
	require.NoError(t, err)

	assert.Equal(t, DefaultBranch, cfg.Sync.Branch)
	assert.Equal(t, DefaultArtifactDir, cfg.Artifacts.Dir)
	assert.Equal(t, 30*time.Second, cfg.Instance.Timeout.Std())
	assert.Equal(t, []string{"workflows", "files", "dashboards"}, cfg.Sync.Kinds)
}

func TestLoadConfigMergesOverDefaults(t *testing.T) {
	dir := writeConfig(t, `
sync:
  repository: https://git.example.com/resources.git
  namespaces: [team-a]
  sourceOfTruth: INSTANCE
  protectedScopes: [team.core]
instance:
  endpoint: https://instance.example.com
  timeout: 5s
watch:
  debounce: 500ms
`)

	cfg, err := LoadConfig(dir)
	require.NoError(t, err)

	// Explicit values win, untouched sections keep their defaults.
	assert.Equal(t, "https://git.example.com/resources.git", cfg.Sync.Repository)
	assert.Equal(t, DefaultBranch, cfg.Sync.Branch)
	assert.Equal(t, "INSTANCE", cfg.Sync.SourceOfTruth)
	assert.Equal(t, 5*time.Second, cfg.Instance.Timeout.Std())
	assert.Equal(t, 500*time.Millisecond, cfg.Watch.Debounce.Std())
}

func TestLoadConfigMalformedYAML(t *testing.T) {
	dir := writeConfig(t, "sync: [not a mapping")

	_, err := LoadConfig(dir)
	assert.Error(t, err)
}

func TestLoadConfigInvalidDuration(t *testing.T) {
	dir := writeConfig(t, "instance:\n  timeout: soon\n")

	_, err := LoadConfig(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid duration")
}

func TestRunConfigConversion(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sync.Repository = "https://git.example.com/resources.git"
	cfg.Sync.Namespaces = []string{"team-a", "team-b"}
	cfg.Sync.ProtectedScopes = []string{"team.core"}
	cfg.Commit.AuthorEmail = "bot@example.com"

	run, err := cfg.RunConfig()
	require.NoError(t, err)

	assert.Equal(t, "https://git.example.com/resources.git", run.RepositoryURL)
	assert.ElementsMatch(t, []reconciler.Kind{
		reconciler.KindDefinition, reconciler.KindFile, reconciler.KindDashboard,
	}, run.Kinds)
	// Policy defaults applied during validation.
	assert.Equal(t, reconciler.SourceTree, run.Policy.SourceOfTruth)
	assert.Equal(t, reconciler.MissingKeep, run.Policy.WhenMissingInSource)
	assert.Equal(t, DefaultCommitAuthor, run.Author.Name)
}

func TestRunConfigRejectsUnknownKind(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sync.Repository = "https://git.example.com/resources.git"
	cfg.Sync.Kinds = []string{"workflows", "gadgets"}

	_, err := cfg.RunConfig()
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}

func TestRunConfigRequiresRepository(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Sync.Namespaces = []string{"team-a"}

	_, err := cfg.RunConfig()
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}

func TestClientConfigTokenEnvPrecedence(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Instance.Endpoint = "https://instance.example.com"
	cfg.Instance.Token = "from-file"
	cfg.Instance.TokenEnv = "DRIFTSYNC_TEST_TOKEN"

	t.Setenv("DRIFTSYNC_TEST_TOKEN", "from-env")

	client, err := cfg.ClientConfig()
	require.NoError(t, err)
	assert.Equal(t, "from-env", client.Token)
}

func TestClientConfigUnsetTokenEnvFails(t *testing.T) {
	cfg := GetDefaultConfig()
	cfg.Instance.Endpoint = "https://instance.example.com"
	cfg.Instance.TokenEnv = "DRIFTSYNC_TEST_TOKEN_UNSET"

	os.Unsetenv("DRIFTSYNC_TEST_TOKEN_UNSET")

	_, err := cfg.ClientConfig()
	require.Error(t, err)
	assert.True(t, api.IsConfiguration(err))
}

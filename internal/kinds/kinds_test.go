package kinds

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftsync/internal/reconciler"
)

func TestTreePathLayout(t *testing.T) {
	assert.Equal(t, "team-a/workflows/deploy.yaml",
		Definitions.TreePath(reconciler.ResourceKey{Scope: "team-a", ID: "deploy", Kind: reconciler.KindDefinition}))

	assert.Equal(t, "team-a/files/env/settings.conf",
		Files.TreePath(reconciler.ResourceKey{Scope: "team-a", ID: "env/settings.conf", Kind: reconciler.KindFile}))

	// Dashboards live flat under the root, outside any namespace.
	assert.Equal(t, "dashboards/overview.json",
		Dashboards.TreePath(reconciler.ResourceKey{ID: "overview", Kind: reconciler.KindDashboard}))
}

func TestKeyForRoundTrip(t *testing.T) {
	keys := []reconciler.ResourceKey{
		{Scope: "team-a", ID: "deploy", Kind: reconciler.KindDefinition},
		{Scope: "team-a", ID: "env/settings.conf", Kind: reconciler.KindFile},
		{ID: "overview", Kind: reconciler.KindDashboard},
	}

	for _, key := range keys {
		adapter, ok := ByKind(key.Kind)
		require.True(t, ok)

		got, ok := adapter.KeyFor("team-a", adapter.TreePath(key))
		require.True(t, ok, "path %s", adapter.TreePath(key))
		assert.Equal(t, key, got)
	}
}

func TestKeyForRejectsForeignPaths(t *testing.T) {
	cases := []struct {
		adapter Adapter
		scope   string
		relPath string
	}{
		{Definitions, "team-a", "team-b/workflows/deploy.yaml"}, // wrong scope
		{Definitions, "team-a", "team-a/files/deploy.yaml"},     // wrong dir
		{Definitions, "team-a", "team-a/workflows/deploy.txt"},  // wrong extension
		{Definitions, "team-a", "team-a/workflows/sub/x.yaml"},  // nested id
		{Definitions, "team-a", "team-a/workflows/.yaml"},       // empty id
		{Dashboards, "", "team-a/dashboards/overview.json"},     // global kinds have no scope dir
	}

	for _, tc := range cases {
		_, ok := tc.adapter.KeyFor(tc.scope, tc.relPath)
		assert.False(t, ok, "path %s should not parse", tc.relPath)
	}
}

func TestValidateDefinition(t *testing.T) {
	require.NoError(t, validateDefinition([]byte("id: deploy\nsteps: []\n")))

	assert.Error(t, validateDefinition([]byte("id: [\n")))       // not YAML
	assert.Error(t, validateDefinition([]byte("")))              // empty
	assert.Error(t, validateDefinition([]byte("steps: []\n")))   // no id
	assert.Error(t, validateDefinition([]byte("id: \"\"\n")))    // empty id
	assert.Error(t, validateDefinition([]byte("id: 42\n")))      // non-string id
}

func TestValidateDashboard(t *testing.T) {
	require.NoError(t, validateDashboard([]byte(`{"title": "Overview", "panels": []}`)))

	assert.Error(t, validateDashboard([]byte(`not json`)))
	assert.Error(t, validateDashboard([]byte(`{"panels": []}`)))
	assert.Error(t, validateDashboard([]byte(`{"title": ""}`)))
}

func TestFilesAdapterIsOpaque(t *testing.T) {
	assert.True(t, Files.Binary)
	assert.Nil(t, Files.Validate)
}

func TestParse(t *testing.T) {
	for name, want := range map[string]reconciler.Kind{
		"workflows":  reconciler.KindDefinition,
		"Definition": reconciler.KindDefinition,
		"files":      reconciler.KindFile,
		" dashboards ": reconciler.KindDashboard,
	} {
		got, err := Parse(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got)
	}

	_, err := Parse("gadgets")
	assert.Error(t, err)
}

func TestGlobalKinds(t *testing.T) {
	global := GlobalKinds()
	assert.False(t, global[reconciler.KindDefinition])
	assert.False(t, global[reconciler.KindFile])
	assert.True(t, global[reconciler.KindDashboard])
}

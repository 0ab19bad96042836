package reconciler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"driftsync/internal/api"
)

func TestPolicyValidateAppliesDefaults(t *testing.T) {
	p := SyncPolicy{}
	require.NoError(t, p.Validate())

	assert.Equal(t, SourceTree, p.SourceOfTruth)
	assert.Equal(t, MissingKeep, p.WhenMissingInSource)
	assert.Equal(t, InvalidWarn, p.OnInvalidContent)
}

func TestPolicyValidateRejectsUnknownValues(t *testing.T) {
	cases := []SyncPolicy{
		{SourceOfTruth: "BOTH"},
		{WhenMissingInSource: "ARCHIVE"},
		{OnInvalidContent: "IGNORE"},
	}

	for _, p := range cases {
		err := p.Validate()
		require.Error(t, err)
		assert.True(t, api.IsConfiguration(err))
	}
}

func TestIsProtected(t *testing.T) {
	p := SyncPolicy{ProtectedScopes: []string{"team.core", "ops"}}

	assert.True(t, p.IsProtected("team.core"))
	assert.True(t, p.IsProtected("team.core.batch"))
	assert.True(t, p.IsProtected("ops"))

	// Prefix matching is per dot-separated segment, not per character.
	assert.False(t, p.IsProtected("team.corebatch"))
	assert.False(t, p.IsProtected("team"))
	assert.False(t, p.IsProtected(""))
}

func TestIsProtectedIgnoresEmptyEntries(t *testing.T) {
	p := SyncPolicy{ProtectedScopes: []string{""}}
	assert.False(t, p.IsProtected("anything"))
}

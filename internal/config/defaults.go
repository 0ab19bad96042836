package config

import "time"

const (
	// DefaultBranch is reconciled when the config names no branch.
	DefaultBranch = "main"

	// DefaultArtifactDir holds diff artifacts relative to the working
	// directory.
	DefaultArtifactDir = ".driftsync/artifacts"

	// DefaultCommitAuthor signs sync commits when no author is configured.
	DefaultCommitAuthor = "driftsync"
)

// GetDefaultConfig returns the configuration driftsync starts from before
// config.yaml is merged in.
func GetDefaultConfig() Config {
	return Config{
		Sync: SyncConfig{
			Branch: DefaultBranch,
			Kinds:  []string{"workflows", "files", "dashboards"},
		},
		Instance: InstanceConfig{
			Timeout: Duration(30 * time.Second),
		},
		Commit: CommitConfig{
			AuthorName: DefaultCommitAuthor,
		},
		Artifacts: ArtifactsConfig{
			Dir: DefaultArtifactDir,
		},
		Watch: WatchConfig{
			Debounce: Duration(2 * time.Second),
		},
	}
}

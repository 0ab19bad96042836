package config

import (
	"os"

	"driftsync/internal/api"
	"driftsync/internal/instance"
	"driftsync/internal/kinds"
	"driftsync/internal/reconciler"
	"driftsync/internal/vcs"
)

// RunConfig translates the sync section into the engine's run
// configuration. Unknown kind names fail before any I/O.
func (c *Config) RunConfig() (reconciler.RunConfig, error) {
	selected := make([]reconciler.Kind, 0, len(c.Sync.Kinds))
	for _, name := range c.Sync.Kinds {
		kind, err := kinds.Parse(name)
		if err != nil {
			return reconciler.RunConfig{}, api.NewConfigurationError("sync.kinds", err.Error())
		}
		selected = append(selected, kind)
	}

	run := reconciler.RunConfig{
		RepositoryURL: c.Sync.Repository,
		Branch:        c.Sync.Branch,
		CloneDepth:    c.Sync.CloneDepth,
		Namespaces:    c.Sync.Namespaces,
		Kinds:         selected,
		Policy: reconciler.SyncPolicy{
			SourceOfTruth:       reconciler.SourceOfTruth(c.Sync.SourceOfTruth),
			WhenMissingInSource: reconciler.MissingInSource(c.Sync.WhenMissingInSource),
			OnInvalidContent:    reconciler.InvalidContent(c.Sync.OnInvalidContent),
			ProtectedScopes:     c.Sync.ProtectedScopes,
			DryRun:              c.Sync.DryRun,
		},
		Author: reconciler.CommitAuthor{
			Name:  c.Commit.AuthorName,
			Email: c.Commit.AuthorEmail,
		},
	}
	if err := run.Validate(kinds.GlobalKinds()); err != nil {
		return reconciler.RunConfig{}, err
	}
	return run, nil
}

// ClientConfig translates the instance section into the API client's
// configuration, resolving the token from the environment when tokenEnv
// is set.
func (c *Config) ClientConfig() (instance.ClientConfig, error) {
	token, err := resolveToken(c.Instance.Token, c.Instance.TokenEnv, "instance.tokenEnv")
	if err != nil {
		return instance.ClientConfig{}, err
	}

	return instance.ClientConfig{
		Endpoint: c.Instance.Endpoint,
		Token:    token,
		Timeout:  c.Instance.Timeout.Std(),
		TLS: instance.TLSConfig{
			CABundle:           c.Instance.CABundle,
			InsecureSkipVerify: c.Instance.InsecureSkipVerify,
		},
	}, nil
}

// VCSOptions translates the git section into the version-control client's
// options.
func (c *Config) VCSOptions() (vcs.Options, error) {
	token, err := resolveToken(c.Git.Token, c.Git.TokenEnv, "git.tokenEnv")
	if err != nil {
		return vcs.Options{}, err
	}

	return vcs.Options{
		Dir:      c.Git.CheckoutDir,
		Username: c.Git.Username,
		Token:    token,
	}, nil
}

// resolveToken prefers the environment variable over the literal value. A
// named but unset variable is a configuration error rather than a silent
// empty token.
func resolveToken(literal, envName, field string) (string, error) {
	if envName == "" {
		return literal, nil
	}
	value, ok := os.LookupEnv(envName)
	if !ok {
		return "", api.NewConfigurationError(field, "environment variable "+envName+" is not set")
	}
	return value, nil
}

package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration structure for driftsync.
type Config struct {
	Sync      SyncConfig      `yaml:"sync"`
	Instance  InstanceConfig  `yaml:"instance"`
	Git       GitConfig       `yaml:"git"`
	Commit    CommitConfig    `yaml:"commit"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
	Watch     WatchConfig     `yaml:"watch"`
}

// SyncConfig selects what to reconcile and under which ownership policy.
type SyncConfig struct {
	Repository string `yaml:"repository"` // Git remote holding the resource tree
	Branch     string `yaml:"branch,omitempty"`
	CloneDepth int    `yaml:"cloneDepth,omitempty"` // 0 means full history

	// DirectoryPrefix roots the resource layout below a subdirectory of
	// the repository instead of its top level.
	DirectoryPrefix string `yaml:"directoryPrefix,omitempty"`

	Namespaces []string `yaml:"namespaces,omitempty"`
	Kinds      []string `yaml:"kinds,omitempty"` // workflows, files, dashboards

	SourceOfTruth       string   `yaml:"sourceOfTruth,omitempty"`       // TREE or INSTANCE
	WhenMissingInSource string   `yaml:"whenMissingInSource,omitempty"` // DELETE, KEEP or FAIL
	OnInvalidContent    string   `yaml:"onInvalidContent,omitempty"`    // SKIP, WARN or FAIL
	ProtectedScopes     []string `yaml:"protectedScopes,omitempty"`
	DryRun              bool     `yaml:"dryRun,omitempty"`
}

// InstanceConfig locates and authenticates the live instance's resource API.
type InstanceConfig struct {
	Endpoint string `yaml:"endpoint"`

	// Token is the bearer token. TokenEnv names an environment variable
	// that takes precedence when set, so tokens can stay out of the file.
	Token    string `yaml:"token,omitempty"`
	TokenEnv string `yaml:"tokenEnv,omitempty"`

	Timeout            Duration `yaml:"timeout,omitempty"`
	CABundle           string   `yaml:"caBundle,omitempty"`
	InsecureSkipVerify bool     `yaml:"insecureSkipVerify,omitempty"`
}

// GitConfig authenticates pushes to the resource repository.
type GitConfig struct {
	Username string `yaml:"username,omitempty"`
	Token    string `yaml:"token,omitempty"`
	TokenEnv string `yaml:"tokenEnv,omitempty"`

	// CheckoutDir pins checkouts to a fixed directory. Empty means a
	// fresh temporary directory per run.
	CheckoutDir string `yaml:"checkoutDir,omitempty"`
}

// CommitConfig controls the sync commits driftsync creates.
type CommitConfig struct {
	AuthorName  string `yaml:"authorName,omitempty"`
	AuthorEmail string `yaml:"authorEmail,omitempty"`

	// MessageTemplate is a Go text/template rendered with the run's
	// change counts. Empty selects the built-in template.
	MessageTemplate string `yaml:"messageTemplate,omitempty"`
}

// ArtifactsConfig locates the diff artifact directory.
type ArtifactsConfig struct {
	Dir string `yaml:"dir,omitempty"`
}

// WatchConfig tunes the serve-mode change detector.
type WatchConfig struct {
	// Path is the local resource tree watched with --watch. It must be a
	// different directory from git.checkoutDir: each run clears and
	// re-clones the checkout directory, which would destroy the watches
	// (and every run would retrigger itself).
	Path string `yaml:"path,omitempty"`

	// Debounce coalesces bursts of tree events into one run.
	Debounce Duration `yaml:"debounce,omitempty"`

	// Interval is the periodic full reconciliation cadence; zero disables
	// the timer and runs only on filesystem events.
	Interval Duration `yaml:"interval,omitempty"`
}

// Duration wraps time.Duration so YAML can carry values like "30s".
type Duration time.Duration

// UnmarshalYAML parses Go duration syntax.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	if raw == "" {
		*d = 0
		return nil
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// MarshalYAML renders Go duration syntax.
func (d Duration) MarshalYAML() (interface{}, error) {
	return time.Duration(d).String(), nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

package reconciler

import (
	"strings"

	"driftsync/internal/api"
)

// SourceOfTruth declares which side's content wins on conflict.
type SourceOfTruth string

const (
	SourceTree     SourceOfTruth = "TREE"
	SourceInstance SourceOfTruth = "INSTANCE"
)

// MissingInSource declares the behavior when a resource exists only on the
// non-authoritative side.
type MissingInSource string

const (
	MissingDelete MissingInSource = "DELETE"
	MissingKeep   MissingInSource = "KEEP"
	MissingFail   MissingInSource = "FAIL"
)

// InvalidContent declares the behavior when resource content fails
// structural validation during planning or apply.
type InvalidContent string

const (
	InvalidSkip InvalidContent = "SKIP"
	InvalidWarn InvalidContent = "WARN"
	InvalidFail InvalidContent = "FAIL"
)

// SyncPolicy is the ownership policy for one reconciliation run.
type SyncPolicy struct {
	// SourceOfTruth declares which side wins when content differs.
	SourceOfTruth SourceOfTruth

	// WhenMissingInSource controls resources present only on the
	// non-authoritative side.
	WhenMissingInSource MissingInSource

	// OnInvalidContent controls resources whose content fails structural
	// validation before import.
	OnInvalidContent InvalidContent

	// ProtectedScopes lists namespace prefixes that are exempt from
	// deletion regardless of policy. A scope is protected when it equals an
	// entry exactly or is a dot-separated descendant of one.
	ProtectedScopes []string

	// DryRun computes and records the plan without executing any mutation.
	DryRun bool
}

// Validate checks that every enum field holds a known value, applying
// defaults for empty ones. It is called before any I/O happens.
func (p *SyncPolicy) Validate() error {
	if p.SourceOfTruth == "" {
		p.SourceOfTruth = SourceTree
	}
	if p.WhenMissingInSource == "" {
		p.WhenMissingInSource = MissingKeep
	}
	if p.OnInvalidContent == "" {
		p.OnInvalidContent = InvalidWarn
	}

	switch p.SourceOfTruth {
	case SourceTree, SourceInstance:
	default:
		return api.NewConfigurationError("sourceOfTruth", "must be TREE or INSTANCE")
	}
	switch p.WhenMissingInSource {
	case MissingDelete, MissingKeep, MissingFail:
	default:
		return api.NewConfigurationError("whenMissingInSource", "must be DELETE, KEEP or FAIL")
	}
	switch p.OnInvalidContent {
	case InvalidSkip, InvalidWarn, InvalidFail:
	default:
		return api.NewConfigurationError("onInvalidContent", "must be SKIP, WARN or FAIL")
	}
	return nil
}

// IsProtected reports whether the given scope matches a protected entry
// exactly or as a dot-separated descendant (entry "team.core" protects
// "team.core" and "team.core.batch", but not "team.corebatch").
func (p *SyncPolicy) IsProtected(scope string) bool {
	if scope == "" {
		return false
	}
	for _, prefix := range p.ProtectedScopes {
		if prefix == "" {
			continue
		}
		if scope == prefix || strings.HasPrefix(scope, prefix+".") {
			return true
		}
	}
	return false
}

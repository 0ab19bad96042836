package api

import (
	"errors"
	"fmt"
)

// ConfigurationError indicates that a required configuration field is absent
// or malformed. It is raised during policy validation, before any I/O against
// the tree or the instance happens.
type ConfigurationError struct {
	// Field is the configuration field that failed validation
	// (e.g., "sync.branch", "sync.namespaces").
	Field string

	// Message describes what is wrong with the field.
	Message string
}

// Error implements the error interface for ConfigurationError.
func (e *ConfigurationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("configuration error: %s", e.Message)
	}
	return fmt.Sprintf("configuration error: %s: %s", e.Field, e.Message)
}

// NewConfigurationError creates a new ConfigurationError for the given field.
//
// Args:
//   - field: The configuration field that is invalid
//   - message: Description of the problem
//
// Returns:
//   - *ConfigurationError: A new ConfigurationError instance
func NewConfigurationError(field, message string) *ConfigurationError {
	return &ConfigurationError{Field: field, Message: message}
}

// IsConfiguration checks if an error is a ConfigurationError using error
// unwrapping, supporting wrapped errors.
func IsConfiguration(err error) bool {
	var configErr *ConfigurationError
	return errors.As(err, &configErr)
}

// ResolutionError indicates that the referenced branch or ref could not be
// resolved on the tree side. It is fatal for the run.
type ResolutionError struct {
	// Ref is the branch or revision that could not be resolved.
	Ref string

	// Err is the underlying version-control error, if any.
	Err error
}

// Error implements the error interface for ResolutionError.
func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve ref %q: %v", e.Ref, e.Err)
	}
	return fmt.Sprintf("cannot resolve ref %q", e.Ref)
}

// Unwrap exposes the underlying error for errors.Is/errors.As chains.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// NewResolutionError creates a new ResolutionError for the given ref.
func NewResolutionError(ref string, err error) *ResolutionError {
	return &ResolutionError{Ref: ref, Err: err}
}

// IsResolution checks if an error is a ResolutionError.
func IsResolution(err error) bool {
	var resErr *ResolutionError
	return errors.As(err, &resErr)
}

// ValidationError indicates that resource content failed structural parsing
// during planning or apply. Whether it aborts the run depends on the
// onInvalidContent policy (SKIP continues silently, WARN continues and logs,
// FAIL aborts).
type ValidationError struct {
	// Key identifies the resource whose content is invalid.
	Key string

	// Err is the underlying parse error.
	Err error
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid content for %s: %v", e.Key, e.Err)
}

// Unwrap exposes the underlying error for errors.Is/errors.As chains.
func (e *ValidationError) Unwrap() error {
	return e.Err
}

// NewValidationError creates a new ValidationError for the given resource key.
func NewValidationError(key string, err error) *ValidationError {
	return &ValidationError{Key: key, Err: err}
}

// IsValidation checks if an error is a ValidationError.
func IsValidation(err error) bool {
	var valErr *ValidationError
	return errors.As(err, &valErr)
}

// ConflictError indicates a state divergence that the sync policy refuses to
// resolve automatically: either whenMissingInSource=FAIL found a resource on
// only the non-authoritative side, or a push to the tree was rejected by the
// remote. It is fatal and never retried.
type ConflictError struct {
	// Message describes the conflict.
	Message string

	// Err is the underlying version-control error, if any.
	Err error
}

// Error implements the error interface for ConflictError.
func (e *ConflictError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("conflict: %s: %v", e.Message, e.Err)
	}
	return fmt.Sprintf("conflict: %s", e.Message)
}

// Unwrap exposes the underlying error for errors.Is/errors.As chains.
func (e *ConflictError) Unwrap() error {
	return e.Err
}

// NewConflictError creates a new ConflictError.
func NewConflictError(message string, err error) *ConflictError {
	return &ConflictError{Message: message, Err: err}
}

// IsConflict checks if an error is a ConflictError.
func IsConflict(err error) bool {
	var conflictErr *ConflictError
	return errors.As(err, &conflictErr)
}

// NotFoundError represents a resource not found error with contextual
// information. It is used by the instance store implementations so callers
// can distinguish a missing resource from a transport failure.
type NotFoundError struct {
	// ResourceType categorizes the type of resource that was not found
	// (e.g., "definition", "file", "dashboard").
	ResourceType string

	// ResourceName is the specific identifier of the resource.
	ResourceName string
}

// Error implements the error interface for NotFoundError.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.ResourceType, e.ResourceName)
}

// NewNotFoundError creates a new NotFoundError with the specified resource
// type and name.
func NewNotFoundError(resourceType, resourceName string) *NotFoundError {
	return &NotFoundError{ResourceType: resourceType, ResourceName: resourceName}
}

// IsNotFound checks if an error is a NotFoundError using error unwrapping.
func IsNotFound(err error) bool {
	var notFoundErr *NotFoundError
	return errors.As(err, &notFoundErr)
}

// Package api defines the shared error taxonomy of driftsync.
//
// Every fatal condition a reconciliation run can hit maps to exactly one of
// the typed errors in this package:
//
//   - ConfigurationError: a required policy field is absent; raised before
//     any I/O.
//   - ResolutionError: the requested branch/ref does not exist on the tree
//     side.
//   - ValidationError: resource content failed structural parsing; fatal
//     only when the onInvalidContent policy says FAIL.
//   - ConflictError: the policy refuses to resolve a divergence
//     (whenMissingInSource=FAIL) or the remote rejected a push.
//   - NotFoundError: a single resource is absent from the instance store.
//
// Callers are expected to use the Is* helpers rather than type-asserting,
// so that wrapped errors keep their classification.
package api

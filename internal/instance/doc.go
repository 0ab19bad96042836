// Package instance implements the instance side of a reconciliation run:
// access to the live orchestration engine's resource store.
//
// Two conforming implementations exist:
//
//   - APIClient talks to a real instance over its HTTP resource API, with
//     bearer-token auth and a TLS transport that is memoized per
//     configuration fingerprint (a rotated CA bundle reconfigures the
//     transport instead of being skipped).
//   - MemoryStore holds resources in memory for tests and for
//     `serve --standalone`.
//
// Both satisfy reconciler.InstanceStore.
package instance

// Package transport provides the HTTP collaborator injected into the fetch
// pipeline. The core packages never open network connections themselves;
// they issue requests through the Doer interface, so tests can substitute a
// scripted implementation.
package transport

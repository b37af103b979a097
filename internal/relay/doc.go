// Package relay provides an HTTP implementation of the domain.RelayClient
// interface.
//
// The relay (see the server subpackage) is a store-and-forward service for
// ciphertext envelopes and public pre-key bundles. Supported operations:
//   - Publishing our pre-keys.
//   - Fetching a peer's pre-key bundle.
//   - Sending envelopes to a peer.
//   - Fetching and acknowledging pending envelopes.
//
// All requests are JSON over HTTP and accept a context for cancellation and
// deadlines. Non-2xx statuses are returned as errors with the method, path
// and status text; 404 also matches ErrNotFound.
package relay

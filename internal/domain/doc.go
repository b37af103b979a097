// Package domain defines core data models and interfaces shared across the app.
// It contains plain types (keys, bundles, addresses, envelopes), the protocol
// error kinds and contracts (store, service and relay interfaces) only.
package domain

// Package identity creates the local identity and registration id and
// reports its fingerprint.
//
// It enforces the passphrase policy and seals the identity through the
// domain.LocalIdentityStore.
package identity

// Package ratchet holds the key derivation steps of the double ratchet.
//
// A RootKey absorbs one ECDH output per ratchet step and yields a new root
// plus a ChainKey. A ChainKey yields MessageKeys for its index and, through
// Next, the following chain key. All steps are one-way.
package ratchet

package store

import (
	"errors"

	"whisper/internal/domain"
)

var (
	// ErrLocked is returned when the local identity is needed before Unlock.
	ErrLocked = errors.New("identity is locked; unlock it with the passphrase first")
	// ErrNoIdentity is returned when no local identity was ever saved.
	ErrNoIdentity = errors.New("no local identity; run init first")
)

// localIdentity is what the passphrase envelope protects.
type localIdentity struct {
	Identity       domain.Identity `json:"identity"`
	RegistrationID uint32          `json:"registration_id"`
}

// trustOnFirstUse accepts any key for an address we have never seen and
// afterwards only the key we saw first. It applies to both directions.
func trustOnFirstUse(stored domain.IdentityKey, found bool, key domain.IdentityKey) bool {
	return !found || stored.Equal(key)
}

// Compile-time assertions.
var (
	_ domain.Store        = (*FileStore)(nil)
	_ domain.AccountStore = (*FileStore)(nil)
	_ domain.Store        = (*MemoryStore)(nil)
	_ domain.Store        = (*RedisStore)(nil)
)

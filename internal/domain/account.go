package domain

// AccountProfile remembers which username this device registered on a relay.
type AccountProfile struct {
	RelayURL       string   `json:"relay_url"`
	Username       Username `json:"username"`
	DeviceID       uint32   `json:"device_id"`
	RegistrationID uint32   `json:"registration_id"`
	RegisteredAt   int64    `json:"registered_at"`
}

// AccountStore persists account profiles per relay.
type AccountStore interface {
	SaveAccountProfile(profile AccountProfile) error
	LoadAccountProfile(relayURL string) (AccountProfile, bool, error)
}

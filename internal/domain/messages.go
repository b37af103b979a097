package domain

// EnvelopeType tells the receiver how to parse Body.
type EnvelopeType int

const (
	// EnvelopeWhisper carries a serialized WhisperMessage.
	EnvelopeWhisper EnvelopeType = 2
	// EnvelopePreKey carries a serialized PreKeyWhisperMessage.
	EnvelopePreKey EnvelopeType = 3
)

// Envelope is the wire-format message you post/get from the relay.
type Envelope struct {
	ID           string       `json:"id,omitempty"`
	From         Username     `json:"from"`
	SourceDevice uint32       `json:"source_device"`
	To           Username     `json:"to"`
	Type         EnvelopeType `json:"type"`
	Body         []byte       `json:"body"`
	Timestamp    int64        `json:"timestamp"`
}

// DecryptedMessage is what MessageService.ReceiveMessages returns.
type DecryptedMessage struct {
	ID        string   `json:"id"`
	From      Address  `json:"from"`
	Plaintext []byte   `json:"plaintext"`
	Timestamp int64    `json:"timestamp"`
	To        Username `json:"to"`
}

package state

import "whisper/internal/domain"

// MaxPreviousStates bounds how many archived states a record keeps.
const MaxPreviousStates = 40

// SessionRecord holds the current state for one address plus archived states
// that may still decrypt late messages, most recent first.
type SessionRecord struct {
	current  *SessionState
	previous []*SessionState
	fresh    bool
}

// NewSessionRecord returns an empty record. Only such a record is fresh.
func NewSessionRecord() *SessionRecord {
	return &SessionRecord{current: NewSessionState(), fresh: true}
}

// NewSessionRecordFromState wraps an existing state.
func NewSessionRecordFromState(st *SessionState) *SessionRecord {
	return &SessionRecord{current: st}
}

// IsFresh reports whether the record was created in memory and never loaded.
func (r *SessionRecord) IsFresh() bool { return r.fresh }

// SessionState returns the current state.
func (r *SessionRecord) SessionState() *SessionState { return r.current }

// PreviousStates returns the archived states, most recent first.
func (r *SessionRecord) PreviousStates() []*SessionState { return r.previous }

// HasSessionState reports whether the current or an archived state was
// created by the handshake with the given version and base key.
func (r *SessionRecord) HasSessionState(version uint8, aliceBaseKey domain.X25519Public) bool {
	match := func(s *SessionState) bool {
		return s.Version() == version && s.AliceBaseKey().Equal(aliceBaseKey)
	}
	if match(r.current) {
		return true
	}
	for _, s := range r.previous {
		if match(s) {
			return true
		}
	}
	return false
}

// ArchiveCurrentState moves the current state to the front of the archive
// and starts over with an empty one.
func (r *SessionRecord) ArchiveCurrentState() {
	r.PromoteState(NewSessionState())
}

// PromoteState makes st current and archives the old current state.
func (r *SessionRecord) PromoteState(st *SessionState) {
	r.previous = append([]*SessionState{r.current}, r.previous...)
	r.current = st
	if len(r.previous) > MaxPreviousStates {
		r.previous = r.previous[:MaxPreviousStates]
	}
}

// PromotePreviousState replaces archived state i with st and makes it
// current.
func (r *SessionRecord) PromotePreviousState(i int, st *SessionState) {
	r.previous = append(r.previous[:i:i], r.previous[i+1:]...)
	r.PromoteState(st)
}

// SetState replaces the current state without archiving.
func (r *SessionRecord) SetState(st *SessionState) { r.current = st }

// Clone returns a deep copy of the record.
func (r *SessionRecord) Clone() *SessionRecord {
	c := &SessionRecord{current: r.current.Clone(), fresh: r.fresh}
	c.previous = make([]*SessionState, len(r.previous))
	for i, s := range r.previous {
		c.previous[i] = s.Clone()
	}
	return c
}

package session

import "sync/atomic"

// Holder keeps the current session for a process. Readers always see a
// complete Session; updates replace the whole value.
type Holder struct {
	current atomic.Pointer[Session]
}

// NewHolder returns a Holder initialised to s.
func NewHolder(s Session) *Holder {
	h := &Holder{}
	h.Replace(s)
	return h
}

// Load returns the current session, or the anonymous session if none was
// set.
func (h *Holder) Load() Session {
	if s := h.current.Load(); s != nil {
		return *s
	}
	return Anonymous()
}

// Replace swaps in s.
func (h *Holder) Replace(s Session) {
	h.current.Store(&s)
}

// Clear resets the holder to the anonymous session.
func (h *Holder) Clear() {
	h.Replace(Anonymous())
}

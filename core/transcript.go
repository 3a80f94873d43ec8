package core

import (
	"encoding/json"
	"sync"
)

// Transcript is the append-only message log owned by one orchestration run.
// It is passed explicitly to every agent of a turn; agents append to it and
// read snapshots, but can never rewrite or drop earlier messages.
type Transcript struct {
	mu       sync.RWMutex
	messages []Content
}

// NewTranscript creates a transcript seeded with prior messages (copied).
func NewTranscript(prior ...Content) *Transcript {
	msgs := make([]Content, len(prior))
	copy(msgs, prior)
	return &Transcript{messages: msgs}
}

// Append adds messages to the end of the log.
func (t *Transcript) Append(msgs ...Content) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = append(t.messages, msgs...)
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.messages)
}

// Messages returns a defensive copy of the full log.
func (t *Transcript) Messages() []Content {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Content, len(t.messages))
	copy(out, t.messages)
	return out
}

// Since returns a copy of the messages appended at or after index i.
func (t *Transcript) Since(i int) []Content {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i < 0 {
		i = 0
	}
	if i >= len(t.messages) {
		return nil
	}
	out := make([]Content, len(t.messages)-i)
	copy(out, t.messages[i:])
	return out
}

// Last returns the final message, if any.
func (t *Transcript) Last() (Content, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.messages) == 0 {
		return Content{}, false
	}
	return t.messages[len(t.messages)-1], true
}

// LastText returns the text of the last message whose role matches and has text.
func (t *Transcript) LastText(role string) string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for i := len(t.messages) - 1; i >= 0; i-- {
		m := t.messages[i]
		if m.Role != role {
			continue
		}
		if txt := m.Text(); txt != "" {
			return txt
		}
	}
	return ""
}

// MarshalJSON encodes the log as a plain message array.
func (t *Transcript) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Messages())
}

// UnmarshalJSON replaces the log with the decoded message array.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	var msgs []Content
	if err := json.Unmarshal(data, &msgs); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.messages = msgs
	return nil
}

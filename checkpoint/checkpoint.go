// Package checkpoint persists conversation threads between turns. A thread is
// keyed by its ticket id and carries the transcript plus the live
// classification and retrieval of the current topic segment.
package checkpoint

import (
	"context"
	"errors"
	"time"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/core"
)

// ErrThreadNotFound is returned by Get for an unknown thread id.
var ErrThreadNotFound = errors.New("thread not found")

// Thread is the durable state of one conversation.
type Thread struct {
	ID             string                      `json:"id"`
	Transcript     *core.Transcript            `json:"transcript"`
	Classification *agent.ClassificationResult `json:"classification,omitempty"`
	Retrieval      *agent.RetrievalResult      `json:"retrieval,omitempty"`
	Turns          int                         `json:"turns"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

// NewThread creates an empty thread.
func NewThread(id string, now time.Time) *Thread {
	return &Thread{ID: id, Transcript: core.NewTranscript(), CreatedAt: now, UpdatedAt: now}
}

// Clone returns a copy that shares no mutable state with t.
func (t *Thread) Clone() *Thread {
	c := *t
	if t.Transcript != nil {
		c.Transcript = core.NewTranscript(t.Transcript.Messages()...)
	} else {
		c.Transcript = core.NewTranscript()
	}
	if t.Classification != nil {
		cl := *t.Classification
		c.Classification = &cl
	}
	if t.Retrieval != nil {
		r := *t.Retrieval
		r.Articles = append([]agent.RetrievedArticle(nil), t.Retrieval.Articles...)
		c.Retrieval = &r
	}
	return &c
}

// Store loads and saves threads. Implementations must be safe for
// concurrent use.
type Store interface {
	Get(ctx context.Context, id string) (*Thread, error)
	Put(ctx context.Context, t *Thread) error
	Delete(ctx context.Context, id string) error
}

// Package transcript accumulates the session's finalized utterances. User
// turns carry the source language, assistant turns the target language.
// Entries live in memory for the session's lifetime; a Postgres store can
// be attached to persist them as they arrive.
package transcript

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lingostream/lingostream/pkg/session/frames"
)

// Aggregator appends transcript batches in arrival order and logs each
// entry with its role and resolved language.
type Aggregator struct {
	sessionID      string
	sourceLanguage string
	targetLanguage string
	logger         *slog.Logger
	store          *Store

	mu       sync.Mutex
	messages []frames.TranscriptMessage
	start    time.Time
}

// NewAggregator builds an aggregator for one session. store may be nil, in
// which case entries are kept in memory only.
func NewAggregator(sessionID, sourceLanguage, targetLanguage string, store *Store, logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregator{
		sessionID:      sessionID,
		sourceLanguage: sourceLanguage,
		targetLanguage: targetLanguage,
		logger:         logger,
		store:          store,
		start:          time.Now(),
	}
}

// OnUpdate appends a batch of finalized turns. Timestamps are clamped so the
// transcript stays non-decreasing even if a producer reports a stale offset.
// A store failure is logged and does not affect the in-memory transcript.
func (a *Aggregator) OnUpdate(ctx context.Context, batch []frames.TranscriptMessage) {
	if len(batch) == 0 {
		return
	}
	a.mu.Lock()
	last := time.Duration(0)
	if n := len(a.messages); n > 0 {
		last = a.messages[n-1].Timestamp
	}
	appended := make([]frames.TranscriptMessage, 0, len(batch))
	for _, m := range batch {
		if m.Timestamp == 0 {
			m.Timestamp = time.Since(a.start)
		}
		if m.Timestamp < last {
			m.Timestamp = last
		}
		last = m.Timestamp
		a.messages = append(a.messages, m)
		appended = append(appended, m)
	}
	a.mu.Unlock()

	for _, m := range appended {
		a.logger.Info("transcript",
			"offset", m.Timestamp.Round(time.Millisecond),
			"role", string(m.Role),
			"language", a.language(m.Role),
			"text", m.Text)
	}
	if a.store != nil {
		if err := a.store.Append(ctx, a.sessionID, a.language, appended); err != nil {
			a.logger.Error("transcript persist failed", "error", err)
		}
	}
}

// Messages returns a snapshot of the transcript so far.
func (a *Aggregator) Messages() []frames.TranscriptMessage {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]frames.TranscriptMessage, len(a.messages))
	copy(out, a.messages)
	return out
}

func (a *Aggregator) language(role frames.Role) string {
	if role == frames.RoleAssistant {
		return a.targetLanguage
	}
	return a.sourceLanguage
}

package backend

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// ScriptedRecognizer finalizes one scripted utterance per audio chunk, in
// order. Once the script is exhausted it reports non-final results.
type ScriptedRecognizer struct {
	mu     sync.Mutex
	script []string
	next   int
	start  time.Time
}

func NewScriptedRecognizer(script ...string) *ScriptedRecognizer {
	return &ScriptedRecognizer{script: script, start: time.Now()}
}

func (r *ScriptedRecognizer) Recognize(_ context.Context, _ []byte) (Recognition, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.next >= len(r.script) {
		return Recognition{}, nil
	}
	text := r.script[r.next]
	r.next++
	return Recognition{Text: text, Final: true, Timestamp: time.Since(r.start)}, nil
}

// StaticSynthesizer returns a fixed-rate placeholder buffer whose length is
// proportional to the text, so downstream timing stays plausible.
type StaticSynthesizer struct {
	BytesPerRune int
}

func (s *StaticSynthesizer) Synthesize(_ context.Context, text string) ([]byte, error) {
	per := s.BytesPerRune
	if per <= 0 {
		per = 2
	}
	n := len([]rune(text)) * per
	if n == 0 {
		return nil, fmt.Errorf("backend: synthesize empty text")
	}
	return make([]byte, n), nil
}

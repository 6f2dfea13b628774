// Package backend defines the speech capabilities a session depends on and
// the pipeline stages that bind them into the frame flow. Real providers
// implement Recognizer and Synthesizer; the stub implementations keep the
// session runnable without external services.
package backend

import (
	"context"
	"time"
)

// Recognition is the recognizer's verdict on one audio chunk. Text is only
// meaningful when Final is true.
type Recognition struct {
	Text      string
	Final     bool
	Timestamp time.Duration
}

// Recognizer converts caller audio in the source language into text.
type Recognizer interface {
	Recognize(ctx context.Context, audio []byte) (Recognition, error)
}

// Synthesizer renders translated text as speech in the target language.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Package frames defines the units of data and control that flow through a
// translation session's pipeline: audio in, recognized speech, translation
// requests and results, synthesized audio out, plus the interrupt and end
// control signals.
package frames

import "time"

// Frame is an atomic unit flowing through the pipeline.
type Frame interface {
	// Kind returns the frame type string used in logs.
	Kind() string
}

// AudioFrame carries one chunk of caller audio from the transport.
type AudioFrame struct {
	Data       []byte
	SampleRate int
}

func (AudioFrame) Kind() string { return "audio" }

// RecognizedFrame is emitted when the recognizer finalizes an utterance in
// the source language.
type RecognizedFrame struct {
	Text      string
	Timestamp time.Duration
}

func (RecognizedFrame) Kind() string { return "recognized" }

// TranslationRequestFrame pairs the session's fixed translation instruction
// with one recognized utterance. Ephemeral: consumed by the translation
// backend, never persisted.
type TranslationRequestFrame struct {
	Instruction string
	Text        string
}

func (TranslationRequestFrame) Kind() string { return "translation_request" }

// TranslatedFrame carries the backend's translation of one utterance.
type TranslatedFrame struct {
	Text      string
	Timestamp time.Duration
}

func (TranslatedFrame) Kind() string { return "translated" }

// SynthesizedFrame carries synthesized speech for the translated text.
type SynthesizedFrame struct {
	Audio      []byte
	SampleRate int
}

func (SynthesizedFrame) Kind() string { return "synthesized" }

// Role identifies which party a transcript entry belongs to.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// TranscriptMessage is one finalized utterance turn. Immutable once created.
type TranscriptMessage struct {
	Role      Role
	Text      string
	Timestamp time.Duration
}

// TranscriptUpdateFrame carries a batch of newly finalized turns.
type TranscriptUpdateFrame struct {
	Messages []TranscriptMessage
}

func (TranscriptUpdateFrame) Kind() string { return "transcript_update" }

// InterruptFrame cancels in-flight generation and synthesis. Stages that
// buffer work drop it when this frame passes through.
type InterruptFrame struct{}

func (InterruptFrame) Kind() string { return "interrupt" }

// EndFrame asks the pipeline to flush and shut down cleanly. It is always
// the last frame a session processes.
type EndFrame struct{}

func (EndFrame) Kind() string { return "end" }

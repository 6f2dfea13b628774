package backend

import (
	"context"
	"log/slog"

	"github.com/lingostream/lingostream/pkg/session/frames"
	"github.com/lingostream/lingostream/pkg/session/pipeline"
)

// RecognizerStage feeds audio frames to a recognizer and emits a
// RecognizedFrame for each finalized utterance. Non-final results are
// dropped; recognition errors are logged and the chunk is skipped.
type RecognizerStage struct {
	rec    Recognizer
	logger *slog.Logger
}

func NewRecognizerStage(r Recognizer, logger *slog.Logger) *RecognizerStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecognizerStage{rec: r, logger: logger}
}

func (s *RecognizerStage) Name() string { return "recognizer" }

func (s *RecognizerStage) Process(ctx context.Context, f frames.Frame, push pipeline.Push) error {
	a, ok := f.(frames.AudioFrame)
	if !ok {
		pipeline.Passthrough(f, push)
		return nil
	}
	res, err := s.rec.Recognize(ctx, a.Data)
	if err != nil {
		s.logger.Error("recognition failed", "error", err)
		return nil
	}
	if !res.Final || res.Text == "" {
		return nil
	}
	push(frames.RecognizedFrame{Text: res.Text, Timestamp: res.Timestamp})
	return nil
}

// SynthesizerStage renders translated text as audio. Synthesis errors are
// logged and the utterance is skipped.
type SynthesizerStage struct {
	syn        Synthesizer
	sampleRate int
	logger     *slog.Logger
}

func NewSynthesizerStage(s Synthesizer, sampleRate int, logger *slog.Logger) *SynthesizerStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &SynthesizerStage{syn: s, sampleRate: sampleRate, logger: logger}
}

func (s *SynthesizerStage) Name() string { return "synthesizer" }

func (s *SynthesizerStage) Process(ctx context.Context, f frames.Frame, push pipeline.Push) error {
	tr, ok := f.(frames.TranslatedFrame)
	if !ok {
		pipeline.Passthrough(f, push)
		return nil
	}
	audio, err := s.syn.Synthesize(ctx, tr.Text)
	if err != nil {
		s.logger.Error("synthesis failed", "error", err)
		return nil
	}
	push(f)
	push(frames.SynthesizedFrame{Audio: audio, SampleRate: s.sampleRate})
	return nil
}

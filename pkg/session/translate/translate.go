// Package translate maps recognized utterances to translation requests. The
// stage is stateless beyond its two language labels: every finalized
// utterance produces exactly one request carrying the session's fixed
// instruction and the utterance text verbatim.
package translate

import (
	"context"
	"fmt"

	"github.com/lingostream/lingostream/pkg/session/frames"
	"github.com/lingostream/lingostream/pkg/session/pipeline"
)

// Stage rewrites RecognizedFrames into TranslationRequestFrames and passes
// every other frame through unchanged.
type Stage struct {
	instruction string
}

// NewStage builds a translation stage for one source/target language pair.
// The instruction restricts the downstream model to translation only.
func NewStage(sourceLanguage, targetLanguage string) *Stage {
	return &Stage{
		instruction: fmt.Sprintf(
			"You will be provided with a sentence in %s, and your task is to only translate it into %s.",
			sourceLanguage, targetLanguage),
	}
}

func (s *Stage) Name() string { return "translate" }

// Instruction returns the fixed per-session translation instruction.
func (s *Stage) Instruction() string { return s.instruction }

func (s *Stage) Process(_ context.Context, f frames.Frame, push pipeline.Push) error {
	r, ok := f.(frames.RecognizedFrame)
	if !ok {
		pipeline.Passthrough(f, push)
		return nil
	}
	push(frames.TranslationRequestFrame{
		Instruction: s.instruction,
		Text:        r.Text,
	})
	return nil
}

package llm

import (
	"context"
	"log/slog"

	"github.com/lingostream/lingostream/pkg/session/frames"
	"github.com/lingostream/lingostream/pkg/session/pipeline"
)

// Stage resolves TranslationRequestFrames through a Translator and emits
// TranslatedFrames. An interrupt frame drops any request still pending in
// this stage; translation failures are logged and the utterance is skipped
// so the session keeps flowing.
type Stage struct {
	translator Translator
	logger     *slog.Logger
}

// NewStage wraps a translator as a pipeline stage.
func NewStage(t Translator, logger *slog.Logger) *Stage {
	if logger == nil {
		logger = slog.Default()
	}
	return &Stage{translator: t, logger: logger}
}

func (s *Stage) Name() string { return "llm" }

func (s *Stage) Process(ctx context.Context, f frames.Frame, push pipeline.Push) error {
	req, ok := f.(frames.TranslationRequestFrame)
	if !ok {
		pipeline.Passthrough(f, push)
		return nil
	}
	out, err := s.translator.Translate(ctx, req.Instruction, req.Text)
	if err != nil {
		s.logger.Error("translation failed", "error", err)
		return nil
	}
	push(frames.TranslatedFrame{Text: out})
	return nil
}

package transport

import (
	"context"
	"log/slog"

	"github.com/lingostream/lingostream/pkg/session/frames"
	"github.com/lingostream/lingostream/pkg/session/pipeline"
)

// OutStage writes synthesized audio back to the connected peer. Send
// failures are logged and dropped so a dead connection never stalls the
// pipeline's shutdown.
type OutStage struct {
	server *Server
	logger *slog.Logger
}

func NewOutStage(server *Server, logger *slog.Logger) *OutStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OutStage{server: server, logger: logger}
}

func (s *OutStage) Name() string { return "transport_out" }

func (s *OutStage) Process(_ context.Context, f frames.Frame, push pipeline.Push) error {
	syn, ok := f.(frames.SynthesizedFrame)
	if !ok {
		pipeline.Passthrough(f, push)
		return nil
	}
	if err := s.server.SendAudio(syn.Audio); err != nil {
		s.logger.Warn("audio send failed", "error", err)
	}
	return nil
}

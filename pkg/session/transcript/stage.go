package transcript

import (
	"context"

	"github.com/lingostream/lingostream/pkg/session/frames"
	"github.com/lingostream/lingostream/pkg/session/pipeline"
)

// Stage captures one side of the conversation as transcript entries. The
// user stage records recognized utterances, the assistant stage records
// translations. Each capture forwards the triggering frame, hands the batch
// to the aggregator, and emits a TranscriptUpdateFrame downstream.
type Stage struct {
	role frames.Role
	agg  *Aggregator
}

// NewUserStage records recognized caller utterances.
func NewUserStage(agg *Aggregator) *Stage {
	return &Stage{role: frames.RoleUser, agg: agg}
}

// NewAssistantStage records translated responses.
func NewAssistantStage(agg *Aggregator) *Stage {
	return &Stage{role: frames.RoleAssistant, agg: agg}
}

func (s *Stage) Name() string { return "transcript_" + string(s.role) }

func (s *Stage) Process(ctx context.Context, f frames.Frame, push pipeline.Push) error {
	var msg frames.TranscriptMessage
	switch s.role {
	case frames.RoleUser:
		r, ok := f.(frames.RecognizedFrame)
		if !ok {
			pipeline.Passthrough(f, push)
			return nil
		}
		msg = frames.TranscriptMessage{Role: frames.RoleUser, Text: r.Text, Timestamp: r.Timestamp}
	case frames.RoleAssistant:
		tr, ok := f.(frames.TranslatedFrame)
		if !ok {
			pipeline.Passthrough(f, push)
			return nil
		}
		msg = frames.TranscriptMessage{Role: frames.RoleAssistant, Text: tr.Text, Timestamp: tr.Timestamp}
	default:
		pipeline.Passthrough(f, push)
		return nil
	}
	batch := []frames.TranscriptMessage{msg}
	s.agg.OnUpdate(ctx, batch)
	push(f)
	push(frames.TranscriptUpdateFrame{Messages: batch})
	return nil
}

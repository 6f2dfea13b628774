package llm

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/lingostream/lingostream/pkg/session/frames"
)

type fakeTranslator struct {
	out  string
	err  error
	got  string
	inst string
}

func (f *fakeTranslator) Translate(_ context.Context, instruction, text string) (string, error) {
	f.inst = instruction
	f.got = text
	return f.out, f.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestStageTranslatesRequests(t *testing.T) {
	ft := &fakeTranslator{out: "How are you?"}
	s := NewStage(ft, discardLogger())

	var out []frames.Frame
	err := s.Process(context.Background(), frames.TranslationRequestFrame{
		Instruction: "translate it",
		Text:        "আপনি কেমন আছেন?",
	}, func(f frames.Frame) { out = append(out, f) })
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if ft.inst != "translate it" || ft.got != "আপনি কেমন আছেন?" {
		t.Fatalf("translator called with (%q, %q)", ft.inst, ft.got)
	}
	if len(out) != 1 {
		t.Fatalf("got %d frames, want 1", len(out))
	}
	if tr, ok := out[0].(frames.TranslatedFrame); !ok || tr.Text != "How are you?" {
		t.Fatalf("got %#v", out[0])
	}
}

func TestStageSkipsUtteranceOnFailure(t *testing.T) {
	s := NewStage(&fakeTranslator{err: errors.New("quota")}, discardLogger())

	var out []frames.Frame
	err := s.Process(context.Background(), frames.TranslationRequestFrame{Text: "x"},
		func(f frames.Frame) { out = append(out, f) })
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("got %d frames, want 0", len(out))
	}
}

func TestStagePassesControlFrames(t *testing.T) {
	ft := &fakeTranslator{out: "unused"}
	s := NewStage(ft, discardLogger())

	var out []frames.Frame
	if err := s.Process(context.Background(), frames.EndFrame{},
		func(f frames.Frame) { out = append(out, f) }); err != nil {
		t.Fatalf("Process: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("got %d frames, want 1", len(out))
	}
	if _, ok := out[0].(frames.EndFrame); !ok {
		t.Fatalf("got %#v, want EndFrame", out[0])
	}
	if ft.got != "" {
		t.Fatal("translator invoked for a control frame")
	}
}

// Package llm resolves translation requests against a language model. The
// Translator interface keeps the pipeline testable; GeminiTranslator is the
// production implementation.
package llm

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

// Translator turns a translation request into translated text.
type Translator interface {
	Translate(ctx context.Context, instruction, text string) (string, error)
}

// GeminiTranslator calls the Gemini API with the session's translation
// instruction as the system prompt and the utterance as the sole user turn.
type GeminiTranslator struct {
	client *genai.Client
	model  string
}

// DefaultModel is used when no model is configured.
const DefaultModel = "gemini-2.0-flash"

// NewGeminiTranslator builds a translator against the Gemini API backend.
func NewGeminiTranslator(ctx context.Context, apiKey, model string) (*GeminiTranslator, error) {
	if apiKey == "" {
		return nil, errors.New("llm: api key is empty")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("llm: create client: %w", err)
	}
	return &GeminiTranslator{client: client, model: model}, nil
}

func (g *GeminiTranslator) Translate(ctx context.Context, instruction, text string) (string, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
	})
	if err != nil {
		return "", fmt.Errorf("llm: generate: %w", err)
	}
	out := resp.Text()
	if out == "" {
		return "", errors.New("llm: empty response")
	}
	return out, nil
}

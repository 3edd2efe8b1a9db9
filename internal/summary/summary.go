// Package summary produces AI summaries of patient history. It is best-effort:
// failures come back as readable text rather than errors.
package summary

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"github.com/rs/zerolog"
	"google.golang.org/api/option"
)

const (
	DefaultModel = "gemini-1.5-flash"

	MsgMissingKey = "AI Service Unavailable: API Key missing."
	MsgEmpty      = "No summary generated (Empty Response)."
)

const promptTemplate = `You are an expert medical assistant. Analyze the following patient medical history and
provide a concise, professional summary for a doctor.
Highlight chronic conditions, recent treatments, and recurring patterns.

Patient History:
%s`

// Summarizer turns free text into a short summary. It never fails; problems
// are described in the returned string.
type Summarizer interface {
	Summarize(ctx context.Context, text string) string
}

type generator interface {
	GenerateContent(ctx context.Context, parts ...genai.Part) (*genai.GenerateContentResponse, error)
}

type Gemini struct {
	client *genai.Client
	model  generator
	logger zerolog.Logger
}

// NewGemini returns a summarizer that reports a missing key on every call
// when apiKey is empty.
func NewGemini(ctx context.Context, apiKey, modelID string, logger zerolog.Logger) (*Gemini, error) {
	g := &Gemini{logger: logger}
	if strings.TrimSpace(apiKey) == "" {
		return g, nil
	}
	if strings.TrimSpace(modelID) == "" {
		modelID = DefaultModel
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("summary: create gemini client: %w", err)
	}
	g.client = client
	g.model = client.GenerativeModel(modelID)
	return g, nil
}

func (g *Gemini) Summarize(ctx context.Context, text string) string {
	if g.model == nil {
		g.logger.Warn().Msg("gemini api key missing")
		return MsgMissingKey
	}

	resp, err := g.model.GenerateContent(ctx, genai.Text(fmt.Sprintf(promptTemplate, text)))
	if err != nil {
		g.logger.Error().Err(err).Msg("gemini request failed")
		return fmt.Sprintf("AI System Error: %v", err)
	}

	out := strings.TrimSpace(responseText(resp))
	if out == "" {
		return MsgEmpty
	}
	return out
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	c := resp.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, part := range c.Content.Parts {
		if t, ok := part.(genai.Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

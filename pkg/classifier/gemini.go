package classifier

import (
	"context"
	"fmt"

	genai "google.golang.org/genai"

	"github.com/aretw0/triage/pkg/domain"
)

// DefaultGeminiModel is used when no model is configured.
const DefaultGeminiModel = "gemini-2.5-flash"

// ContentGenerator is the slice of the genai Models API the classifier needs.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// Gemini classifies with a Gemini model in JSON mode.
type Gemini struct {
	models ContentGenerator
	model  string
	prompt string
}

// NewGemini creates a client for the Gemini API. An empty apiKey lets the
// genai client read GEMINI_API_KEY / GOOGLE_API_KEY from the environment.
func NewGemini(ctx context.Context, apiKey, model string, tags []string) (*Gemini, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey, Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return NewGeminiWithGenerator(cli.Models, model, tags), nil
}

// NewGeminiWithGenerator wires an existing generator.
func NewGeminiWithGenerator(models ContentGenerator, model string, tags []string) *Gemini {
	if model == "" {
		model = DefaultGeminiModel
	}
	return &Gemini{models: models, model: model, prompt: instructions(tags)}
}

func (g *Gemini) Name() string { return "gemini:" + g.model }

func (g *Gemini) Classify(ctx context.Context, utterance string) (domain.Classification, error) {
	full := g.prompt + "\n\nMessage: " + utterance
	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{Parts: []*genai.Part{{Text: full}}}},
		&genai.GenerateContentConfig{ResponseMIMEType: "application/json"},
	)
	if err != nil {
		return domain.Classification{}, fmt.Errorf("%w: %v", domain.ErrClassifierUnavailable, err)
	}
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0 {
		return domain.Classification{}, fmt.Errorf("%w: empty candidate", domain.ErrClassifierUnavailable)
	}
	return parseReply(resp.Candidates[0].Content.Parts[0].Text)
}

package brain

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/aiox-platform/mentionbot/internal/config"
)

// EmbeddingDimensions matches the vector column of the memories table.
const EmbeddingDimensions = 768

var ErrNoModels = errors.New("no generation models configured")

type generateFunc func(ctx context.Context, model, prompt string, cfg *genai.GenerateContentConfig) (string, error)

type embedFunc func(ctx context.Context, model, text string, cfg *genai.EmbedContentConfig) ([]float32, error)

// Gemini generates post text and embeddings with the Gemini API. Models are
// tried in order; quota and missing-model errors fall through to the next.
type Gemini struct {
	models         []string
	embeddingModel string
	persona        string

	generate generateFunc
	embed    embedFunc
}

// NewGemini creates a Gemini client from the LLM settings.
func NewGemini(ctx context.Context, cfg config.LLMConfig) (*Gemini, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm api key is required")
	}
	if len(cfg.Models) == 0 {
		return nil, ErrNoModels
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating genai client: %w", err)
	}

	g := &Gemini{
		models:         cfg.Models,
		embeddingModel: cfg.EmbeddingModel,
		persona:        cfg.Persona,
	}
	g.generate = func(ctx context.Context, model, prompt string, gc *genai.GenerateContentConfig) (string, error) {
		result, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), gc)
		if err != nil {
			return "", err
		}
		return firstText(result), nil
	}
	g.embed = func(ctx context.Context, model, text string, ec *genai.EmbedContentConfig) ([]float32, error) {
		contents := []*genai.Content{genai.NewContentFromText(text, genai.RoleUser)}
		result, err := client.Models.EmbedContent(ctx, model, contents, ec)
		if err != nil {
			return nil, err
		}
		if result == nil || len(result.Embeddings) == 0 {
			return nil, fmt.Errorf("no embeddings returned")
		}
		return result.Embeddings[0].Values, nil
	}

	slog.Info("brain: gemini ready", "models", cfg.Models, "embedding_model", cfg.EmbeddingModel)
	return g, nil
}

// Generate returns post text for prompt. additionalContext is passed as
// background the model should draw on but not repeat verbatim.
func (g *Gemini) Generate(ctx context.Context, prompt, additionalContext string) (string, error) {
	if len(g.models) == 0 {
		return "", ErrNoModels
	}

	var gc *genai.GenerateContentConfig
	if g.persona != "" {
		gc = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(g.persona, genai.RoleUser),
		}
	}
	full := buildPrompt(prompt, additionalContext)

	var lastErr error
	for _, model := range g.models {
		text, err := g.generate(ctx, model, full, gc)
		if err != nil {
			if shouldFallback(err) {
				slog.Warn("brain: model unavailable, trying next", "model", model, "error", err)
				lastErr = err
				continue
			}
			return "", fmt.Errorf("generating with %s: %w", model, err)
		}

		text = cleanReply(text)
		if text == "" {
			lastErr = fmt.Errorf("%s returned no text", model)
			continue
		}
		return text, nil
	}
	return "", fmt.Errorf("all models failed: %w", lastErr)
}

// Embed returns a query embedding for text.
func (g *Gemini) Embed(ctx context.Context, text string) ([]float32, error) {
	dims := int32(EmbeddingDimensions)
	vec, err := g.embed(ctx, g.embeddingModel, text, &genai.EmbedContentConfig{
		TaskType:             "RETRIEVAL_QUERY",
		OutputDimensionality: &dims,
	})
	if err != nil {
		return nil, fmt.Errorf("embedding with %s: %w", g.embeddingModel, err)
	}
	if len(vec) != EmbeddingDimensions {
		return nil, fmt.Errorf("embedding has %d dimensions, want %d", len(vec), EmbeddingDimensions)
	}
	return vec, nil
}

func buildPrompt(prompt, additionalContext string) string {
	if strings.TrimSpace(additionalContext) == "" {
		return prompt
	}
	return prompt + "\n\n<additionalContext>\n" + additionalContext + "\n</additionalContext>"
}

func shouldFallback(err error) bool {
	s := strings.ToLower(err.Error())
	for _, marker := range []string{"429", "rate limit", "exhausted", "404", "not found"} {
		if strings.Contains(s, marker) {
			return true
		}
	}
	return false
}

// cleanReply strips whitespace and one pair of wrapping quotes.
func cleanReply(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		s = strings.TrimSpace(s[1 : len(s)-1])
	}
	return s
}

func firstText(result *genai.GenerateContentResponse) string {
	if result == nil || len(result.Candidates) == 0 {
		return ""
	}
	c := result.Candidates[0]
	if c.Content == nil {
		return ""
	}
	var b strings.Builder
	for _, p := range c.Content.Parts {
		if p != nil {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

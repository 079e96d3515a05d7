package brain

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestGemini(models []string, gen generateFunc) *Gemini {
	return &Gemini{models: models, embeddingModel: "gemini-embedding-001", generate: gen}
}

func TestGenerate_FallsBackOnQuota(t *testing.T) {
	var tried []string
	g := newTestGemini([]string{"primary", "secondary"}, func(_ context.Context, model, _ string, _ *genai.GenerateContentConfig) (string, error) {
		tried = append(tried, model)
		if model == "primary" {
			return "", errors.New("Error 429, RESOURCE_EXHAUSTED")
		}
		return `  "rice is life"  `, nil
	})

	text, err := g.Generate(context.Background(), "say something", "")
	require.NoError(t, err)
	assert.Equal(t, "rice is life", text)
	assert.Equal(t, []string{"primary", "secondary"}, tried)
}

func TestGenerate_StopsOnOtherErrors(t *testing.T) {
	calls := 0
	g := newTestGemini([]string{"primary", "secondary"}, func(context.Context, string, string, *genai.GenerateContentConfig) (string, error) {
		calls++
		return "", errors.New("invalid argument")
	})

	_, err := g.Generate(context.Background(), "x", "")
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestGenerate_AllModelsFail(t *testing.T) {
	g := newTestGemini([]string{"a", "b"}, func(context.Context, string, string, *genai.GenerateContentConfig) (string, error) {
		return "", errors.New("model not found")
	})

	_, err := g.Generate(context.Background(), "x", "")
	assert.ErrorContains(t, err, "all models failed")
}

func TestGenerate_PassesPersonaAndContext(t *testing.T) {
	var gotPrompt string
	var gotCfg *genai.GenerateContentConfig
	g := newTestGemini([]string{"m"}, func(_ context.Context, _, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
		gotPrompt = prompt
		gotCfg = cfg
		return "ok", nil
	})
	g.persona = "You are Rice."

	_, err := g.Generate(context.Background(), "reply to this", "they like noodles")
	require.NoError(t, err)
	assert.Equal(t, "reply to this\n\n<additionalContext>\nthey like noodles\n</additionalContext>", gotPrompt)
	require.NotNil(t, gotCfg)
	require.NotNil(t, gotCfg.SystemInstruction)
	assert.Equal(t, "You are Rice.", gotCfg.SystemInstruction.Parts[0].Text)
}

func TestGenerate_NoModels(t *testing.T) {
	_, err := newTestGemini(nil, nil).Generate(context.Background(), "x", "")
	assert.ErrorIs(t, err, ErrNoModels)
}

func TestEmbed(t *testing.T) {
	g := newTestGemini([]string{"m"}, nil)
	g.embed = func(_ context.Context, model, _ string, cfg *genai.EmbedContentConfig) ([]float32, error) {
		assert.Equal(t, "gemini-embedding-001", model)
		assert.Equal(t, "RETRIEVAL_QUERY", cfg.TaskType)
		require.NotNil(t, cfg.OutputDimensionality)
		assert.Equal(t, int32(EmbeddingDimensions), *cfg.OutputDimensionality)
		return make([]float32, EmbeddingDimensions), nil
	}

	vec, err := g.Embed(context.Background(), "rice")
	require.NoError(t, err)
	assert.Len(t, vec, EmbeddingDimensions)

	g.embed = func(context.Context, string, string, *genai.EmbedContentConfig) ([]float32, error) {
		return []float32{1, 2, 3}, nil
	}
	_, err = g.Embed(context.Background(), "rice")
	assert.Error(t, err)
}

func TestFirstText(t *testing.T) {
	assert.Empty(t, firstText(nil))
	assert.Empty(t, firstText(&genai.GenerateContentResponse{}))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Parts: []*genai.Part{{Text: "hello "}, {Text: "world"}}}},
		},
	}
	assert.Equal(t, "hello world", firstText(resp))
}

func TestCleanReply(t *testing.T) {
	assert.Equal(t, "hi", cleanReply(`"hi"`))
	assert.Equal(t, `say "hi"`, cleanReply(` say "hi" `))
	assert.Equal(t, `"`, cleanReply(`"`))
}

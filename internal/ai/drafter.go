package ai

import (
	"context"
	"fmt"
	"time"

	"github.com/shinyyama/skillswap-backend/internal/reqctx"
	"go.uber.org/zap"
	"google.golang.org/genai"
)

// Drafter writes swap request messages with Gemini.
type Drafter struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewDrafter(ctx context.Context, apiKey, model string, logger *zap.Logger) (*Drafter, error) {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini client: %w", err)
	}
	return &Drafter{client: client, model: model, logger: logger}, nil
}

func (d *Drafter) Draft(ctx context.Context, in DraftInput) (string, error) {
	rid := reqctx.RequestID(ctx)
	ctx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(BuildDraftPrompt(in))}, genai.RoleUser),
	}
	temp := float32(0.7)
	maxTokens := int32(256)
	config := &genai.GenerateContentConfig{
		Temperature:     &temp,
		MaxOutputTokens: maxTokens,
	}

	start := time.Now()
	res, err := d.client.Models.GenerateContent(ctx, d.model, contents, config)
	if err != nil {
		d.logger.Warn("gemini draft failed", zap.String("request_id", rid), zap.String("model", d.model), zap.Error(err))
		return "", fmt.Errorf("gemini generate: %w", err)
	}
	raw := res.Text()
	d.logger.Debug("gemini draft done",
		zap.String("request_id", rid),
		zap.String("model", d.model),
		zap.Int64("gen_ms", time.Since(start).Milliseconds()),
		zap.Int("len", len(raw)))
	return CleanDraft(raw)
}

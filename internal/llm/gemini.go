package llm

import (
	"context"
	"encoding/json"
	"log"
	"time"

	genai "google.golang.org/genai"
)

const geminiAttempts = 3

// GeminiClient is a thin wrapper around the official genai client.
// Credentials come from GOOGLE_API_KEY / GEMINI_API_KEY.
type GeminiClient struct {
	cli   *genai.Client
	model string
	rl    *rpsLimiter
}

// NewGeminiClient creates a client for model, throttled to rps requests per
// second when rps > 0.
func NewGeminiClient(ctx context.Context, model string, rps float64) (*GeminiClient, error) {
	cli, err := genai.NewClient(ctx, &genai.ClientConfig{Backend: genai.BackendGeminiAPI})
	if err != nil {
		return nil, err
	}
	return &GeminiClient{cli: cli, model: model, rl: newRPSLimiter(rps, 1)}, nil
}

func (g *GeminiClient) Name() string { return "gemini:" + g.model }

// Close stops the rate limiter.
func (g *GeminiClient) Close() error {
	g.rl.Stop()
	return nil
}

// Generate returns the model's text reply to prompt.
func (g *GeminiClient) Generate(ctx context.Context, prompt string) (string, error) {
	return g.generate(ctx, prompt, nil)
}

// GenerateJSON requests an application/json reply.
func (g *GeminiClient) GenerateJSON(ctx context.Context, prompt string) (json.RawMessage, error) {
	txt, err := g.generate(ctx, prompt, &genai.GenerateContentConfig{ResponseMIMEType: "application/json"})
	if err != nil {
		return nil, err
	}
	return ExtractJSON(txt)
}

func (g *GeminiClient) generate(ctx context.Context, prompt string, cfg *genai.GenerateContentConfig) (string, error) {
	log.Printf("LLM request (%s): %d bytes", g.Name(), len(prompt))

	var lastErr error
	for attempt := 0; attempt < geminiAttempts; attempt++ {
		if err := g.rl.Acquire(ctx); err != nil {
			return "", err
		}
		resp, err := g.cli.Models.GenerateContent(ctx, g.model,
			[]*genai.Content{{Parts: []*genai.Part{{Text: prompt}}}},
			cfg,
		)
		switch {
		case err != nil:
			lastErr = err
		case len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil || len(resp.Candidates[0].Content.Parts) == 0:
			lastErr = ErrEmptyResponse
		default:
			return resp.Candidates[0].Content.Parts[0].Text, nil
		}
		log.Printf("LLM request (%s) attempt %d failed: %v", g.Name(), attempt+1, lastErr)
		if attempt+1 < geminiAttempts {
			if err := sleepCtx(ctx, time.Duration(300*(1<<attempt))*time.Millisecond); err != nil {
				return "", err
			}
		}
	}
	return "", lastErr
}

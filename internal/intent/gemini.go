package intent

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/krishnaAiGen/voice-first-to-do/internal/spec"
)

const defaultModel = "gemini-2.0-flash"

// GeminiProducer asks Gemini for a specification and decodes the
// reply through the validating decoder, so a hallucinated shape never
// reaches the executor.
type GeminiProducer struct {
	client *genai.Client
	model  string
	logger *zap.Logger
}

func NewGeminiProducer(ctx context.Context, apiKey, model string, logger *zap.Logger) (*GeminiProducer, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	return &GeminiProducer{client: client, model: model, logger: logger}, nil
}

func (p *GeminiProducer) Produce(ctx context.Context, command string, history []Exchange) (spec.Specification, error) {
	prompt := buildPrompt(command, BoundHistory(history), time.Now())

	resp, err := p.client.Models.GenerateContent(ctx, p.model, genai.Text(prompt), nil)
	if err != nil {
		return spec.Specification{}, fmt.Errorf("generate specification: %w", err)
	}

	raw := extractJSON(resp.Text())
	s, err := spec.Decode([]byte(raw))
	if err != nil {
		p.logger.Warn("producer returned invalid specification", zap.Error(err))
		return spec.Specification{}, err
	}

	p.logger.Info("parsed intent",
		zap.String("complexity", string(s.Complexity)),
		zap.Int("steps", len(s.Steps)))
	return s, nil
}

package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"menu-scorecard/internal/capture"
	apperrors "menu-scorecard/internal/common/errors"
	commonhttp "menu-scorecard/internal/common/http"
	"menu-scorecard/internal/common/logger"
	"menu-scorecard/internal/scorecard"
)

// GeminiAnalyzer calls the generateContent REST endpoint.
type GeminiAnalyzer struct {
	config *Config
	client *commonhttp.Client
	logger logger.Logger
}

func NewGeminiAnalyzer(cfg *Config, log logger.Logger) *GeminiAnalyzer {
	return &GeminiAnalyzer{
		config: cfg,
		client: commonhttp.NewClient(cfg.Timeout),
		logger: log.With(map[string]interface{}{"analyzer": "gemini", "model": cfg.Model}),
	}
}

func (g *GeminiAnalyzer) Name() string { return "gemini" }

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
	Thought    bool        `json:"thought,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generationConfig struct {
	ResponseMimeType string                 `json:"responseMimeType"`
	ResponseSchema   map[string]interface{} `json:"responseSchema"`
	Temperature      float64                `json:"temperature"`
}

type generateRequest struct {
	Contents         []content        `json:"contents"`
	GenerationConfig generationConfig `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

// Analyze sends the capture, the prompt and the response schema in one
// request and decodes the reply into a complete scorecard.
func (g *GeminiAnalyzer) Analyze(ctx context.Context, in capture.Input) (*scorecard.AnalysisResult, error) {
	if in.Size() == 0 {
		return nil, apperrors.NewAnalysisFailedError(ErrEmptyCapture)
	}

	ctx, cancel := context.WithTimeout(ctx, g.config.Timeout)
	defer cancel()

	req := generateRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &inlineData{MimeType: in.MediaType, Data: in.Base64()}},
				{Text: Prompt()},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseMimeType: "application/json",
			ResponseSchema:   scorecard.ResponseSchema(),
			Temperature:      g.config.Temperature,
		},
	}

	body, err := g.client.PostJSON(ctx, g.endpoint(), map[string]string{"x-goog-api-key": g.config.APIKey}, req)
	if err != nil {
		return nil, g.classify(ctx, err)
	}

	text, err := extractText(body)
	if err != nil {
		return nil, apperrors.NewAnalysisFailedError(err)
	}

	result, err := scorecard.Decode([]byte(text))
	if err != nil {
		g.logger.Warn("Model response failed validation", map[string]interface{}{
			"error": err.Error(),
		})
		return nil, apperrors.NewResultDecodeFailedError(err)
	}

	return result, nil
}

func (g *GeminiAnalyzer) endpoint() string {
	return fmt.Sprintf("%s/v1beta/models/%s:generateContent", strings.TrimRight(g.config.BaseURL, "/"), g.config.Model)
}

// classify maps transport failures. Cancellation by the caller is returned
// as is so the session can tell it apart from a real failure.
func (g *GeminiAnalyzer) classify(ctx context.Context, err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return fmt.Errorf("analysis cancelled: %w", err)
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		return apperrors.NewAnalysisTimeoutError(err)
	}

	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		return apperrors.NewAnalysisFailedError(err).WithMetadata("status", statusErr.StatusCode)
	}
	return apperrors.NewAnalysisFailedError(err)
}

func extractText(body []byte) (string, error) {
	var resp generateResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("parse model envelope: %w", err)
	}

	if resp.PromptFeedback.BlockReason != "" {
		return "", fmt.Errorf("%w: %s", ErrResponseBlocked, resp.PromptFeedback.BlockReason)
	}
	if len(resp.Candidates) == 0 {
		return "", ErrNoCandidates
	}

	candidate := resp.Candidates[0]
	var sb strings.Builder
	for _, p := range candidate.Content.Parts {
		if p.Thought {
			continue
		}
		sb.WriteString(p.Text)
	}

	if sb.Len() == 0 {
		if candidate.FinishReason != "" && candidate.FinishReason != "STOP" {
			return "", fmt.Errorf("%w: finish reason %s", ErrResponseBlocked, candidate.FinishReason)
		}
		return "", ErrNoCandidates
	}

	return sb.String(), nil
}

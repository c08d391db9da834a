package adapter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	apperrors "knowledge-weaver/backend/pkg/errors"
	"knowledge-weaver/backend/pkg/logger"
)

// LLMAdapter talks to an OpenAI-compatible chat completion API (DeepSeek by default)
type LLMAdapter struct {
	client      *openai.Client
	baseURL     string
	model       string
	maxAttempts int
	backoff     time.Duration
	mu          sync.RWMutex // Protects model field for concurrent access
	logger      *zap.Logger
}

// NewLLMAdapter creates a new LLM adapter. baseURL is the full API root,
// e.g. https://api.deepseek.com/v1.
func NewLLMAdapter(baseURL, apiKey, modelID string, maxAttempts int) *LLMAdapter {
	if apiKey == "" {
		apiKey = "dummy-key"
	}
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	config := openai.DefaultConfig(apiKey)
	config.BaseURL = strings.TrimRight(baseURL, "/")

	return &LLMAdapter{
		client:      openai.NewClientWithConfig(config),
		baseURL:     config.BaseURL,
		model:       modelID,
		maxAttempts: maxAttempts,
		backoff:     time.Second,
		logger:      logger.Get(),
	}
}

// SetModel updates the model used by this adapter
func (a *LLMAdapter) SetModel(model string) {
	if model != "" {
		a.mu.Lock()
		a.model = model
		a.mu.Unlock()
		a.logger.Debug("LLM adapter model updated", zap.String("model", model))
	}
}

// GetModel returns the current model
func (a *LLMAdapter) GetModel() string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.model
}

// CompleteJSON sends a system and user prompt, asks for a JSON object reply
// at low temperature, and returns the raw content of the first choice.
func (a *LLMAdapter) CompleteJSON(ctx context.Context, systemPrompt, userMsg string) (string, error) {
	currentModel := a.GetModel()

	req := openai.ChatCompletionRequest{
		Model: currentModel,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: userMsg},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.1,
	}

	// Retry with linear backoff; the default is a single attempt
	var resp openai.ChatCompletionResponse
	var err error
	for attempt := 0; attempt < a.maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(attempt) * a.backoff
			a.logger.Warn("Retrying LLM request",
				zap.Int("attempt", attempt+1),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return "", apperrors.NewContextCancelled("llm completion", ctx.Err())
			case <-time.After(backoff):
			}
		}

		resp, err = a.client.CreateChatCompletion(ctx, req)
		if err == nil {
			break
		}

		a.logger.Error("LLM request failed",
			zap.Error(err),
			zap.Int("attempt", attempt+1),
			zap.String("model", currentModel),
		)

		err = a.wrap(err)
		if !apperrors.IsRetryable(err) {
			break
		}
	}

	if err != nil {
		return "", fmt.Errorf("failed to generate response after %d attempts: %w", a.maxAttempts, err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", apperrors.ErrCategorizerNoResponse
	}

	content := resp.Choices[0].Message.Content
	a.logger.Debug("LLM response generated",
		zap.String("model", currentModel),
		zap.Int("content_length", len(content)),
	)
	return content, nil
}

// wrap converts client errors into categorizer errors carrying the HTTP status
func (a *LLMAdapter) wrap(err error) error {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewContextCancelled("llm completion", err)
	}
	status := 0
	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		status = apiErr.HTTPStatusCode
	case errors.As(err, &reqErr):
		status = reqErr.HTTPStatusCode
	}
	return apperrors.NewCategorizerFailed(a.baseURL, status, err)
}

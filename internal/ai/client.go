package ai

import (
	"context"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/buildsafe/backend/internal/storage/models"
	"github.com/buildsafe/backend/pkg/circuitbreaker"
	"github.com/buildsafe/backend/pkg/logger"
)

// Client is the generative fallback adapter. It is treated as an unreliable
// external dependency: bounded timeout, a single attempt per call, and a
// circuit breaker so a flapping upstream is short-circuited. Callers swallow
// any error and degrade to whatever structured matches exist.
type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	cb := circuitbreaker.NewCircuitBreaker("ai-fallback", circuitbreaker.Config{
		MaxRequests:      3,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	if timeoutSec <= 0 {
		timeoutSec = 8
	}

	logger.Info("AI fallback client initialized",
		zap.String("model", model),
		zap.Int("timeout_sec", timeoutSec),
	)

	return &Client{
		client:      openai.NewClient(apiKey),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
	}
}

// Generate produces free-text suggestions for the given library kind. No
// retry: a stale or slow generative call must not block the reviewer.
func (c *Client) Generate(ctx context.Context, kind models.LibraryKind, req models.SuggestionRequest) (string, error) {
	systemPrompt, userPrompt, err := buildPrompts(kind, req)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var content string
	err = c.cb.Execute(ctx, func() error {
		resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
			Model: c.model,
			Messages: []openai.ChatCompletionMessage{
				{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
				{Role: openai.ChatMessageRoleUser, Content: userPrompt},
			},
			Temperature: c.temperature,
			MaxTokens:   c.maxTokens,
		})
		if err != nil {
			return fmt.Errorf("failed to create completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return fmt.Errorf("completion returned no choices")
		}

		content = strings.TrimSpace(resp.Choices[0].Message.Content)

		logger.Debug("Fallback text generated",
			zap.String("kind", string(kind)),
			zap.Int("prompt_tokens", resp.Usage.PromptTokens),
			zap.Int("completion_tokens", resp.Usage.CompletionTokens),
		)
		return nil
	})

	if err != nil {
		return "", err
	}

	return content, nil
}

func buildPrompts(kind models.LibraryKind, req models.SuggestionRequest) (string, string, error) {
	context := fmt.Sprintf("Task: %s\nHazard identified: %s", req.TaskActivity, req.HazardIdentified)
	if req.LocationArea != "" {
		context += fmt.Sprintf("\nLocation/area: %s", req.LocationArea)
	}
	if req.WhoAtRisk != "" {
		context += fmt.Sprintf("\nWho is at risk: %s", req.WhoAtRisk)
	}
	if req.ProjectType != "" {
		context += fmt.Sprintf("\nProject type: %s", req.ProjectType)
	}

	switch kind {
	case models.KindControl:
		system := `You are a construction health and safety advisor writing control measures for a risk assessment.

Suggest practical control measures following the hierarchy of controls (elimination, substitution, engineering, administrative, PPE), strongest first.
Write a short bullet list, one measure per line. Be specific to the task and hazard. Do not invent legislation references.`
		user := fmt.Sprintf("%s\n\nSuggest control measures for this hazard.", context)
		return system, user, nil

	case models.KindLegislation:
		system := `You are a construction health and safety advisor identifying UK legislation relevant to a risk assessment.

List the applicable regulations with a one-line note on why each applies. Only cite real UK health and safety legislation.`
		user := fmt.Sprintf("%s\n\nList the relevant legislation for this hazard.", context)
		return system, user, nil

	default:
		return "", "", fmt.Errorf("no generative prompt for library kind %q", kind)
	}
}

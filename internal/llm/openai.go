// Package llm wraps the hosted text-generation service used to draft
// answers to patient questions. The draft is never shown as authoritative:
// a clinician reviews and verifies it downstream.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/medqa/go-medqa-backend/internal/config"
	"github.com/medqa/go-medqa-backend/internal/domain"
)

// SystemPrompt is the fixed medical-assistant persona sent with every
// generation request.
const SystemPrompt = "You are a helpful medical assistant providing information to elderly patients. " +
	"Use simple language and avoid technical jargon when possible."

// FallbackAnswer is returned when the service responds successfully but
// yields no usable text. The request is not failed in that case.
const FallbackAnswer = "I'm sorry, I couldn't generate a response."

// Generation-service error taxonomy. ErrNoAPIKey is a configuration error
// and is checked before any network call; the others classify upstream
// failures so callers can decide whether to retry now, retry later, or stop.
var (
	ErrNoAPIKey            = errors.New("OpenAI API key is not configured")
	ErrUpstreamAuth        = errors.New("authentication error with OpenAI API")
	ErrUpstreamRateLimited = errors.New("rate limit exceeded with OpenAI API")
)

// UpstreamError wraps any other generation-service failure with the
// upstream status and message.
type UpstreamError struct {
	Status  int
	Message string
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	return fmt.Sprintf("OpenAI API error (%d): %s", e.Status, e.Message)
}

// Generator is the interface consumed by the submission service. Generate
// drafts an answer for question, optionally enriched with up to
// domain.HistoryLimit prior exchanges ordered oldest first.
type Generator interface {
	Generate(ctx context.Context, question string, history []domain.Exchange) (string, error)
}

// Client calls the OpenAI chat-completion API. Construct it with NewClient;
// the zero value is unusable.
type Client struct {
	api         *openai.Client
	model       string
	maxTokens   int
	temperature float32
	hasKey      bool
}

// NewClient builds an OpenAI-backed Client from configuration. A missing
// API key does not fail construction; Generate reports ErrNoAPIKey per
// call so the submission path can surface a loud configuration error.
func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		api:         openai.NewClient(cfg.APIKey),
		model:       cfg.Model,
		maxTokens:   cfg.MaxTokens,
		temperature: cfg.Temperature,
		hasKey:      strings.TrimSpace(cfg.APIKey) != "",
	}
}

// Generate sends the system prompt, the prior exchanges (each question as a
// user turn immediately followed by its stored answer as an assistant
// turn), and the new question as the final user turn. Output length is
// bounded and temperature kept low: this is a medical-information context,
// literal answers beat creative ones.
func (c *Client) Generate(ctx context.Context, question string, history []domain.Exchange) (string, error) {
	if !c.hasKey {
		return "", ErrNoAPIKey
	}

	msgs := make([]openai.ChatCompletionMessage, 0, 2*len(history)+2)
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleSystem,
		Content: SystemPrompt,
	})
	for _, ex := range history {
		msgs = append(msgs,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: ex.Question},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: ex.Answer},
		)
	}
	msgs = append(msgs, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: question,
	})

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		Messages:    msgs,
		MaxTokens:   c.maxTokens,
		Temperature: c.temperature,
	})
	if err != nil {
		return "", classify(err)
	}

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return FallbackAnswer, nil
	}
	return resp.Choices[0].Message.Content, nil
}

// classify maps transport errors from the OpenAI SDK onto the package's
// taxonomy: 401 → ErrUpstreamAuth, 429 → ErrUpstreamRateLimited, anything
// else → *UpstreamError carrying the upstream status and message.
func classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case 401:
			return ErrUpstreamAuth
		case 429:
			return ErrUpstreamRateLimited
		default:
			return &UpstreamError{Status: apiErr.HTTPStatusCode, Message: apiErr.Message}
		}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		switch reqErr.HTTPStatusCode {
		case 401:
			return ErrUpstreamAuth
		case 429:
			return ErrUpstreamRateLimited
		default:
			return &UpstreamError{Status: reqErr.HTTPStatusCode, Message: reqErr.Error()}
		}
	}
	return &UpstreamError{Status: 0, Message: err.Error()}
}

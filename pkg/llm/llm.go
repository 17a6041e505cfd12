package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/sirupsen/logrus"

	"github.com/memesong/memesong/pkg/logging"
)

const (
	DefaultBaseURL     = "https://api.x.ai/v1"
	DefaultModel       = "grok-4-1-fast-non-reasoning"
	DefaultVisionModel = "grok-2-vision-1212"

	Temperature = 0.9
	MaxTokens   = 2000
)

// APIError is a non-2xx response from the completion endpoint.
type APIError struct {
	StatusCode int
	// Message is the provider supplied error.message, if any.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("API request failed: %d", e.StatusCode)
}

// Request is a single system + user completion.
type Request struct {
	Model  string
	System string
	User   string
}

type Config struct {
	BaseURL     string
	Model       string
	VisionModel string
	Client      *http.Client
	Logger      logrus.FieldLogger
}

type Client struct {
	baseURL     string
	model       string
	visionModel string
	client      *http.Client
	log         logrus.FieldLogger
}

func New(cfg *Config) *Client {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	visionModel := cfg.VisionModel
	if visionModel == "" {
		visionModel = DefaultVisionModel
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{
			Timeout: 2 * time.Minute,
		}
	}
	return &Client{
		baseURL:     baseURL,
		model:       model,
		visionModel: visionModel,
		client:      client,
		log:         logging.OrDiscard(cfg.Logger),
	}
}

// The key is supplied per call because users can change it between runs.
func (c *Client) api(key string) *openai.Client {
	cfg := openai.DefaultConfig(key)
	cfg.BaseURL = c.baseURL
	cfg.HTTPClient = c.client
	return openai.NewClientWithConfig(cfg)
}

// Complete sends a chat completion and returns the raw content of the first
// choice.
func (c *Client) Complete(ctx context.Context, key string, req Request) (string, error) {
	model := req.Model
	if model == "" {
		model = c.model
	}
	c.log.Debugf("llm: chat completion model=%s system=%d user=%d", model, len(req.System), len(req.User))
	resp, err := c.api(key).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: req.System},
			{Role: openai.ChatMessageRoleUser, Content: req.User},
		},
		Temperature: Temperature,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return "", convertError(err)
	}
	return c.content(resp), nil
}

// Vision sends an image (data URL or http URL) with an instruction to a
// vision capable model.
func (c *Client) Vision(ctx context.Context, key, image, instruction string) (string, error) {
	c.log.Debugf("llm: vision completion model=%s image=%d", c.visionModel, len(image))
	resp, err := c.api(key).CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.visionModel,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: instruction},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    image,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
		Temperature: 0.1,
		MaxTokens:   MaxTokens,
	})
	if err != nil {
		return "", convertError(err)
	}
	return c.content(resp), nil
}

func (c *Client) content(resp openai.ChatCompletionResponse) string {
	if len(resp.Choices) == 0 {
		c.log.Warnf("llm: response %s has no choices", resp.ID)
		return ""
	}
	return resp.Choices[0].Message.Content
}

func convertError(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return &APIError{StatusCode: apiErr.HTTPStatusCode, Message: apiErr.Message}
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &APIError{StatusCode: reqErr.HTTPStatusCode}
	}
	return fmt.Errorf("llm: couldn't create chat completion: %w", err)
}

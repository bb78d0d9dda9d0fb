package vision

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

// Defaults for the vision request.
const (
	DefaultModel     = "gpt-4o-mini"
	DefaultPrompt    = "Describe the food or dining environment in one short sentence."
	DefaultMaxTokens = 50
)

// Describer produces a short natural-language description of an image.
type Describer interface {
	Describe(ctx context.Context, image []byte, prompt string, maxTokens int) (string, error)
}

// OpenAIDescriber describes images with an OpenAI vision-capable chat model.
type OpenAIDescriber struct {
	client *openai.Client
	model  string
}

// NewOpenAIDescriber creates a describer for model (DefaultModel when empty).
func NewOpenAIDescriber(apiKey, baseURL, model string) (*OpenAIDescriber, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("openai api key is not configured")
	}
	if model == "" {
		model = DefaultModel
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIDescriber{client: openai.NewClientWithConfig(cfg), model: model}, nil
}

// Describe sends the image inline as a data URL together with prompt.
func (d *OpenAIDescriber) Describe(ctx context.Context, image []byte, prompt string, maxTokens int) (string, error) {
	req := openai.ChatCompletionRequest{
		Model:       d.model,
		MaxTokens:   maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{Type: openai.ChatMessagePartTypeText, Text: prompt},
					{
						Type:     openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{URL: DataURL(image)},
					},
				},
			},
		},
	}
	resp, err := d.client.CreateChatCompletion(ctx, req)
	if err != nil {
		return "", fmt.Errorf("vision request failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("empty response from vision model")
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("vision model returned no text")
	}
	return content, nil
}

// DataURL encodes image as a base64 data URL. The media type is sniffed from
// the content and falls back to image/jpeg when it is not an image type.
func DataURL(image []byte) string {
	mime := http.DetectContentType(image)
	if i := strings.IndexByte(mime, ';'); i >= 0 {
		mime = mime[:i]
	}
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(image)
}

package generation

import (
	"context"
	"fmt"

	"github.com/sashabaranov/go-openai"
)

const systemPrompt = "You are a curriculum author. You always answer with JSON only."

// OpenAIGenerator calls the OpenAI chat completions API.
type OpenAIGenerator struct {
	client *openai.Client
}

// NewOpenAIGenerator builds a generator. baseURL may be empty for the public API.
func NewOpenAIGenerator(apiKey, baseURL string) (*OpenAIGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("openai API key cannot be empty")
	}
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAIGenerator{client: openai.NewClientWithConfig(cfg)}, nil
}

func (o *OpenAIGenerator) Generate(ctx context.Context, req Request) (string, error) {
	chatReq := openai.ChatCompletionRequest{
		Model: req.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: req.Prompt},
		},
	}
	if req.ResponseFormat == ResponseFormatJSON {
		chatReq.ResponseFormat = &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		}
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", nil
	}
	return resp.Choices[0].Message.Content, nil
}

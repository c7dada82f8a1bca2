package story

import (
	"context"
	"errors"
	"strings"

	"pet-story-server-go/src/core/providers"

	"github.com/sashabaranov/go-openai"
)

// Complete 通过 OpenAI 兼容协议发送故事请求，openai 与 ollama 变体共用
func Complete(ctx context.Context, client *openai.Client, name string, config *providers.Config, maxTokens int, description string) (string, error) {
	response, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: config.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: providers.StorySystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: providers.StoryUserPrompt(description)},
		},
		Temperature: float32(config.Temperature),
		TopP:        float32(config.TopP),
		MaxTokens:   maxTokens,
	})
	if err != nil {
		return "", providers.Classify(name, err)
	}

	if len(response.Choices) == 0 {
		return "", providers.NewError(name, providers.EmptyResponse, errors.New("no choices in response"))
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", providers.NewError(name, providers.EmptyResponse, errors.New("empty story"))
	}
	return content, nil
}

package openai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/caption"
	"pet-story-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider 通过 OpenAI 兼容接口（默认 GitHub Models）调用视觉模型
type Provider struct {
	*caption.BaseProvider
	client *openai.Client
	logger *utils.Logger
}

// 注册提供者
func init() {
	caption.Register("openai", NewProvider)
}

// NewProvider 创建OpenAI视觉提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (caption.Provider, error) {
	return &Provider{
		BaseProvider: caption.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// Initialize 初始化客户端；缺少 API key 时不创建客户端
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.APIKey == "" {
		p.logger.Warn("Caption提供者未配置API key，将使用兜底描述", map[string]interface{}{
			"provider": p.Name(),
		})
		return nil
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	p.client = openai.NewClientWithConfig(clientConfig)
	return nil
}

// Caption 发送系统提示词和图片，返回模型描述
func (p *Provider) Caption(ctx context.Context, asset image.UploadedAsset) (string, error) {
	if p.client == nil {
		return "", providers.MissingConfig(p.Name(), "API key")
	}

	config := p.Config()
	dataURL := fmt.Sprintf("data:%s;base64,%s", dataURLMediaType(asset.ContentType),
		base64.StdEncoding.EncodeToString(asset.Data))

	request := openai.ChatCompletionRequest{
		Model: config.ModelName,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: providers.CaptionSystemPrompt,
			},
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: providers.CaptionUserPrompt,
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL: dataURL,
						},
					},
				},
			},
		},
		Temperature: float32(config.Temperature),
		TopP:        float32(config.TopP),
		MaxTokens:   config.MaxTokens,
	}

	p.logger.Debug("调用视觉模型", map[string]interface{}{
		"provider":   p.Name(),
		"model_name": config.ModelName,
		"file_name":  asset.FileName,
		"image_size": len(asset.Data),
	})

	response, err := p.client.CreateChatCompletion(ctx, request)
	if err != nil {
		return "", providers.Classify(p.Name(), err)
	}

	if len(response.Choices) == 0 {
		return "", providers.NewError(p.Name(), providers.EmptyResponse, errors.New("no choices in response"))
	}
	content := strings.TrimSpace(response.Choices[0].Message.Content)
	if content == "" {
		return "", providers.NewError(p.Name(), providers.EmptyResponse, errors.New("empty caption"))
	}

	return content, nil
}

// dataURLMediaType image/jpg 不是标准类型，按 image/jpeg 发送
func dataURLMediaType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	mediaType = strings.ToLower(strings.TrimSpace(mediaType))
	switch mediaType {
	case "", "image/jpg":
		return "image/jpeg"
	}
	return mediaType
}

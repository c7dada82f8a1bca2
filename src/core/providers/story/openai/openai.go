package openai

import (
	"context"
	"net/http"

	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/story"
	"pet-story-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// Provider OpenAI 兼容接口的故事生成提供者
type Provider struct {
	*story.BaseProvider
	client    *openai.Client
	logger    *utils.Logger
	maxTokens int
}

// 注册提供者
func init() {
	story.Register("openai", NewProvider)
}

// NewProvider 创建OpenAI故事提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (story.Provider, error) {
	provider := &Provider{
		BaseProvider: story.NewBaseProvider(config),
		logger:       logger,
		maxTokens:    config.MaxTokens,
	}
	if provider.maxTokens <= 0 {
		provider.maxTokens = 1000
	}
	return provider, nil
}

// Initialize 初始化客户端；缺少 API key 时不创建客户端
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.APIKey == "" {
		p.logger.Warn("Story提供者未配置API key，将使用兜底故事", map[string]interface{}{
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

// GenerateStory 根据描述生成短故事
func (p *Provider) GenerateStory(ctx context.Context, description string) (string, error) {
	description, err := providers.PrepareDescription(description)
	if err != nil {
		return "", err
	}

	if p.client == nil {
		return "", providers.MissingConfig(p.Name(), "API key")
	}

	return story.Complete(ctx, p.client, p.Name(), p.Config(), p.maxTokens, description)
}

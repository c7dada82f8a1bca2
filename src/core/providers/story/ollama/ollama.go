package ollama

import (
	"context"
	"net/http"
	"strings"

	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/story"
	"pet-story-server-go/src/core/utils"

	"github.com/sashabaranov/go-openai"
)

// DefaultBaseURL 默认Ollama地址
const DefaultBaseURL = "http://localhost:11434"

// Provider Ollama故事提供者，走 Ollama 的 OpenAI 兼容接口
type Provider struct {
	*story.BaseProvider
	client *openai.Client
	logger *utils.Logger
}

// 注册提供者
func init() {
	story.Register("ollama", NewProvider)
}

// NewProvider 创建Ollama故事提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (story.Provider, error) {
	return &Provider{
		BaseProvider: story.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// Initialize 初始化提供者
func (p *Provider) Initialize() error {
	config := p.Config()
	baseURL := config.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	// 确保URL以/v1结尾
	baseURL = strings.TrimSuffix(baseURL, "/")
	if !strings.HasSuffix(baseURL, "/v1") {
		baseURL = baseURL + "/v1"
	}

	// Ollama不需要真正的API key，但openai客户端需要一个值
	clientConfig := openai.DefaultConfig("ollama")
	clientConfig.BaseURL = baseURL
	clientConfig.HTTPClient = &http.Client{Timeout: config.Timeout}

	p.client = openai.NewClientWithConfig(clientConfig)
	p.logger.Debug("Ollama Story初始化成功", map[string]interface{}{
		"base_url": baseURL,
		"model":    config.ModelName,
	})
	return nil
}

// GenerateStory 根据描述生成短故事
func (p *Provider) GenerateStory(ctx context.Context, description string) (string, error) {
	description, err := providers.PrepareDescription(description)
	if err != nil {
		return "", err
	}

	config := p.Config()
	if config.ModelName == "" {
		return "", providers.MissingConfig(p.Name(), "model_name")
	}

	return story.Complete(ctx, p.client, p.Name(), config, config.MaxTokens, description)
}

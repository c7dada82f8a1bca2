package mock

import (
	"context"

	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/story"
	"pet-story-server-go/src/core/utils"
)

// Provider 本地模拟提供者。配置了 extra.response 时原样返回，
// 否则报告 ConfigurationMissing，让管线走兜底故事。
type Provider struct {
	*story.BaseProvider
}

// 注册提供者
func init() {
	story.Register("mock", NewProvider)
}

// NewProvider 创建模拟提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (story.Provider, error) {
	return &Provider{
		BaseProvider: story.NewBaseProvider(config),
	}, nil
}

// GenerateStory 返回固定故事
func (p *Provider) GenerateStory(ctx context.Context, description string) (string, error) {
	if _, err := providers.PrepareDescription(description); err != nil {
		return "", err
	}
	if response := p.Config().String("response"); response != "" {
		return response, nil
	}
	return "", providers.MissingConfig(p.Name(), "mock response")
}

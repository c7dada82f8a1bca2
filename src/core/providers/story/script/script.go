package script

import (
	"context"

	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/story"
	"pet-story-server-go/src/core/utils"
)

// Provider 委托外部进程生成故事，例如 `python3 scripts/story.py <描述>`
type Provider struct {
	*story.BaseProvider
	logger *utils.Logger
}

// 注册提供者
func init() {
	story.Register("script", NewProvider)
}

// NewProvider 创建外部进程提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (story.Provider, error) {
	return &Provider{
		BaseProvider: story.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// GenerateStory 以提示词作为最后一个参数运行命令
func (p *Provider) GenerateStory(ctx context.Context, description string) (string, error) {
	description, err := providers.PrepareDescription(description)
	if err != nil {
		return "", err
	}

	config := p.Config()
	args := append(append([]string{}, config.Args...), providers.StoryUserPrompt(description))

	p.logger.Debug("调用外部故事进程", map[string]interface{}{
		"provider": p.Name(),
		"command":  config.Command,
	})
	return providers.RunCommand(ctx, p.Name(), config.Timeout, config.Command, args...)
}

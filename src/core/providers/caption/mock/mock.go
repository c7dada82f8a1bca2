package mock

import (
	"context"

	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/caption"
	"pet-story-server-go/src/core/utils"
)

// Provider 本地模拟提供者。配置了 extra.response 时原样返回，
// 否则报告 ConfigurationMissing，让管线走兜底描述。
type Provider struct {
	*caption.BaseProvider
}

// 注册提供者
func init() {
	caption.Register("mock", NewProvider)
}

// NewProvider 创建模拟提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (caption.Provider, error) {
	return &Provider{
		BaseProvider: caption.NewBaseProvider(config),
	}, nil
}

// Caption 返回固定描述
func (p *Provider) Caption(ctx context.Context, asset image.UploadedAsset) (string, error) {
	if response := p.Config().String("response"); response != "" {
		return response, nil
	}
	return "", providers.MissingConfig(p.Name(), "mock response")
}

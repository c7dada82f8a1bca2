package caption

import (
	"fmt"
	"sort"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/utils"
)

// Provider 图片描述提供者接口
type Provider interface {
	providers.CaptionProvider
}

// BaseProvider 图片描述基础实现
type BaseProvider struct {
	config *providers.Config
}

// NewBaseProvider 创建图片描述基础提供者
func NewBaseProvider(config *providers.Config) *BaseProvider {
	return &BaseProvider{
		config: config,
	}
}

// Config 获取配置
func (p *BaseProvider) Config() *providers.Config {
	return p.config
}

// Name 提供者名称，用于日志和错误
func (p *BaseProvider) Name() string {
	return "caption/" + p.config.Name
}

// Initialize 初始化提供者
func (p *BaseProvider) Initialize() error {
	return nil
}

// Cleanup 清理资源
func (p *BaseProvider) Cleanup() error {
	return nil
}

// Factory 图片描述工厂函数类型
type Factory func(config *providers.Config, logger *utils.Logger) (Provider, error)

var (
	factories = make(map[string]Factory)
)

// Register 注册图片描述提供者工厂
func Register(name string, factory Factory) {
	factories[name] = factory
}

// Create 按 type 创建并初始化提供者。
// 缺少凭证不会导致失败，提供者会在首次调用时报告 ConfigurationMissing。
func Create(name string, pc configs.ProviderConfig, logger *utils.Logger) (Provider, error) {
	factory, ok := factories[pc.Type]
	if !ok {
		return nil, fmt.Errorf("未知的Caption提供者类型: %s", pc.Type)
	}

	config := providers.NewConfig(name, pc)
	provider, err := factory(config, logger)
	if err != nil {
		return nil, fmt.Errorf("创建Caption提供者失败: %v", err)
	}

	if err := provider.Initialize(); err != nil {
		return nil, fmt.Errorf("初始化Caption提供者失败: %v", err)
	}

	logger.Debug("Caption提供者创建成功", map[string]interface{}{
		"name":       name,
		"type":       pc.Type,
		"model_name": pc.ModelName,
	})

	return provider, nil
}

// GetRegisteredProviders 获取已注册的提供者类型
func GetRegisteredProviders() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

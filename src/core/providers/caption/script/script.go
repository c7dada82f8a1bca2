package script

import (
	"context"
	"errors"

	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/caption"
	"pet-story-server-go/src/core/utils"
)

// Provider 委托外部进程生成描述，例如 `python3 scripts/caption.py <图片路径>`
type Provider struct {
	*caption.BaseProvider
	logger *utils.Logger
}

// 注册提供者
func init() {
	caption.Register("script", NewProvider)
}

// NewProvider 创建外部进程提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (caption.Provider, error) {
	return &Provider{
		BaseProvider: caption.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// NeedsFile 外部进程通过文件路径读取图片
func (p *Provider) NeedsFile() bool {
	return true
}

// Caption 以图片路径作为最后一个参数运行命令
func (p *Provider) Caption(ctx context.Context, asset image.UploadedAsset) (string, error) {
	if asset.Path == "" {
		return "", providers.NewError(p.Name(), providers.TransportFailure, errors.New("image was not staged to a file"))
	}

	config := p.Config()
	args := append(append([]string{}, config.Args...), asset.Path)

	p.logger.Debug("调用外部描述进程", map[string]interface{}{
		"provider": p.Name(),
		"command":  config.Command,
		"path":     asset.Path,
	})
	return providers.RunCommand(ctx, p.Name(), config.Timeout, config.Command, args...)
}

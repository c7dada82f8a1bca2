package providers

import (
	"context"

	"pet-story-server-go/src/core/image"
)

// Provider 所有提供者的基础接口
type Provider interface {
	Initialize() error
	Cleanup() error
}

// Origin 标记结果来自模型还是本地兜底
type Origin string

const (
	OriginAI       Origin = "AI"
	OriginFallback Origin = "FALLBACK"
)

// CaptionProvider 图片描述提供者接口
type CaptionProvider interface {
	Provider
	// 为已通过校验的图片生成描述
	Caption(ctx context.Context, asset image.UploadedAsset) (string, error)
}

// StoryProvider 故事生成提供者接口
type StoryProvider interface {
	Provider
	// 根据清洗后的描述生成短故事
	GenerateStory(ctx context.Context, description string) (string, error)
}

// FileConsumer 需要通过文件路径读取图片的提供者（如外部进程）。
// 管线会在调用前暂存临时文件，并在返回前删除。
type FileConsumer interface {
	NeedsFile() bool
}

// NeedsFile 判断提供者是否需要临时文件
func NeedsFile(p interface{}) bool {
	fc, ok := p.(FileConsumer)
	return ok && fc.NeedsFile()
}

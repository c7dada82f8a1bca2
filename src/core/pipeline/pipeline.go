package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"

	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/utils"
)

const (
	// OriginAIPowered 两个阶段都由模型完成
	OriginAIPowered = "AI-powered analysis"
	// OriginFallback 任一阶段使用了兜底
	OriginFallback = "Fallback analysis (AI service temporarily unavailable)"
)

// ErrProcessing 编排过程中的意外失败，区别于校验错误和兜底
var ErrProcessing = errors.New("pipeline processing failed")

// Stager 为需要文件路径的提供者暂存图片
type Stager interface {
	Stage(asset image.UploadedAsset) (path string, cleanup func(), err error)
}

// Result 一次请求的处理结果
type Result struct {
	Caption        string           `json:"caption"`
	Story          string           `json:"story"`
	CaptionOrigin  providers.Origin `json:"caption_origin,omitempty"`
	StoryOrigin    providers.Origin `json:"story_origin"`
	Origin         string           `json:"origin"`
	FileName       string           `json:"file_name,omitempty"`
	FallbackReason string           `json:"-"` // 运维诊断信息，不返回给用户
}

// Pipeline 校验 → 描述 → 清洗 → 故事，AI 阶段失败时用本地兜底
type Pipeline struct {
	validator   *image.InputValidator
	stager      Stager
	captioner   providers.CaptionProvider
	storyteller providers.StoryProvider
	logger      *utils.Logger
	metrics     Metrics
}

// New 创建管线，提供者由组合根注入
func New(validator *image.InputValidator, stager Stager, captioner providers.CaptionProvider,
	storyteller providers.StoryProvider, logger *utils.Logger) *Pipeline {
	return &Pipeline{
		validator:   validator,
		stager:      stager,
		captioner:   captioner,
		storyteller: storyteller,
		logger:      logger,
	}
}

// ProcessImage 处理上传图片。校验失败返回 *image.ValidationError，且不会调用任何提供者。
func (p *Pipeline) ProcessImage(ctx context.Context, data []byte, contentType string, size int64, filename string) (*Result, error) {
	atomic.AddInt64(&p.metrics.Requests, 1)

	asset := image.UploadedAsset{
		Data:        data,
		ContentType: contentType,
		FileName:    filename,
		Size:        size,
	}
	if err := p.validator.ValidateImage(asset); err != nil {
		atomic.AddInt64(&p.metrics.ValidationRejects, 1)
		return nil, err
	}

	caption, captionOrigin, captionReason, err := p.caption(ctx, asset)
	if err != nil {
		atomic.AddInt64(&p.metrics.ProcessingFailures, 1)
		return nil, err
	}

	story, storyOrigin, storyReason, err := p.generateStory(ctx, caption)
	if err != nil {
		atomic.AddInt64(&p.metrics.ProcessingFailures, 1)
		return nil, err
	}

	result := &Result{
		Caption:        caption,
		Story:          story,
		CaptionOrigin:  captionOrigin,
		StoryOrigin:    storyOrigin,
		Origin:         describeOrigin(captionOrigin, storyOrigin),
		FileName:       filename,
		FallbackReason: joinReasons(captionReason, storyReason),
	}
	p.logResult(result)
	return result, nil
}

// ProcessDescription 处理文字描述，跳过描述阶段直接清洗并生成故事
func (p *Pipeline) ProcessDescription(ctx context.Context, text string) (*Result, error) {
	atomic.AddInt64(&p.metrics.Requests, 1)

	if err := p.validator.ValidateDescription(text); err != nil {
		atomic.AddInt64(&p.metrics.ValidationRejects, 1)
		return nil, err
	}

	// 只由不安全字符组成的描述清洗后为空
	sanitized := utils.SanitizeText(text)
	if err := p.validator.ValidateDescription(sanitized); err != nil {
		atomic.AddInt64(&p.metrics.ValidationRejects, 1)
		return nil, err
	}

	story, storyOrigin, reason, err := p.generateStory(ctx, sanitized)
	if err != nil {
		atomic.AddInt64(&p.metrics.ProcessingFailures, 1)
		return nil, err
	}

	result := &Result{
		Caption:        sanitized,
		Story:          story,
		StoryOrigin:    storyOrigin,
		Origin:         describeOrigin(providers.OriginAI, storyOrigin),
		FallbackReason: reason,
	}
	p.logResult(result)
	return result, nil
}

// GetMetrics 获取统计信息
func (p *Pipeline) GetMetrics() Metrics {
	return p.metrics.snapshot()
}

// caption 调用描述提供者并返回清洗后的描述。只有暂存失败会返回错误。
func (p *Pipeline) caption(ctx context.Context, asset image.UploadedAsset) (string, providers.Origin, string, error) {
	if providers.NeedsFile(p.captioner) {
		path, cleanup, err := p.stager.Stage(asset)
		if err != nil {
			p.logger.Error("暂存上传图片失败", map[string]interface{}{
				"file_name": asset.FileName,
				"error":     err.Error(),
			})
			return "", "", "", fmt.Errorf("%w: %v", ErrProcessing, err)
		}
		defer cleanup()
		asset.Path = path
	}

	text, err := p.captioner.Caption(ctx, asset)
	if err == nil {
		text = utils.SanitizeText(text)
		if text == "" {
			err = providers.NewError("caption", providers.EmptyResponse, errors.New("caption is empty after sanitizing"))
		}
	}
	if err != nil {
		atomic.AddInt64(&p.metrics.CaptionFallbacks, 1)
		reason := p.recordFailure("caption", err, map[string]interface{}{"file_name": asset.FileName})
		return utils.SanitizeText(FallbackCaption(asset.FileName)), providers.OriginFallback, reason, nil
	}
	return text, providers.OriginAI, "", nil
}

// generateStory 调用故事提供者。空描述属于调用方问题，直接失败。
func (p *Pipeline) generateStory(ctx context.Context, description string) (string, providers.Origin, string, error) {
	text, err := p.storyteller.GenerateStory(ctx, description)
	if errors.Is(err, providers.ErrEmptyDescription) {
		p.logger.Error("故事提供者收到空描述", map[string]interface{}{"error": err.Error()})
		return "", "", "", fmt.Errorf("%w: %v", ErrProcessing, err)
	}
	if err == nil && strings.TrimSpace(text) == "" {
		err = providers.NewError("story", providers.EmptyResponse, errors.New("empty story"))
	}
	if err != nil {
		atomic.AddInt64(&p.metrics.StoryFallbacks, 1)
		reason := p.recordFailure("story", err, map[string]interface{}{"description_length": len([]rune(description))})
		return FallbackStory(description), providers.OriginFallback, reason, nil
	}
	return strings.TrimSpace(text), providers.OriginAI, "", nil
}

// recordFailure 记录提供者失败并返回诊断信息
func (p *Pipeline) recordFailure(stage string, err error, fields map[string]interface{}) string {
	kind := providers.KindOf(err)
	fields["stage"] = stage
	fields["kind"] = string(kind)
	fields["error"] = err.Error()

	if kind == providers.QuotaExceeded {
		atomic.AddInt64(&p.metrics.QuotaHits, 1)
		p.logger.Error(providers.QuotaMessage, fields)
		return fmt.Sprintf("%s: %s", stage, providers.QuotaMessage)
	}
	p.logger.Warn("提供者调用失败，使用兜底结果", fields)
	return fmt.Sprintf("%s: %s", stage, kind)
}

func (p *Pipeline) logResult(result *Result) {
	p.logger.Info("请求处理完成", map[string]interface{}{
		"origin":         result.Origin,
		"caption_origin": string(result.CaptionOrigin),
		"story_origin":   string(result.StoryOrigin),
		"file_name":      result.FileName,
		"story_length":   len(result.Story),
	})
}

func describeOrigin(caption, story providers.Origin) string {
	if caption == providers.OriginAI && story == providers.OriginAI {
		return OriginAIPowered
	}
	return OriginFallback
}

func joinReasons(reasons ...string) string {
	var parts []string
	for _, r := range reasons {
		if r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "; ")
}

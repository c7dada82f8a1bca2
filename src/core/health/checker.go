package health

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"time"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/caption"
	"pet-story-server-go/src/core/providers/story"
	"pet-story-server-go/src/core/utils"
)

// CheckMode 检查模式
type CheckMode int

const (
	// BasicCheck 只创建提供者，验证配置可用
	BasicCheck CheckMode = iota
	// FunctionalCheck 执行一次真实调用
	FunctionalCheck
)

func (m CheckMode) String() string {
	if m == FunctionalCheck {
		return "功能性"
	}
	return "基础"
}

// DefaultStoryPrompt 功能性检查使用的描述
const DefaultStoryPrompt = "a playful puppy chasing butterflies"

// 1x1像素的透明PNG图片
const testImageBase64 = `iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAYAAAAfFcSJAAAADUlEQVR42mNkYPhfDwAChwGA60e6kgAAAABJRU5ErkJggg==`

// CheckResult 检查结果
type CheckResult struct {
	Module    string                 `json:"module"`
	Provider  string                 `json:"provider"`
	Success   bool                   `json:"success"`
	Kind      providers.ErrorKind    `json:"kind,omitempty"`
	Error     error                  `json:"error,omitempty"`
	Details   map[string]interface{} `json:"details"`
	Duration  time.Duration          `json:"duration"`
	Timestamp time.Time              `json:"timestamp"`
	CheckMode CheckMode              `json:"check_mode"`
}

// HealthChecker 检查选中的 Caption/Story 提供者
type HealthChecker struct {
	config      *configs.Config
	logger      *utils.Logger
	timeout     time.Duration
	storyPrompt string
	results     map[string]*CheckResult
}

// NewHealthChecker 创建健康检查器
func NewHealthChecker(config *configs.Config, logger *utils.Logger, timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &HealthChecker{
		config:      config,
		logger:      logger,
		timeout:     timeout,
		storyPrompt: DefaultStoryPrompt,
		results:     make(map[string]*CheckResult),
	}
}

// CheckAllProviders 检查所有选中的提供者，返回失败数量对应的错误
func (hc *HealthChecker) CheckAllProviders(ctx context.Context, mode CheckMode) error {
	hc.logger.Info(fmt.Sprintf("开始执行%s检查...", mode))

	failed := 0
	if !hc.checkCaption(ctx, mode).Success {
		failed++
	}
	if !hc.checkStory(ctx, mode).Success {
		failed++
	}

	if failed > 0 {
		return fmt.Errorf("%s检查失败: %d个提供者不可用", mode, failed)
	}
	hc.logger.Info(fmt.Sprintf("所有提供者%s检查通过", mode))
	return nil
}

func (hc *HealthChecker) checkCaption(ctx context.Context, mode CheckMode) *CheckResult {
	name, pc, ok := hc.config.SelectedProvider("Caption")
	result := hc.newResult("Caption", name, mode)
	if !ok {
		return hc.finish(result, providers.MissingConfig("caption/"+name, "selected provider"))
	}

	provider, err := caption.Create(name, pc, hc.logger)
	if err != nil {
		return hc.finish(result, err)
	}
	defer provider.Cleanup()
	result.Details["type"] = pc.Type

	if mode == FunctionalCheck {
		data, _ := base64.StdEncoding.DecodeString(testImageBase64)
		asset := image.UploadedAsset{Data: data, ContentType: "image/png", FileName: "health-check.png", Size: int64(len(data))}

		if providers.NeedsFile(provider) {
			stager, err := image.NewTempStager(hc.config.Security.TempDir, hc.logger)
			if err != nil {
				return hc.finish(result, err)
			}
			path, cleanup, err := stager.Stage(asset)
			if err != nil {
				return hc.finish(result, err)
			}
			defer cleanup()
			asset.Path = path
		}

		testCtx, cancel := context.WithTimeout(ctx, hc.timeout)
		defer cancel()
		text, err := provider.Caption(testCtx, asset)
		if err != nil {
			return hc.finish(result, err)
		}
		result.Details["response_length"] = len(text)
	}

	return hc.finish(result, nil)
}

func (hc *HealthChecker) checkStory(ctx context.Context, mode CheckMode) *CheckResult {
	name, pc, ok := hc.config.SelectedProvider("Story")
	result := hc.newResult("Story", name, mode)
	if !ok {
		return hc.finish(result, providers.MissingConfig("story/"+name, "selected provider"))
	}

	provider, err := story.Create(name, pc, hc.logger)
	if err != nil {
		return hc.finish(result, err)
	}
	defer provider.Cleanup()
	result.Details["type"] = pc.Type

	if mode == FunctionalCheck {
		testCtx, cancel := context.WithTimeout(ctx, hc.timeout)
		defer cancel()
		text, err := provider.GenerateStory(testCtx, hc.storyPrompt)
		if err != nil {
			return hc.finish(result, err)
		}
		result.Details["response_length"] = len(text)
	}

	return hc.finish(result, nil)
}

func (hc *HealthChecker) newResult(module, name string, mode CheckMode) *CheckResult {
	return &CheckResult{
		Module:    module,
		Provider:  name,
		Timestamp: time.Now(),
		CheckMode: mode,
		Details:   make(map[string]interface{}),
	}
}

func (hc *HealthChecker) finish(result *CheckResult, err error) *CheckResult {
	result.Duration = time.Since(result.Timestamp)
	result.Success = err == nil
	if err != nil {
		result.Error = err
		result.Kind = providers.KindOf(err)
		hc.logger.Warn(fmt.Sprintf("%s提供者检查失败", result.Module), map[string]interface{}{
			"provider": result.Provider,
			"kind":     string(result.Kind),
			"error":    err.Error(),
		})
	}
	hc.results[result.Module] = result
	return result
}

// GetResults 获取所有检查结果
func (hc *HealthChecker) GetResults() map[string]*CheckResult {
	return hc.results
}

// PrintReport 打印检查报告
func (hc *HealthChecker) PrintReport() {
	hc.logger.Info("=== 连通性检查报告 ===")

	modules := make([]string, 0, len(hc.results))
	for module := range hc.results {
		modules = append(modules, module)
	}
	sort.Strings(modules)

	for _, module := range modules {
		result := hc.results[module]
		status := "✓ 通过"
		if !result.Success {
			status = "✗ 失败"
		}
		hc.logger.Info(fmt.Sprintf("%s/%s (%s): %s (耗时: %v)", module, result.Provider, result.CheckMode, status, result.Duration))

		if result.Error != nil {
			hc.logger.Error("  错误", map[string]interface{}{"kind": string(result.Kind), "error": result.Error.Error()})
			if result.Kind == providers.QuotaExceeded {
				hc.logger.Error("  " + providers.QuotaMessage)
			}
		}
		if len(result.Details) > 0 {
			hc.logger.Info("  详情", result.Details)
		}
	}

	hc.logger.Info("=== 检查报告结束 ===")
}

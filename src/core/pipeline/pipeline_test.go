package pipeline

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/utils"
)

type fakeCaption struct {
	text        string
	err         error
	calls       int
	gotPath     string
	pathExisted bool
}

func (f *fakeCaption) Initialize() error { return nil }
func (f *fakeCaption) Cleanup() error    { return nil }

func (f *fakeCaption) Caption(ctx context.Context, asset image.UploadedAsset) (string, error) {
	f.calls++
	f.gotPath = asset.Path
	if asset.Path != "" {
		_, err := os.Stat(asset.Path)
		f.pathExisted = err == nil
	}
	return f.text, f.err
}

// fileCaption 模拟需要文件路径的外部进程提供者
type fileCaption struct {
	*fakeCaption
}

func (f fileCaption) NeedsFile() bool { return true }

type fakeStory struct {
	text  string
	err   error
	calls int
	got   string
}

func (f *fakeStory) Initialize() error { return nil }
func (f *fakeStory) Cleanup() error    { return nil }

func (f *fakeStory) GenerateStory(ctx context.Context, description string) (string, error) {
	f.calls++
	f.got = description
	return f.text, f.err
}

type failingStager struct{}

func (failingStager) Stage(image.UploadedAsset) (string, func(), error) {
	return "", nil, errors.New("disk full")
}

func newTestPipeline(t *testing.T, captioner providers.CaptionProvider, storyteller providers.StoryProvider) *Pipeline {
	t.Helper()
	logger := utils.NewNopLogger()
	cfg := configs.DefaultSecurityConfig()
	stager, err := image.NewTempStager(t.TempDir(), logger)
	if err != nil {
		t.Fatalf("NewTempStager() error = %v", err)
	}
	return New(image.NewInputValidator(&cfg, logger), stager, captioner, storyteller, logger)
}

func isFallbackStory(s string) bool {
	for _, candidate := range fallbackStories {
		if s == candidate {
			return true
		}
	}
	return false
}

func TestScenarioAllAI(t *testing.T) {
	captioner := &fakeCaption{text: "A cute dog playing in the park"}
	storyteller := &fakeStory{text: "Once upon a time..."}
	p := newTestPipeline(t, captioner, storyteller)

	result, err := p.ProcessImage(context.Background(), []byte("test image content"), "image/jpeg", 18, "dog.jpg")
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if result.Origin != OriginAIPowered {
		t.Errorf("Origin = %q, want %q", result.Origin, OriginAIPowered)
	}
	if result.Caption != "A cute dog playing in the park" || result.Story != "Once upon a time..." {
		t.Errorf("result = %+v", result)
	}
	if result.CaptionOrigin != providers.OriginAI || result.StoryOrigin != providers.OriginAI {
		t.Errorf("origins = %s/%s", result.CaptionOrigin, result.StoryOrigin)
	}
	if result.FileName != "dog.jpg" || result.FallbackReason != "" {
		t.Errorf("result = %+v", result)
	}
	if storyteller.got != "A cute dog playing in the park" {
		t.Errorf("故事提供者收到 %q", storyteller.got)
	}
}

func TestScenarioStoryFallback(t *testing.T) {
	captioner := &fakeCaption{text: "A cute dog playing in the park"}
	storyteller := &fakeStory{err: providers.NewError("story/openai", providers.TransportFailure, errors.New("connection reset"))}
	p := newTestPipeline(t, captioner, storyteller)

	result, err := p.ProcessImage(context.Background(), []byte("test image content"), "image/jpeg", 18, "dog.jpg")
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if !isFallbackStory(result.Story) {
		t.Errorf("Story 应为兜底模板之一: %q", result.Story)
	}
	if result.Origin != OriginFallback {
		t.Errorf("Origin = %q, want %q", result.Origin, OriginFallback)
	}
	if result.CaptionOrigin != providers.OriginAI || result.StoryOrigin != providers.OriginFallback {
		t.Errorf("origins = %s/%s", result.CaptionOrigin, result.StoryOrigin)
	}
	if result.FallbackReason != "story: TransportFailure" {
		t.Errorf("FallbackReason = %q", result.FallbackReason)
	}
	if m := p.GetMetrics(); m.StoryFallbacks != 1 || m.CaptionFallbacks != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestScenarioUnsupportedType(t *testing.T) {
	captioner := &fakeCaption{text: "unused"}
	storyteller := &fakeStory{text: "unused"}
	p := newTestPipeline(t, captioner, storyteller)

	_, err := p.ProcessImage(context.Background(), []byte("hello"), "text/plain", 5, "notes.txt")
	if !errors.Is(err, image.ErrUnsupportedType) {
		t.Fatalf("error = %v, want UnsupportedType", err)
	}
	if captioner.calls != 0 || storyteller.calls != 0 {
		t.Errorf("校验失败后不应调用提供者: caption=%d story=%d", captioner.calls, storyteller.calls)
	}
	if m := p.GetMetrics(); m.ValidationRejects != 1 || m.Requests != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestScenarioDescriptionTooLong(t *testing.T) {
	storyteller := &fakeStory{text: "unused"}
	p := newTestPipeline(t, &fakeCaption{}, storyteller)

	_, err := p.ProcessDescription(context.Background(), strings.Repeat("a", 1500))
	if !errors.Is(err, image.ErrTooLong) {
		t.Fatalf("error = %v, want TooLong", err)
	}
	if storyteller.calls != 0 {
		t.Error("校验失败后不应调用故事提供者")
	}
}

func TestImageValidationErrors(t *testing.T) {
	tests := []struct {
		name        string
		data        []byte
		contentType string
		size        int64
		want        error
	}{
		{"空文件", nil, "image/png", 0, image.ErrEmptyInput},
		{"超过10MB", make([]byte, 10*1024*1024+1), "image/png", 10*1024*1024 + 1, image.ErrTooLarge},
		{"超过10MB且类型错误", make([]byte, 10*1024*1024+1), "text/plain", 0, image.ErrTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			captioner := &fakeCaption{text: "x"}
			p := newTestPipeline(t, captioner, &fakeStory{text: "x"})
			_, err := p.ProcessImage(context.Background(), tt.data, tt.contentType, tt.size, "a.png")
			if !errors.Is(err, tt.want) {
				t.Errorf("error = %v, want %v", err, tt.want)
			}
			var vErr *image.ValidationError
			if !errors.As(err, &vErr) || vErr.Message == "" {
				t.Errorf("应返回带用户提示的 ValidationError: %v", err)
			}
			if captioner.calls != 0 {
				t.Error("校验失败后不应调用提供者")
			}
		})
	}
}

func TestCaptionFallbackDeterministic(t *testing.T) {
	failure := providers.NewError("caption/openai", providers.ConfigurationMissing, errors.New("API key is not configured"))

	run := func(filename string) *Result {
		p := newTestPipeline(t, &fakeCaption{err: failure}, &fakeStory{text: "A story."})
		result, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, filename)
		if err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		return result
	}

	first := run("buddy.png")
	second := run("buddy.png")
	if first.Caption != second.Caption {
		t.Errorf("同一文件名的兜底描述应相同: %q vs %q", first.Caption, second.Caption)
	}
	if first.Caption != FallbackCaption("buddy.png") {
		t.Errorf("Caption = %q", first.Caption)
	}
	if first.CaptionOrigin != providers.OriginFallback || first.Origin != OriginFallback {
		t.Errorf("result = %+v", first)
	}
}

func TestStoryFallbackDeterministic(t *testing.T) {
	storyteller := &fakeStory{err: errors.New("boom")}
	p := newTestPipeline(t, &fakeCaption{}, storyteller)

	first, err := p.ProcessDescription(context.Background(), "a <sleepy> cat")
	if err != nil {
		t.Fatalf("ProcessDescription() error = %v", err)
	}
	second, err := p.ProcessDescription(context.Background(), "a sleepy cat")
	if err != nil {
		t.Fatalf("ProcessDescription() error = %v", err)
	}
	// 两次清洗后的描述相同，兜底故事也相同
	if first.Story != second.Story || first.Story != FallbackStory("a sleepy cat") {
		t.Errorf("兜底故事不确定: %q vs %q", first.Story, second.Story)
	}
	if storyteller.got != "a sleepy cat" {
		t.Errorf("故事提供者应收到清洗后的描述, got %q", storyteller.got)
	}
}

func TestQuotaExceededFallsBack(t *testing.T) {
	quota := providers.NewError("caption/openai", providers.QuotaExceeded, errors.New("429"))
	p := newTestPipeline(t, &fakeCaption{err: quota}, &fakeStory{err: quota})

	result, err := p.ProcessImage(context.Background(), []byte("img"), "image/gif", 3, "cat.gif")
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if result.Origin != OriginFallback {
		t.Errorf("Origin = %q", result.Origin)
	}
	if !strings.Contains(result.FallbackReason, providers.QuotaMessage) {
		t.Errorf("FallbackReason 应包含额度诊断: %q", result.FallbackReason)
	}
	if m := p.GetMetrics(); m.QuotaHits != 2 || m.CaptionFallbacks != 1 || m.StoryFallbacks != 1 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestCaptionIsSanitized(t *testing.T) {
	storyteller := &fakeStory{text: "story"}
	p := newTestPipeline(t, &fakeCaption{text: `  A "happy" <b>dog</b> & friends  `}, storyteller)

	result, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, "dog.png")
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if result.Caption != "A happy bdog/b  friends" {
		t.Errorf("Caption = %q", result.Caption)
	}
	if storyteller.got != result.Caption {
		t.Errorf("故事提供者应收到清洗后的描述: %q", storyteller.got)
	}
}

func TestEmptyCaptionAfterSanitizingFallsBack(t *testing.T) {
	p := newTestPipeline(t, &fakeCaption{text: `<>"'&`}, &fakeStory{text: "story"})

	result, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, "x.png")
	if err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if result.CaptionOrigin != providers.OriginFallback || result.Caption != FallbackCaption("x.png") {
		t.Errorf("result = %+v", result)
	}
	if result.FallbackReason != "caption: EmptyResponse" {
		t.Errorf("FallbackReason = %q", result.FallbackReason)
	}
}

func TestDescriptionOnlyUnsafeCharacters(t *testing.T) {
	storyteller := &fakeStory{text: "story"}
	p := newTestPipeline(t, &fakeCaption{}, storyteller)

	_, err := p.ProcessDescription(context.Background(), `<<>>""&&`)
	if !errors.Is(err, image.ErrEmptyInput) {
		t.Errorf("error = %v, want EmptyInput", err)
	}
	if storyteller.calls != 0 {
		t.Error("不应调用故事提供者")
	}

	_, err = p.ProcessDescription(context.Background(), "   ")
	if !errors.Is(err, image.ErrEmptyInput) {
		t.Errorf("error = %v, want EmptyInput", err)
	}
}

func TestDescriptionAI(t *testing.T) {
	p := newTestPipeline(t, &fakeCaption{}, &fakeStory{text: "  A tale of a parrot.  "})

	result, err := p.ProcessDescription(context.Background(), "a green parrot")
	if err != nil {
		t.Fatalf("ProcessDescription() error = %v", err)
	}
	if result.Origin != OriginAIPowered || result.Story != "A tale of a parrot." {
		t.Errorf("result = %+v", result)
	}
	if result.CaptionOrigin != "" || result.FileName != "" {
		t.Errorf("文字描述流程没有描述阶段: %+v", result)
	}
}

func TestEmptyDescriptionFromProviderIsProcessingError(t *testing.T) {
	p := newTestPipeline(t, &fakeCaption{text: "A cat"}, &fakeStory{err: providers.ErrEmptyDescription})

	_, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, "cat.png")
	if !errors.Is(err, ErrProcessing) {
		t.Fatalf("error = %v, want ErrProcessing", err)
	}
	if m := p.GetMetrics(); m.ProcessingFailures != 1 || m.StoryFallbacks != 0 {
		t.Errorf("metrics = %+v", m)
	}
}

func TestStagedFileIsRemoved(t *testing.T) {
	for _, captionErr := range []error{nil, errors.New("process crashed")} {
		inner := &fakeCaption{text: "A cat on a sofa", err: captionErr}
		p := newTestPipeline(t, fileCaption{inner}, &fakeStory{text: "story"})

		if _, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, "cat.png"); err != nil {
			t.Fatalf("ProcessImage() error = %v", err)
		}
		if inner.gotPath == "" || !inner.pathExisted {
			t.Fatalf("提供者调用时应能读取临时文件: path=%q existed=%v", inner.gotPath, inner.pathExisted)
		}
		if !strings.HasSuffix(inner.gotPath, ".png") {
			t.Errorf("临时文件应保留扩展名: %s", inner.gotPath)
		}
		if _, err := os.Stat(inner.gotPath); !os.IsNotExist(err) {
			t.Errorf("返回前应删除临时文件: %s", inner.gotPath)
		}
	}
}

func TestInMemoryProviderSkipsStaging(t *testing.T) {
	captioner := &fakeCaption{text: "A cat"}
	p := newTestPipeline(t, captioner, &fakeStory{text: "story"})
	p.stager = failingStager{}

	if _, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, "cat.png"); err != nil {
		t.Fatalf("ProcessImage() error = %v", err)
	}
	if captioner.gotPath != "" {
		t.Errorf("不需要文件的提供者不应收到路径: %q", captioner.gotPath)
	}
}

func TestStagingFailureAbortsRequest(t *testing.T) {
	inner := &fakeCaption{text: "A cat"}
	storyteller := &fakeStory{text: "story"}
	p := newTestPipeline(t, fileCaption{inner}, storyteller)
	p.stager = failingStager{}

	_, err := p.ProcessImage(context.Background(), []byte("img"), "image/png", 3, "cat.png")
	if !errors.Is(err, ErrProcessing) {
		t.Fatalf("error = %v, want ErrProcessing", err)
	}
	var vErr *image.ValidationError
	if errors.As(err, &vErr) {
		t.Error("暂存失败不应表现为校验错误")
	}
	if inner.calls != 0 || storyteller.calls != 0 {
		t.Error("暂存失败后不应调用提供者")
	}
}

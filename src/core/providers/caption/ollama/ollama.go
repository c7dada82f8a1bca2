package ollama

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/providers"
	"pet-story-server-go/src/core/providers/caption"
	"pet-story-server-go/src/core/utils"

	"github.com/go-resty/resty/v2"
)

// DefaultBaseURL 默认Ollama地址
const DefaultBaseURL = "http://localhost:11434"

// Provider 通过 Ollama /api/chat 调用本地视觉模型（如 llava）
type Provider struct {
	*caption.BaseProvider
	client *resty.Client
	logger *utils.Logger
}

// chatRequest Ollama API请求结构
type chatRequest struct {
	Model    string                 `json:"model"`
	Messages []chatMessage          `json:"messages"`
	Stream   bool                   `json:"stream"`
	Options  map[string]interface{} `json:"options,omitempty"`
}

// chatMessage Ollama消息结构
type chatMessage struct {
	Role    string   `json:"role"`
	Content string   `json:"content"`
	Images  []string `json:"images,omitempty"` // 纯base64，不带data URL前缀
}

// chatResponse Ollama API响应结构
type chatResponse struct {
	Model   string `json:"model"`
	Message struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"message"`
	Done  bool   `json:"done"`
	Error string `json:"error,omitempty"`
}

// 注册提供者
func init() {
	caption.Register("ollama", NewProvider)
}

// NewProvider 创建Ollama视觉提供者
func NewProvider(config *providers.Config, logger *utils.Logger) (caption.Provider, error) {
	return &Provider{
		BaseProvider: caption.NewBaseProvider(config),
		logger:       logger,
	}, nil
}

// Initialize 初始化HTTP客户端，Ollama不需要API key
func (p *Provider) Initialize() error {
	config := p.Config()
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}

	p.client = resty.New().
		SetBaseURL(strings.TrimSuffix(config.BaseURL, "/")).
		SetTimeout(config.Timeout).
		SetHeader("Content-Type", "application/json")

	p.logger.Debug("Ollama Caption初始化成功", map[string]interface{}{
		"base_url": config.BaseURL,
		"model":    config.ModelName,
	})
	return nil
}

// Caption 发送图片到 Ollama 并返回描述
func (p *Provider) Caption(ctx context.Context, asset image.UploadedAsset) (string, error) {
	config := p.Config()
	if config.ModelName == "" {
		return "", providers.MissingConfig(p.Name(), "model_name")
	}

	request := chatRequest{
		Model: config.ModelName,
		Messages: []chatMessage{
			{Role: "system", Content: providers.CaptionSystemPrompt},
			{
				Role:    "user",
				Content: providers.CaptionUserPrompt,
				Images:  []string{base64.StdEncoding.EncodeToString(asset.Data)},
			},
		},
		Stream: false,
	}
	if config.Temperature > 0 || config.TopP > 0 {
		request.Options = map[string]interface{}{
			"temperature": config.Temperature,
			"top_p":       config.TopP,
		}
	}

	var result chatResponse
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(request).
		SetResult(&result).
		SetError(&result).
		Post("/api/chat")
	if err != nil {
		return "", providers.NewError(p.Name(), providers.TransportFailure, err)
	}

	if resp.IsError() {
		detail := fmt.Errorf("ollama返回错误 %d: %s", resp.StatusCode(), resp.String())
		if providers.IsQuotaStatus(resp.StatusCode(), result.Error) {
			return "", providers.NewError(p.Name(), providers.QuotaExceeded, detail)
		}
		return "", providers.NewError(p.Name(), providers.TransportFailure, detail)
	}

	content := strings.TrimSpace(result.Message.Content)
	if content == "" {
		return "", providers.NewError(p.Name(), providers.EmptyResponse, errors.New("empty caption"))
	}
	return content, nil
}

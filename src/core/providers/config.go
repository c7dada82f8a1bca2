package providers

import (
	"time"

	"pet-story-server-go/src/configs"
)

// DefaultTimeout 远程调用默认超时
const DefaultTimeout = 60 * time.Second

// Config caption/story 提供者的运行时配置
type Config struct {
	Name        string
	Type        string
	ModelName   string
	BaseURL     string
	APIKey      string
	Temperature float64
	MaxTokens   int
	TopP        float64
	Timeout     time.Duration
	Command     string
	Args        []string
	Data        map[string]interface{}
}

// NewConfig 从 yaml 配置构造提供者配置
func NewConfig(name string, pc configs.ProviderConfig) *Config {
	return &Config{
		Name:        name,
		Type:        pc.Type,
		ModelName:   pc.ModelName,
		BaseURL:     pc.BaseURL,
		APIKey:      pc.APIKey,
		Temperature: pc.Temperature,
		MaxTokens:   pc.MaxTokens,
		TopP:        pc.TopP,
		Timeout:     pc.RequestTimeout(DefaultTimeout),
		Command:     pc.Command,
		Args:        pc.Args,
		Data:        pc.Extra,
	}
}

// String 读取 Data 中的字符串配置
func (c *Config) String(key string) string {
	if c.Data == nil {
		return ""
	}
	v, _ := c.Data[key].(string)
	return v
}

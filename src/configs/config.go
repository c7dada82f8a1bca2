package configs

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultTokenEnv 默认的模型访问令牌环境变量
	DefaultTokenEnv = "GITHUB_TOKEN"
	// DefaultModelsURL GitHub Models 推理地址
	DefaultModelsURL = "https://models.github.ai/inference"
)

// Config 主配置结构
type Config struct {
	Server struct {
		IP   string `yaml:"ip"`
		Port int    `yaml:"port"`
		Auth struct {
			Enabled bool   `yaml:"enabled"`
			Secret  string `yaml:"secret"`
		} `yaml:"auth"`
	} `yaml:"server"`

	Log struct {
		LogFormat string `yaml:"log_format"`
		LogLevel  string `yaml:"log_level"`
		LogDir    string `yaml:"log_dir"`
		LogFile   string `yaml:"log_file"`
	} `yaml:"log"`

	// TokenEnv 进程级模型令牌所在的环境变量名
	TokenEnv string `yaml:"token_env"`

	SelectedModule map[string]string `yaml:"selected_module"`

	Caption map[string]ProviderConfig `yaml:"Caption"`
	Story   map[string]ProviderConfig `yaml:"Story"`

	Security SecurityConfig `yaml:"security"`
}

// ProviderConfig caption/story 提供者的通用配置
type ProviderConfig struct {
	Type        string                 `yaml:"type"`
	ModelName   string                 `yaml:"model_name"`
	BaseURL     string                 `yaml:"url"`
	APIKey      string                 `yaml:"api_key"`
	Temperature float64                `yaml:"temperature"`
	MaxTokens   int                    `yaml:"max_tokens"`
	TopP        float64                `yaml:"top_p"`
	Timeout     string                 `yaml:"timeout"`
	Command     string                 `yaml:"command"`
	Args        []string               `yaml:"args"`
	Extra       map[string]interface{} `yaml:"extra"`
}

// RequestTimeout 解析 timeout 字段，非法或为空时返回 def
func (c ProviderConfig) RequestTimeout(def time.Duration) time.Duration {
	if c.Timeout == "" {
		return def
	}
	d, err := time.ParseDuration(c.Timeout)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

// SecurityConfig 上传内容的校验配置
type SecurityConfig struct {
	MaxFileSize          int64    `yaml:"max_file_size"`          // 最大文件大小（字节）
	AllowedTypes         []string `yaml:"allowed_types"`          // 允许的 Content-Type
	MaxDescriptionLength int      `yaml:"max_description_length"` // 描述最大字符数
	EnableDeepScan       bool     `yaml:"enable_deep_scan"`       // 解码校验图片内容
	TempDir              string   `yaml:"temp_dir"`               // 临时文件目录，空则使用系统目录
}

// DefaultSecurityConfig 默认上传校验配置
func DefaultSecurityConfig() SecurityConfig {
	return SecurityConfig{
		MaxFileSize:          10 * 1024 * 1024,
		AllowedTypes:         []string{"image/jpeg", "image/jpg", "image/png", "image/gif", "image/webp"},
		MaxDescriptionLength: 1000,
	}
}

// DefaultConfig 没有配置文件时使用的配置：openai 提供者 + GitHub Models
func DefaultConfig() *Config {
	config := &Config{}
	config.Server.IP = "0.0.0.0"
	config.Server.Port = 8080
	config.Log.LogFormat = "json"
	config.Log.LogLevel = "info"
	config.Log.LogDir = "logs"
	config.Log.LogFile = "server.log"
	config.TokenEnv = DefaultTokenEnv
	config.SelectedModule = map[string]string{
		"Caption": "openai",
		"Story":   "openai",
	}
	config.Caption = map[string]ProviderConfig{
		"openai": {
			Type:      "openai",
			ModelName: "openai/gpt-4o-mini",
			BaseURL:   DefaultModelsURL,
			Timeout:   "60s",
		},
		"mock": {Type: "mock"},
	}
	config.Story = map[string]ProviderConfig{
		"openai": {
			Type:      "openai",
			ModelName: "openai/gpt-4.1-nano",
			BaseURL:   DefaultModelsURL,
			Timeout:   "60s",
		},
		"mock": {Type: "mock"},
	}
	config.Security = DefaultSecurityConfig()
	return config
}

// LoadConfig 从文件加载配置，文件不存在时使用默认配置
func LoadConfig() (*Config, string, error) {
	path := ".config.yaml"
	if _, err := os.Stat(path); os.IsNotExist(err) {
		path = "config.yaml"
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		config := DefaultConfig()
		config.ResolveTokens()
		return config, "", nil
	}
	if err != nil {
		return nil, path, err
	}

	config, err := Parse(data)
	if err != nil {
		return nil, path, err
	}
	config.ResolveTokens()
	return config, path, nil
}

// Parse 解析 yaml 配置并补齐缺省值
func Parse(data []byte) (*Config, error) {
	config := DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, err
	}
	config.applyDefaults()
	return config, nil
}

func (c *Config) applyDefaults() {
	def := DefaultSecurityConfig()
	if c.Security.MaxFileSize <= 0 {
		c.Security.MaxFileSize = def.MaxFileSize
	}
	if len(c.Security.AllowedTypes) == 0 {
		c.Security.AllowedTypes = def.AllowedTypes
	}
	if c.Security.MaxDescriptionLength <= 0 {
		c.Security.MaxDescriptionLength = def.MaxDescriptionLength
	}
	if c.Server.Port <= 0 {
		c.Server.Port = 8080
	}
	if c.TokenEnv == "" {
		c.TokenEnv = DefaultTokenEnv
	}
	if c.SelectedModule == nil {
		c.SelectedModule = map[string]string{}
	}
}

// ResolveTokens 为未配置 api_key 的提供者填入进程级令牌。
// 令牌缺失时保持为空，由提供者在首次调用时报告 ConfigurationMissing。
func (c *Config) ResolveTokens() {
	token := os.Getenv(c.TokenEnv)
	if token == "" {
		return
	}
	for name, pc := range c.Caption {
		if pc.APIKey == "" {
			pc.APIKey = token
			c.Caption[name] = pc
		}
	}
	for name, pc := range c.Story {
		if pc.APIKey == "" {
			pc.APIKey = token
			c.Story[name] = pc
		}
	}
}

// SelectedProvider 返回某类模块选中的提供者名称和配置
func (c *Config) SelectedProvider(module string) (string, ProviderConfig, bool) {
	name := c.SelectedModule[module]
	var set map[string]ProviderConfig
	switch module {
	case "Caption":
		set = c.Caption
	case "Story":
		set = c.Story
	}
	pc, ok := set[name]
	return name, pc, ok
}

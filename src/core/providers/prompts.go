package providers

import (
	"fmt"
	"strings"

	"pet-story-server-go/src/core/utils"
)

const (
	// CaptionSystemPrompt 图片描述的系统提示词
	CaptionSystemPrompt = "You are a helpful assistant that describes images of pets. " +
		"Keep descriptions family-friendly and focus on the pet's appearance and characteristics."
	// CaptionUserPrompt 随图片发送的用户提示词
	CaptionUserPrompt = "Describe this pet image."

	// StorySystemPrompt 故事生成的系统提示词
	StorySystemPrompt = "You are a creative storyteller who writes fun, family-friendly short stories about pets. " +
		"Keep stories under 500 words and appropriate for all ages."

	// MaxStoryInputLength 发送给故事模型的描述最大字符数
	MaxStoryInputLength = 1000
)

// StoryUserPrompt 嵌入清洗后描述的用户提示词
func StoryUserPrompt(description string) string {
	return fmt.Sprintf("Write a fun short story about a pet described as: %s", description)
}

// PrepareDescription 故事提供者调用模型前的输入检查：
// 去空白后为空返回 ErrEmptyDescription，超过 1000 字符时截断。
func PrepareDescription(description string) (string, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return "", ErrEmptyDescription
	}
	return utils.TruncateRunes(description, MaxStoryInputLength), nil
}

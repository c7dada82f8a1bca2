package utils

import (
	"strings"
	"unicode/utf8"
)

// MaxSanitizedLength 清洗后文本的最大字符数
const MaxSanitizedLength = 500

// unsafeChars 会被直接删除（不做转义）的字符
var unsafeChars = strings.NewReplacer("<", "", ">", "", `"`, "", "'", "", "&", "")

// SanitizeText 清洗将要回填进提示词或页面的文本：
// 删除 < > " ' &，去除首尾空白，截断到 500 个字符。
// 结果对再次清洗保持不变。
func SanitizeText(text string) string {
	if text == "" {
		return ""
	}
	cleaned := strings.TrimSpace(unsafeChars.Replace(text))
	cleaned = TruncateRunes(cleaned, MaxSanitizedLength)
	// 截断可能在末尾留下空白
	return strings.TrimSpace(cleaned)
}

// TruncateRunes 按字符（rune）截断，不会切开多字节字符
func TruncateRunes(text string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(text) <= max {
		return text
	}
	runes := []rune(text)
	return string(runes[:max])
}

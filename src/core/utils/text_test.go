package utils

import (
	"strings"
	"testing"
	"unicode/utf8"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{
			name:     "空字符串",
			input:    "",
			expected: "",
		},
		{
			name:     "普通描述",
			input:    "A cute dog playing in the park",
			expected: "A cute dog playing in the park",
		},
		{
			name:     "删除尖括号和脚本",
			input:    "<script>alert('x')</script> fluffy cat",
			expected: "scriptalert(x)/script fluffy cat",
		},
		{
			name:     "删除引号和&",
			input:    `Tom & "Jerry's" friend`,
			expected: "Tom  Jerrys friend",
		},
		{
			name:     "去除首尾空白",
			input:    "  \t a sleepy hamster \n ",
			expected: "a sleepy hamster",
		},
		{
			name:     "只有危险字符",
			input:    `<>"'&`,
			expected: "",
		},
		{
			name:     "删除后露出的空白也被去除",
			input:    "< a parrot >",
			expected: "a parrot",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := SanitizeText(tt.input)
			if result != tt.expected {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestSanitizeText_LengthCap(t *testing.T) {
	inputs := []string{
		strings.Repeat("a", 1500),
		strings.Repeat("<a>", 600),
		strings.Repeat("猫", 800),
		strings.Repeat("a ", 400),
		"   " + strings.Repeat("b", 499) + "   ",
		strings.Repeat("a", 499) + " " + strings.Repeat("c", 10),
	}

	for _, in := range inputs {
		out := SanitizeText(in)
		if n := utf8.RuneCountInString(out); n > MaxSanitizedLength {
			t.Errorf("SanitizeText 结果长度 %d 超过 %d", n, MaxSanitizedLength)
		}
		if strings.ContainsAny(out, `<>"'&`) {
			t.Errorf("SanitizeText 结果仍包含危险字符: %q", out)
		}
		if out != strings.TrimSpace(out) {
			t.Errorf("SanitizeText 结果首尾有空白: %q", out)
		}
	}
}

func TestSanitizeText_Idempotent(t *testing.T) {
	inputs := []string{
		"",
		"plain text",
		"  <b>bold</b> & 'quoted'  ",
		strings.Repeat("x", 499) + "   tail",
		strings.Repeat("a ", 400),
		strings.Repeat("狗<", 700),
		"\xff\xfe broken utf8 " + strings.Repeat("z", 600),
	}

	for _, in := range inputs {
		once := SanitizeText(in)
		twice := SanitizeText(once)
		if once != twice {
			t.Errorf("SanitizeText 不幂等: %q -> %q -> %q", in, once, twice)
		}
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"不需要截断", "hello", 10, "hello"},
		{"截断ASCII", "hello world", 5, "hello"},
		{"截断多字节字符", "小猫咪在睡觉", 3, "小猫咪"},
		{"上限为0", "anything", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := TruncateRunes(tt.input, tt.max); got != tt.expected {
				t.Errorf("TruncateRunes(%q, %d) = %q, want %q", tt.input, tt.max, got, tt.expected)
			}
		})
	}
}

func BenchmarkSanitizeText(b *testing.B) {
	testString := strings.Repeat(`A "fluffy" <orange> cat & friends `, 40)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		SanitizeText(testString)
	}
}

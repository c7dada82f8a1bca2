package pipeline

import (
	"github.com/cespare/xxhash/v2"
)

// 兜底描述，按文件名哈希选择
var fallbackCaptions = []string{
	"A charming pet with bright, curious eyes and a friendly expression.",
	"An adorable companion relaxing comfortably, looking happy and content.",
	"A playful pet full of energy, ready for the next big adventure.",
	"A fluffy friend with a gentle face and a soft, cozy-looking coat.",
	"A lovable pet posing proudly, clearly the star of the household.",
}

// 兜底故事，按清洗后描述的哈希选择
var fallbackStories = []string{
	"Once upon a time, a curious little pet discovered a sunny spot by the window. " +
		"Every afternoon it watched the birds hop across the garden, dreaming of the day it would join them. " +
		"One day a small sparrow landed right on the sill, and the two became the best of friends.",
	"In a cozy house at the end of a quiet street lived a pet who loved surprises. " +
		"When the family forgot a birthday, the pet gathered socks, leaves and a favorite toy into a proud little pile. " +
		"Everyone laughed, and it became the best birthday the family ever had.",
	"Every morning, a brave pet set out to explore the backyard jungle. " +
		"It chased butterflies, guarded the flower beds and bravely faced the garden hose. " +
		"By sunset it curled up on the porch, tired and happy, already planning the next adventure.",
}

// FallbackCaption 同一个文件名总是得到同一条兜底描述
func FallbackCaption(filename string) string {
	return pick(fallbackCaptions, filename)
}

// FallbackStory 同一段清洗后描述总是得到同一个兜底故事
func FallbackStory(description string) string {
	return pick(fallbackStories, description)
}

func pick(candidates []string, key string) string {
	return candidates[xxhash.Sum64String(key)%uint64(len(candidates))]
}

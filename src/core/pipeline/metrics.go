package pipeline

import "sync/atomic"

// Metrics 管线统计信息
type Metrics struct {
	Requests           int64 `json:"requests"`            // 总请求数
	ValidationRejects  int64 `json:"validation_rejects"`  // 校验拒绝数
	CaptionFallbacks   int64 `json:"caption_fallbacks"`   // 描述兜底次数
	StoryFallbacks     int64 `json:"story_fallbacks"`     // 故事兜底次数
	QuotaHits          int64 `json:"quota_hits"`          // 额度耗尽次数
	ProcessingFailures int64 `json:"processing_failures"` // 请求级失败次数
}

func (m *Metrics) snapshot() Metrics {
	return Metrics{
		Requests:           atomic.LoadInt64(&m.Requests),
		ValidationRejects:  atomic.LoadInt64(&m.ValidationRejects),
		CaptionFallbacks:   atomic.LoadInt64(&m.CaptionFallbacks),
		StoryFallbacks:     atomic.LoadInt64(&m.StoryFallbacks),
		QuotaHits:          atomic.LoadInt64(&m.QuotaHits),
		ProcessingFailures: atomic.LoadInt64(&m.ProcessingFailures),
	}
}

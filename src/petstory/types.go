package petstory

import (
	"pet-story-server-go/src/core/pipeline"
	"pet-story-server-go/src/core/providers"
)

// StoryResponse 上传和描述接口的标准响应
type StoryResponse struct {
	Success       bool             `json:"success"`
	Caption       string           `json:"caption,omitempty"`
	Story         string           `json:"story,omitempty"`
	Origin        string           `json:"origin,omitempty"`
	CaptionOrigin providers.Origin `json:"caption_origin,omitempty"`
	StoryOrigin   providers.Origin `json:"story_origin,omitempty"`
	FileName      string           `json:"file_name,omitempty"`
	Message       string           `json:"message,omitempty"`
}

// StatusResponse 服务状态
type StatusResponse struct {
	Message         string           `json:"message"`
	CaptionProvider string           `json:"caption_provider"`
	StoryProvider   string           `json:"story_provider"`
	AuthEnabled     bool             `json:"auth_enabled"`
	Metrics         pipeline.Metrics `json:"metrics"`
}

// DescribeRequest JSON 形式的文字描述请求
type DescribeRequest struct {
	Description string `json:"description"`
}

func newStoryResponse(result *pipeline.Result) StoryResponse {
	return StoryResponse{
		Success:       true,
		Caption:       result.Caption,
		Story:         result.Story,
		Origin:        result.Origin,
		CaptionOrigin: result.CaptionOrigin,
		StoryOrigin:   result.StoryOrigin,
		FileName:      result.FileName,
	}
}

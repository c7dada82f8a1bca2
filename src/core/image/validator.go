package image

import (
	"bytes"
	"fmt"
	"image"
	"strings"
	"sync/atomic"
	"unicode/utf8"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/utils"

	_ "image/gif"  // 注册GIF解码器
	_ "image/jpeg" // 注册JPEG解码器
	_ "image/png"  // 注册PNG解码器

	_ "golang.org/x/image/webp" // 注册WEBP解码器
)

const (
	msgEmptyFile        = "Please select a file to upload."
	msgFileTooLarge     = "File size must be less than 10MB."
	msgUnsupportedType  = "Please upload a valid image file (JPEG, PNG, GIF, WebP)."
	msgEmptyDescription = "Please describe your pet."
	msgDescriptionLong  = "Description must be at most 1000 characters."
)

// InputValidator 在任何处理之前校验不可信输入
type InputValidator struct {
	config  *configs.SecurityConfig
	logger  *utils.Logger
	metrics ImageMetrics
}

// NewInputValidator 创建新的输入校验器
func NewInputValidator(config *configs.SecurityConfig, logger *utils.Logger) *InputValidator {
	return &InputValidator{
		config: config,
		logger: logger,
	}
}

// ValidateImage 校验上传图片：非空、不超过大小上限、Content-Type 在白名单中
func (v *InputValidator) ValidateImage(asset UploadedAsset) error {
	atomic.AddInt64(&v.metrics.TotalValidated, 1)

	size := int64(len(asset.Data))
	if size == 0 {
		return v.reject(EmptyInput, msgEmptyFile, "上传文件为空", asset)
	}

	if size > v.config.MaxFileSize || asset.Size > v.config.MaxFileSize {
		return v.reject(TooLarge, msgFileTooLarge,
			fmt.Sprintf("文件大小超限: %d bytes，最大允许: %d bytes", max(size, asset.Size), v.config.MaxFileSize), asset)
	}

	contentType := normalizeContentType(asset.ContentType)
	if !v.isTypeAllowed(contentType) {
		return v.reject(UnsupportedType, msgUnsupportedType,
			fmt.Sprintf("不支持的格式: %q", asset.ContentType), asset)
	}

	if v.config.EnableDeepScan {
		format, err := decodeFormat(asset.Data)
		if err != nil {
			atomic.AddInt64(&v.metrics.DeepScanRejects, 1)
			return v.reject(UnsupportedType, msgUnsupportedType,
				fmt.Sprintf("图片解码失败: %v", err), asset)
		}
		v.logger.Debug("图片深度校验通过", map[string]interface{}{
			"format":       format,
			"content_type": contentType,
		})
	}

	return nil
}

// ValidateDescription 校验文本描述：去空白后非空，原始长度不超过上限
func (v *InputValidator) ValidateDescription(text string) error {
	atomic.AddInt64(&v.metrics.TotalValidated, 1)

	if strings.TrimSpace(text) == "" {
		return v.reject(EmptyInput, msgEmptyDescription, "描述为空", UploadedAsset{})
	}

	// 长度检查在清洗之前
	if n := utf8.RuneCountInString(text); n > v.config.MaxDescriptionLength {
		return v.reject(TooLong, msgDescriptionLong,
			fmt.Sprintf("描述长度 %d 超过上限 %d", n, v.config.MaxDescriptionLength), UploadedAsset{})
	}

	return nil
}

func (v *InputValidator) reject(kind ValidationKind, message, detail string, asset UploadedAsset) error {
	atomic.AddInt64(&v.metrics.FailedValidations, 1)
	v.logger.Warn("输入校验失败", map[string]interface{}{
		"kind":         string(kind),
		"detail":       detail,
		"file_name":    asset.FileName,
		"content_type": asset.ContentType,
	})
	return &ValidationError{Kind: kind, Message: message, Detail: detail}
}

// isTypeAllowed 检查 Content-Type 是否被允许
func (v *InputValidator) isTypeAllowed(contentType string) bool {
	for _, allowed := range v.config.AllowedTypes {
		if strings.ToLower(allowed) == contentType {
			return true
		}
	}
	return false
}

// GetMetrics 获取校验统计信息
func (v *InputValidator) GetMetrics() ImageMetrics {
	return ImageMetrics{
		TotalValidated:    atomic.LoadInt64(&v.metrics.TotalValidated),
		FailedValidations: atomic.LoadInt64(&v.metrics.FailedValidations),
		DeepScanRejects:   atomic.LoadInt64(&v.metrics.DeepScanRejects),
	}
}

// normalizeContentType 小写并去掉参数部分，如 "image/PNG; q=1" -> "image/png"
func normalizeContentType(contentType string) string {
	mediaType, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// decodeFormat 用标准解码器读取图片头，返回实际格式
func decodeFormat(data []byte) (string, error) {
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	return format, nil
}

package image

import "fmt"

// UploadedAsset 单次请求内的上传图片，只在管线执行期间存在，不落盘保存
type UploadedAsset struct {
	Data        []byte // 图片原始字节
	ContentType string // 客户端声明的 Content-Type
	FileName    string // 客户端声明的文件名
	Size        int64  // 客户端声明的大小
	Path        string // 暂存的临时文件路径，仅对需要文件路径的提供者设置
}

// ValidationKind 校验失败类型
type ValidationKind string

const (
	EmptyInput      ValidationKind = "EmptyInput"
	TooLarge        ValidationKind = "TooLarge"
	TooLong         ValidationKind = "TooLong"
	UnsupportedType ValidationKind = "UnsupportedType"
)

// ValidationError 输入校验失败，只终止当前请求
type ValidationError struct {
	Kind    ValidationKind
	Message string // 面向用户的提示
	Detail  string // 面向运维的细节
}

func (e *ValidationError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: %s", e.Kind, e.Detail)
	}
	return string(e.Kind)
}

// Is 同类型的校验错误视为相等，便于 errors.Is(err, image.ErrTooLarge)
func (e *ValidationError) Is(target error) bool {
	t, ok := target.(*ValidationError)
	return ok && t.Kind == e.Kind
}

var (
	ErrEmptyInput      = &ValidationError{Kind: EmptyInput}
	ErrTooLarge        = &ValidationError{Kind: TooLarge}
	ErrTooLong         = &ValidationError{Kind: TooLong}
	ErrUnsupportedType = &ValidationError{Kind: UnsupportedType}
)

// ImageMetrics 校验统计信息
type ImageMetrics struct {
	TotalValidated    int64 // 总校验次数
	FailedValidations int64 // 校验失败次数
	DeepScanRejects   int64 // 深度扫描拒绝次数
}

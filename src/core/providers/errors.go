package providers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ErrorKind 提供者失败类型
type ErrorKind string

const (
	ConfigurationMissing ErrorKind = "ConfigurationMissing"
	TransportFailure     ErrorKind = "TransportFailure"
	EmptyResponse        ErrorKind = "EmptyResponse"
	QuotaExceeded        ErrorKind = "QuotaExceeded"
)

// QuotaMessage 额度耗尽时给运维看的诊断信息
const QuotaMessage = "model API budget limit reached, check the account or use a different API key"

// ErrEmptyDescription 描述为空，属于调用方问题，不触发兜底
var ErrEmptyDescription = errors.New("description cannot be empty")

// ProviderError 提供者调用失败，总是由管线兜底吸收
type ProviderError struct {
	Provider string
	Kind     ErrorKind
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Kind == QuotaExceeded {
		return fmt.Sprintf("%s: %s (%s): %v", e.Provider, e.Kind, QuotaMessage, e.Err)
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Provider, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewError 构造提供者错误
func NewError(provider string, kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: provider, Kind: kind, Err: err}
}

// MissingConfig 缺少凭证或配置
func MissingConfig(provider, what string) *ProviderError {
	return NewError(provider, ConfigurationMissing, fmt.Errorf("%s is not configured", what))
}

// KindOf 提取错误类型，非 ProviderError 视为传输失败
func KindOf(err error) ErrorKind {
	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr.Kind
	}
	return TransportFailure
}

// Classify 把底层调用错误归类为 ProviderError
func Classify(provider string, err error) *ProviderError {
	if err == nil {
		return nil
	}

	var pErr *ProviderError
	if errors.As(err, &pErr) {
		return pErr
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if IsQuotaStatus(apiErr.HTTPStatusCode, apiErr.Message) {
			return NewError(provider, QuotaExceeded, err)
		}
		return NewError(provider, TransportFailure, err)
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		body := ""
		if reqErr.Err != nil {
			body = reqErr.Err.Error()
		}
		if IsQuotaStatus(reqErr.HTTPStatusCode, body) {
			return NewError(provider, QuotaExceeded, err)
		}
		return NewError(provider, TransportFailure, err)
	}

	if IsQuotaStatus(0, err.Error()) {
		return NewError(provider, QuotaExceeded, err)
	}
	return NewError(provider, TransportFailure, err)
}

// IsQuotaStatus 429 或消息中提到额度/预算上限
func IsQuotaStatus(statusCode int, message string) bool {
	if statusCode == http.StatusTooManyRequests {
		return true
	}
	msg := strings.ToLower(message)
	return strings.Contains(msg, "budget limit") ||
		strings.Contains(msg, "quota") ||
		strings.Contains(msg, "rate limit")
}

package petstory

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/auth"
	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/pipeline"
	"pet-story-server-go/src/core/utils"

	"github.com/gin-gonic/gin"
)

const (
	// 多部分表单中除文件外的额外开销
	multipartOverhead = 1 << 20

	msgProcessingFailed = "An error occurred while processing your image. Please try again."
	msgFileTooLarge     = "File size must be less than 10MB."
	msgUnauthorized     = "invalid or expired token"
)

// DefaultStoryService 通过 HTTP 暴露图片和文字两条处理流程
type DefaultStoryService struct {
	logger    *utils.Logger
	config    *configs.Config
	pipeline  *pipeline.Pipeline
	authToken *auth.AuthToken // 未启用认证时为 nil
}

// NewDefaultStoryService 构造函数
func NewDefaultStoryService(config *configs.Config, p *pipeline.Pipeline, logger *utils.Logger) (*DefaultStoryService, error) {
	service := &DefaultStoryService{
		logger:   logger,
		config:   config,
		pipeline: p,
	}

	if config.Server.Auth.Enabled {
		authToken, err := auth.NewAuthToken(config.Server.Auth.Secret, 0)
		if err != nil {
			return nil, fmt.Errorf("初始化认证失败: %v", err)
		}
		service.authToken = authToken
	}

	return service, nil
}

// Start 实现 StoryService 接口，注册所有故事相关路由
func (s *DefaultStoryService) Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error {
	engine.GET("/", s.handleIndex)

	apiGroup.GET("/story", s.handleStatus)
	apiGroup.OPTIONS("/story/upload", s.handleOptions)
	apiGroup.OPTIONS("/story/describe", s.handleOptions)
	apiGroup.POST("/story/upload", s.authMiddleware(), s.handleUpload)
	apiGroup.POST("/story/describe", s.authMiddleware(), s.handleDescribe)

	s.logger.Info("故事HTTP服务路由注册完成", map[string]interface{}{
		"auth_enabled": s.authToken != nil,
	})
	return nil
}

// handleIndex 首页只返回简单文本
func (s *DefaultStoryService) handleIndex(c *gin.Context) {
	c.String(http.StatusOK, "Pet story service is running. POST an image to /api/story/upload or a description to /api/story/describe.")
}

// handleOptions 处理OPTIONS请求（CORS）
func (s *DefaultStoryService) handleOptions(c *gin.Context) {
	s.addCORSHeaders(c)
	c.Status(http.StatusOK)
}

// handleStatus 状态检查
func (s *DefaultStoryService) handleStatus(c *gin.Context) {
	s.addCORSHeaders(c)

	c.JSON(http.StatusOK, StatusResponse{
		Message:         "Pet story service is running",
		CaptionProvider: s.config.SelectedModule["Caption"],
		StoryProvider:   s.config.SelectedModule["Story"],
		AuthEnabled:     s.authToken != nil,
		Metrics:         s.pipeline.GetMetrics(),
	})
}

// handleUpload 处理图片上传
func (s *DefaultStoryService) handleUpload(c *gin.Context) {
	s.addCORSHeaders(c)

	maxSize := s.config.Security.MaxFileSize
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxSize+multipartOverhead)

	var (
		data        []byte
		contentType string
		fileName    string
		size        int64
	)

	file, header, err := c.Request.FormFile("image")
	switch {
	case err == nil:
		defer file.Close()
		// 最多读取上限加一个字节，超限由校验器判断
		data, err = io.ReadAll(io.LimitReader(file, maxSize+1))
		if err != nil {
			s.logger.Warn("读取上传文件失败", map[string]interface{}{"error": err.Error()})
			s.respondError(c, http.StatusBadRequest, msgProcessingFailed)
			return
		}
		contentType = header.Header.Get("Content-Type")
		fileName = header.Filename
		size = header.Size
	case isBodyTooLarge(err):
		s.logger.Warn("上传请求体超限", map[string]interface{}{"limit": maxSize})
		s.respondError(c, http.StatusBadRequest, msgFileTooLarge)
		return
	default:
		// 没有文件时交给校验器报告 EmptyInput
		s.logger.Debug("请求中没有图片文件", map[string]interface{}{"error": err.Error()})
	}

	s.logger.Info("收到图片上传请求", map[string]interface{}{
		"file_name":    fileName,
		"size":         size,
		"content_type": contentType,
	})

	result, err := s.pipeline.ProcessImage(c.Request.Context(), data, contentType, size, fileName)
	s.respond(c, result, err)
}

// handleDescribe 处理文字描述，支持表单和 JSON
func (s *DefaultStoryService) handleDescribe(c *gin.Context) {
	s.addCORSHeaders(c)

	var description string
	if c.ContentType() == gin.MIMEJSON {
		var req DescribeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			s.respondError(c, http.StatusBadRequest, "invalid JSON body")
			return
		}
		description = req.Description
	} else {
		description = c.PostForm("description")
	}

	s.logger.Info("收到文字描述请求", map[string]interface{}{
		"length": len([]rune(description)),
	})

	result, err := s.pipeline.ProcessDescription(c.Request.Context(), description)
	s.respond(c, result, err)
}

// respond 校验错误返回 400，其余失败返回 500 和通用提示
func (s *DefaultStoryService) respond(c *gin.Context, result *pipeline.Result, err error) {
	if err == nil {
		if result.FallbackReason != "" {
			s.logger.Warn("请求使用了兜底结果", map[string]interface{}{"reason": result.FallbackReason})
		}
		c.JSON(http.StatusOK, newStoryResponse(result))
		return
	}

	var vErr *image.ValidationError
	if errors.As(err, &vErr) {
		s.respondError(c, http.StatusBadRequest, vErr.Message)
		return
	}

	s.logger.Error("请求处理失败", err)
	s.respondError(c, http.StatusInternalServerError, msgProcessingFailed)
}

// authMiddleware 启用认证时校验 Bearer 令牌
func (s *DefaultStoryService) authMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.authToken == nil {
			c.Next()
			return
		}

		authHeader := c.GetHeader("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			s.addCORSHeaders(c)
			s.respondError(c, http.StatusUnauthorized, msgUnauthorized)
			c.Abort()
			return
		}

		clientID, err := s.authToken.VerifyToken(strings.TrimPrefix(authHeader, "Bearer "))
		if err != nil {
			s.logger.Warn("认证token验证失败", map[string]interface{}{"error": err.Error()})
			s.addCORSHeaders(c)
			s.respondError(c, http.StatusUnauthorized, msgUnauthorized)
			c.Abort()
			return
		}

		c.Set("client_id", clientID)
		c.Next()
	}
}

// addCORSHeaders 添加CORS头
func (s *DefaultStoryService) addCORSHeaders(c *gin.Context) {
	c.Header("Access-Control-Allow-Headers", "content-type, authorization")
	c.Header("Access-Control-Allow-Origin", "*")
	c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
}

// respondError 返回错误响应
func (s *DefaultStoryService) respondError(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, StoryResponse{
		Success: false,
		Message: message,
	})
}

func isBodyTooLarge(err error) bool {
	var maxErr *http.MaxBytesError
	return errors.As(err, &maxErr)
}

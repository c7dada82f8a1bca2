package petstory

import (
	"context"

	"github.com/gin-gonic/gin"
)

// StoryService 定义宠物故事服务接口
type StoryService interface {
	// 将故事服务的路由注册到 engine 与 apiGroup
	Start(ctx context.Context, engine *gin.Engine, apiGroup *gin.RouterGroup) error
}

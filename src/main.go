package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/auth"
	"pet-story-server-go/src/core/image"
	"pet-story-server-go/src/core/pipeline"
	"pet-story-server-go/src/core/providers/caption"
	"pet-story-server-go/src/core/providers/story"
	"pet-story-server-go/src/core/utils"
	"pet-story-server-go/src/petstory"

	// 导入所有providers以确保init函数被调用
	_ "pet-story-server-go/src/core/providers/caption/mock"
	_ "pet-story-server-go/src/core/providers/caption/ollama"
	_ "pet-story-server-go/src/core/providers/caption/openai"
	_ "pet-story-server-go/src/core/providers/caption/script"
	_ "pet-story-server-go/src/core/providers/story/mock"
	_ "pet-story-server-go/src/core/providers/story/ollama"
	_ "pet-story-server-go/src/core/providers/story/openai"
	_ "pet-story-server-go/src/core/providers/story/script"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

func LoadConfigAndLogger() (*configs.Config, *utils.Logger, error) {
	// 先加载 .env，令牌解析依赖环境变量
	envErr := godotenv.Load()

	// 加载配置,默认使用.config.yaml
	config, configPath, err := configs.LoadConfig()
	if err != nil {
		return nil, nil, err
	}

	// 初始化日志系统
	logger, err := utils.NewLogger(config)
	if err != nil {
		return nil, nil, err
	}
	if configPath == "" {
		configPath = "内置默认配置"
	}
	logger.Info(fmt.Sprintf("日志系统初始化成功, 配置文件路径: %s", configPath))
	if envErr != nil {
		logger.Warn("未找到 .env 文件，使用系统环境变量")
	}

	return config, logger, nil
}

// BuildPipeline 按配置创建提供者并组装处理管线
func BuildPipeline(config *configs.Config, logger *utils.Logger) (*pipeline.Pipeline, func(), error) {
	captionName, captionConfig, ok := config.SelectedProvider("Caption")
	if !ok {
		return nil, nil, fmt.Errorf("未找到选中的Caption提供者配置: %q", captionName)
	}
	captioner, err := caption.Create(captionName, captionConfig, logger)
	if err != nil {
		return nil, nil, err
	}

	storyName, storyConfig, ok := config.SelectedProvider("Story")
	if !ok {
		return nil, nil, fmt.Errorf("未找到选中的Story提供者配置: %q", storyName)
	}
	storyteller, err := story.Create(storyName, storyConfig, logger)
	if err != nil {
		return nil, nil, err
	}

	stager, err := image.NewTempStager(config.Security.TempDir, logger)
	if err != nil {
		return nil, nil, err
	}

	validator := image.NewInputValidator(&config.Security, logger)
	p := pipeline.New(validator, stager, captioner, storyteller, logger.WithTag("pipeline"))

	cleanup := func() {
		if err := captioner.Cleanup(); err != nil {
			logger.Warn("清理Caption提供者失败", err)
		}
		if err := storyteller.Cleanup(); err != nil {
			logger.Warn("清理Story提供者失败", err)
		}
	}

	logger.Info("处理管线初始化成功", map[string]interface{}{
		"caption_provider": captionName,
		"caption_type":     captionConfig.Type,
		"story_provider":   storyName,
		"story_type":       storyConfig.Type,
	})
	return p, cleanup, nil
}

func StartHttpServer(config *configs.Config, logger *utils.Logger, p *pipeline.Pipeline, g *errgroup.Group, groupCtx context.Context) (*http.Server, error) {
	// 初始化Gin引擎
	if config.Log.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()
	router.MaxMultipartMemory = config.Security.MaxFileSize + 1

	// API路由全部挂载到/api前缀下
	apiGroup := router.Group("/api")

	storyService, err := petstory.NewDefaultStoryService(config, p, logger.WithTag("http"))
	if err != nil {
		logger.Error("故事服务初始化失败", err)
		return nil, err
	}
	if err := storyService.Start(groupCtx, router, apiGroup); err != nil {
		logger.Error("故事服务启动失败", err)
		return nil, err
	}

	// HTTP Server（支持优雅关机）
	addr := net.JoinHostPort(config.Server.IP, strconv.Itoa(config.Server.Port))
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g.Go(func() error {
		logger.Info(fmt.Sprintf("Gin 服务已启动，访问地址: http://%s", addr))

		// 在单独的 goroutine 中监听关闭信号
		go func() {
			<-groupCtx.Done()
			logger.Info("收到关闭信号，开始关闭HTTP服务...")

			// 创建关闭超时上下文
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := httpServer.Shutdown(shutdownCtx); err != nil {
				logger.Error("HTTP服务关闭失败", err)
			} else {
				logger.Info("HTTP服务已优雅关闭")
			}
		}()

		// ListenAndServe 返回 ErrServerClosed 时表示正常关闭
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("HTTP 服务启动失败", err)
			return err
		}
		return nil
	})

	return httpServer, nil
}

func GracefulShutdown(cancel context.CancelFunc, logger *utils.Logger, g *errgroup.Group) {
	// 监听系统信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	// 服务自身失败时也要退出
	done := make(chan error, 1)
	go func() {
		done <- g.Wait()
	}()

	select {
	case sig := <-sigChan:
		logger.Info(fmt.Sprintf("接收到系统信号: %v，开始优雅关闭服务", sig))
	case err := <-done:
		if err != nil {
			logger.Error("服务异常退出", err)
			os.Exit(1)
		}
		return
	}

	// 取消上下文，通知所有服务开始关闭
	cancel()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("服务关闭过程中出现错误", err)
			os.Exit(1)
		}
		logger.Info("所有服务已优雅关闭")
	case <-time.After(15 * time.Second):
		logger.Error("服务关闭超时，强制退出")
		os.Exit(1)
	}
}

// issueToken 为客户端签发访问令牌后退出
func issueToken(config *configs.Config, clientID string) error {
	at, err := auth.NewAuthToken(config.Server.Auth.Secret, 0)
	if err != nil {
		return err
	}
	token, err := at.GenerateToken(clientID)
	if err != nil {
		return err
	}
	fmt.Println(token)
	return nil
}

func main() {
	tokenFor := flag.String("issue-token", "", "为指定客户端签发访问令牌后退出")
	flag.Parse()

	// 加载配置和初始化日志系统
	config, logger, err := LoadConfigAndLogger()
	if err != nil {
		fmt.Println("加载配置或初始化日志系统失败:", err)
		os.Exit(1)
	}
	defer logger.Close()

	if *tokenFor != "" {
		if err := issueToken(config, *tokenFor); err != nil {
			logger.Error("签发令牌失败", err)
			os.Exit(1)
		}
		return
	}

	p, cleanup, err := BuildPipeline(config, logger)
	if err != nil {
		logger.Error("初始化处理管线失败", err)
		os.Exit(1)
	}
	defer cleanup()

	// 创建可取消的上下文
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 用 errgroup 管理服务
	g, groupCtx := errgroup.WithContext(ctx)

	if _, err := StartHttpServer(config, logger, p, g, groupCtx); err != nil {
		logger.Error("启动 Http 服务失败", err)
		cancel()
		os.Exit(1)
	}

	// 启动优雅关机处理
	GracefulShutdown(cancel, logger, g)

	logger.Info("程序已成功退出")
}

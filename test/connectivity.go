package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"pet-story-server-go/src/configs"
	"pet-story-server-go/src/core/health"
	"pet-story-server-go/src/core/utils"

	// 导入所有providers以确保init函数被调用
	_ "pet-story-server-go/src/core/providers/caption/mock"
	_ "pet-story-server-go/src/core/providers/caption/ollama"
	_ "pet-story-server-go/src/core/providers/caption/openai"
	_ "pet-story-server-go/src/core/providers/caption/script"
	_ "pet-story-server-go/src/core/providers/story/mock"
	_ "pet-story-server-go/src/core/providers/story/ollama"
	_ "pet-story-server-go/src/core/providers/story/openai"
	_ "pet-story-server-go/src/core/providers/story/script"

	"github.com/joho/godotenv"
)

func main() {
	timeout := flag.Duration("timeout", 30*time.Second, "单次调用超时")
	basicOnly := flag.Bool("basic", false, "只做基础检查，不调用模型")
	flag.Parse()

	fmt.Println("=== 连通性检查测试 ===")

	_ = godotenv.Load()

	// 加载配置
	config, path, err := configs.LoadConfig()
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}
	log.Printf("使用配置文件: %s", path)

	// 创建日志记录器
	logger, err := utils.NewLogger(config)
	if err != nil {
		log.Fatalf("创建日志记录器失败: %v", err)
	}
	defer logger.Close()

	// 打印选中的模块
	fmt.Printf("\n选中的模块:\n")
	for moduleType, name := range config.SelectedModule {
		fmt.Printf("  %s: %s\n", moduleType, name)
	}

	hc := health.NewHealthChecker(config, logger, *timeout)
	ctx := context.Background()

	fmt.Printf("\n开始执行基础连通性检查...\n")
	if err := hc.CheckAllProviders(ctx, health.BasicCheck); err != nil {
		fmt.Printf("\n❌ 基础连通性检查失败: %v\n", err)
	} else {
		fmt.Printf("\n✅ 基础连通性检查通过！\n")
	}
	hc.PrintReport()

	if *basicOnly {
		return
	}

	fmt.Printf("\n开始执行功能性检查...\n")
	if err := hc.CheckAllProviders(ctx, health.FunctionalCheck); err != nil {
		fmt.Printf("\n❌ 功能性检查失败: %v\n", err)
		fmt.Println("服务仍可启动，失败的阶段会使用兜底结果。")
	} else {
		fmt.Printf("\n✅ 功能性检查通过！\n")
	}
	hc.PrintReport()
}

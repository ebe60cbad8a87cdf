// Package main 是应用程序的入口点。
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"studymate-go/internal/config"
	"studymate-go/internal/handler"
	"studymate-go/internal/middleware"
	"studymate-go/internal/pipeline"
	"studymate-go/internal/service"
	"studymate-go/internal/store"
	"studymate-go/pkg/database"
	"studymate-go/pkg/embedding"
	"studymate-go/pkg/extract"
	"studymate-go/pkg/kafka"
	"studymate-go/pkg/llm"
	"studymate-go/pkg/log"
	"studymate-go/pkg/storage"
	"studymate-go/pkg/token"

	"github.com/gin-gonic/gin"
)

func main() {
	// 1. 初始化配置
	config.Init("./configs/config.yaml")
	cfg := config.Conf

	// 2. 初始化日志记录器
	log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
	defer log.Sync() // 确保在程序退出时刷新所有缓冲的日志条目
	log.Info("日志记录器初始化成功")

	// 3. 初始化 Redis、MinIO 和 Kafka
	database.InitRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	storage.InitMinIO(cfg.MinIO)
	kafka.InitProducer(cfg.Kafka)

	// 4. 初始化文档存储与各类客户端
	docStore := store.NewDocumentStore()
	jwtManager := token.NewJWTManager(cfg.JWT.Secret, cfg.JWT.TicketExpireMinutes)
	embeddingClient := embedding.NewCachedClient(embedding.NewClient(cfg.Embedding), database.RDB, cfg.Embedding)
	llmClient, err := llm.NewClient(cfg.LLM)
	if err != nil {
		log.Fatalf("初始化 LLM 客户端失败: %v", err)
	}

	// 5. 初始化 Service (依赖注入)
	documentService := service.NewDocumentService(docStore, cfg.MinIO)
	chatService := service.NewChatService(docStore, embeddingClient, llmClient, cfg.RAG)
	quizService := service.NewQuizService(docStore, llmClient, cfg.RAG)

	// 6. 初始化文档索引管道 (Processor) 并启动后台 Kafka 消费者
	processor := pipeline.NewProcessor(docStore, embeddingClient, cfg.RAG)
	go kafka.StartConsumer(cfg.Kafka, processor)

	// 6.1 初始化导入 seed 目录：按标准上传流程导入内置文档
	initCtx, cancelInit := context.WithCancel(context.Background())
	defer cancelInit()
	go importSeedFiles(initCtx, cfg.Seed.Dir, documentService)

	// 7. 设置 Gin 模式并创建路由引擎
	gin.SetMode(cfg.Server.Mode)
	r := gin.New() // 使用 New() 创建一个不带默认中间件的引擎
	// 添加我们自定义的日志中间件和 Gin 的 Recovery 中间件
	r.Use(middleware.RequestLogger(), gin.Recovery())

	// 8. 注册路由
	metaHandler := handler.NewMetaHandler(docStore)
	documentHandler := handler.NewDocumentHandler(documentService)
	chatHandler := handler.NewChatHandler(chatService, jwtManager)
	quizHandler := handler.NewQuizHandler(quizService)

	r.GET("/", metaHandler.Root)
	r.GET("/health", metaHandler.Health)

	api := r.Group("/api")
	{
		api.GET("/languages", metaHandler.Languages)

		api.POST("/upload-pdf", documentHandler.Upload)
		api.GET("/documents", documentHandler.List)
		api.DELETE("/documents/:filename", documentHandler.Delete)
		api.GET("/documents/download", documentHandler.GenerateDownloadURL)

		api.POST("/ask", chatHandler.Ask)
		api.GET("/chat/history", chatHandler.History)
		api.DELETE("/chat/history", chatHandler.ClearHistory)
		api.GET("/chat/websocket-token", chatHandler.GetWebsocketToken)

		api.POST("/generate-quiz", quizHandler.Generate)
		api.POST("/export-chat", metaHandler.ExportChat)
		api.POST("/export-quiz", metaHandler.ExportQuiz)
	}
	// Chat 路由 (WebSocket)
	r.GET("/chat/:token", chatHandler.Handle)

	// 启动 HTTP 服务器并实现优雅停机
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Infof("服务启动于 %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP 服务监听失败: %s\n", err)
		}
	}()

	// 等待中断信号以实现优雅停机
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("接收到停机信号，正在关闭服务...")

	// 设置一个5秒的超时上下文
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// 关闭 HTTP 服务器
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("HTTP 服务器关闭失败: %v", err)
	}

	// Kafka 消费者是一个循环，会在程序退出时自然结束。
	// 如果需要更精细的控制，可以在 StartConsumer 中实现一个关闭通道。
	log.Info("服务已优雅关闭")
}

// importSeedFiles 扫描目录下文件并通过标准上传流程导入。
func importSeedFiles(ctx context.Context, dir string, docService service.DocumentService) {
	if dir == "" {
		return
	}
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		log.Infof("importSeedFiles: 目录 '%s' 不存在或不可用，跳过初始化导入", dir)
		return
	}

	walkErr := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !extract.IsSupported(info.Name()) {
			log.Infof("importSeedFiles: 跳过不支持的文件: %s", path)
			return nil
		}

		content, err := os.ReadFile(path)
		if err != nil {
			log.Warnf("importSeedFiles: 读取文件失败: %s, err=%v", path, err)
			return nil
		}

		result, err := docService.Upload(ctx, info.Name(), content, "seed")
		if err != nil {
			log.Warnf("importSeedFiles: 导入失败: %s, err=%v", path, err)
			return nil
		}
		log.Infof("importSeedFiles: 导入完成并已触发索引: %s (pages=%d, characters=%d)",
			result.Filename, result.Pages, result.Characters)
		return nil
	})
	if walkErr != nil {
		log.Warnf("importSeedFiles: 遍历目录发生错误: %v", walkErr)
	}
}

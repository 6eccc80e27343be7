package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/database"
	"github.com/qs3c/yardconnect/internal/pkg/email"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/queue"
	"github.com/qs3c/yardconnect/internal/worker"
)

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config.yaml"
	}

	// 加载配置
	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(&cfg.Log)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	defer rdb.Close()
	log.Info("redis connected")

	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	processor := worker.NewProcessor(email.NewSMTPSender(&cfg.Email), notifyQueue)

	// 创建 context 用于优雅关闭
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		log.Info("received shutdown signal")
		cancel()
	}()

	log.Info("worker started", "max_workers", cfg.Queue.MaxWorkers, "queue", cfg.Queue.NotificationQueue)
	worker.Run(ctx, notifyQueue, processor, cfg.Queue.MaxWorkers, 5*time.Second)
	log.Info("worker shutdown complete")
}

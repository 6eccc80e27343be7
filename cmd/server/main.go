package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/api"
	"github.com/qs3c/yardconnect/internal/api/handler"
	"github.com/qs3c/yardconnect/internal/database"
	"github.com/qs3c/yardconnect/internal/pkg/cron"
	"github.com/qs3c/yardconnect/internal/pkg/email"
	"github.com/qs3c/yardconnect/internal/pkg/logger"
	"github.com/qs3c/yardconnect/internal/pkg/notify"
	"github.com/qs3c/yardconnect/internal/pkg/oss"
	"github.com/qs3c/yardconnect/internal/pkg/payment"
	"github.com/qs3c/yardconnect/internal/pkg/pubsub"
	"github.com/qs3c/yardconnect/internal/pkg/queue"
	"github.com/qs3c/yardconnect/internal/pkg/ws"
	"github.com/qs3c/yardconnect/internal/repository"
	"github.com/qs3c/yardconnect/internal/service"
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

	// 初始化数据库
	db, err := database.Open(&cfg.Database)
	if err != nil {
		log.Error("failed to connect database", "error", err)
		os.Exit(1)
	}
	log.Info("database connected", "driver", cfg.Database.Driver)

	// 初始化 Redis
	rdb, err := database.NewRedis(&cfg.Redis)
	if err != nil {
		log.Error("failed to connect redis", "error", err)
		os.Exit(1)
	}
	log.Info("redis connected")

	// 通知：实时频道 + 邮件队列
	publisher := pubsub.NewPublisher(rdb)
	notifyQueue := queue.NewQueue(rdb, cfg.Queue.NotificationQueue)
	dispatcher := notify.NewDispatcher(publisher, notifyQueue)

	// 照片存储（可选），未配置时保持 nil 接口
	var photos service.PhotoStore
	if cfg.OSS.Endpoint != "" && cfg.OSS.AccessKeyID != "" {
		ossClient, err := oss.NewClient(&cfg.OSS)
		if err != nil {
			log.Warn("oss client init failed, photo upload disabled", "error", err)
		} else {
			photos = ossClient
			log.Info("oss client initialized")
		}
	}

	// 支付（可选）
	var gateway payment.Gateway
	if cfg.Stripe.SecretKey != "" {
		gateway = payment.NewStripeGateway(&cfg.Stripe)
		log.Info("stripe gateway initialized")
	}

	// 初始化 Repository
	accountRepo := repository.NewAccountRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	reviewRepo := repository.NewReviewRepository(db)
	pendingRepo := repository.NewPendingReviewRepository(db)
	subRepo := repository.NewSubscriptionRepository(db)

	// 初始化 Service
	authService := service.NewAuthService(accountRepo, cfg)
	profileService := service.NewProfileService(profileRepo, reviewRepo, subRepo, photos, cfg)
	reviewService := service.NewReviewService(profileRepo, reviewRepo, pendingRepo,
		email.NewSMTPSender(&cfg.Email), dispatcher, cfg)
	subService := service.NewSubscriptionService(subRepo, accountRepo, profileRepo, gateway, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// WebSocket Hub，评价事件转发给资料所有者
	wsHub := ws.NewHub()
	go func() {
		err := pubsub.NewSubscriber(rdb).Subscribe(ctx, func(event *pubsub.ReviewEvent) {
			if err := wsHub.SendToAccount(event.AccountID, &ws.Message{Type: event.Type, Data: event}); err != nil {
				log.Warn("forward review event failed", "account_id", event.AccountID, "error", err)
			}
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Error("review event subscription stopped", "error", err)
		}
	}()

	// 过期待验证评价清理
	var sweeper *cron.Service
	if cfg.Review.PendingTTL() > 0 {
		sweeper = cron.NewService(reviewService, time.Duration(cfg.Review.SweepIntervalMinutes)*time.Minute)
		sweeper.Start()
	}

	// 初始化 Router
	router := api.NewRouter(
		handler.NewAuthHandler(authService),
		handler.NewProfileHandler(profileService),
		handler.NewReviewHandler(reviewService),
		handler.NewSubscriptionHandler(subService),
		handler.NewWebSocketHandler(wsHub, cfg.JWT.Secret, cfg.CORS.AllowedOrigins),
		cfg,
		log,
	)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router.Setup(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			os.Exit(1)
		}
	}()

	// 监听退出信号
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan
	log.Info("received shutdown signal")

	cancel()
	if sweeper != nil {
		sweeper.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown failed", "error", err)
	}
	_ = rdb.Close()
	log.Info("server shutdown complete")
}

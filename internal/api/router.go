package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/qs3c/yardconnect/config"
	"github.com/qs3c/yardconnect/internal/api/handler"
	"github.com/qs3c/yardconnect/internal/api/middleware"
	"github.com/qs3c/yardconnect/internal/pkg/response"
)

type Router struct {
	authHandler         *handler.AuthHandler
	profileHandler      *handler.ProfileHandler
	reviewHandler       *handler.ReviewHandler
	subscriptionHandler *handler.SubscriptionHandler
	websocketHandler    *handler.WebSocketHandler
	cfg                 *config.Config
	log                 *slog.Logger
}

func NewRouter(
	authHandler *handler.AuthHandler,
	profileHandler *handler.ProfileHandler,
	reviewHandler *handler.ReviewHandler,
	subscriptionHandler *handler.SubscriptionHandler,
	websocketHandler *handler.WebSocketHandler,
	cfg *config.Config,
	log *slog.Logger,
) *Router {
	return &Router{
		authHandler:         authHandler,
		profileHandler:      profileHandler,
		reviewHandler:       reviewHandler,
		subscriptionHandler: subscriptionHandler,
		websocketHandler:    websocketHandler,
		cfg:                 cfg,
		log:                 log,
	}
}

func (r *Router) Setup() *gin.Engine {
	if r.cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.RequestID(r.log))
	engine.Use(middleware.Logger())
	engine.Use(middleware.CORS(r.cfg.CORS))

	engine.GET("/health", func(c *gin.Context) {
		response.Success(c, gin.H{"status": "ok"})
	})

	auth := middleware.Auth(r.cfg.JWT.Secret)

	api := engine.Group("/api/v1")
	{
		// WebSocket
		api.GET("/ws", r.websocketHandler.Handle)

		// 认证
		authGroup := api.Group("/auth")
		{
			authGroup.POST("/register", r.authHandler.Register)
			authGroup.POST("/login", r.authHandler.Login)
			authGroup.GET("/me", auth, r.authHandler.Me)
		}

		// 公开接口 - 市场
		profiles := api.Group("/profiles")
		{
			profiles.GET("", r.profileHandler.List)
			profiles.GET("/:id", r.profileHandler.Get)
			profiles.GET("/:id/reviews", r.reviewHandler.List)
			profiles.POST("/:id/reviews", auth, r.reviewHandler.Create)
			profiles.POST("/:id/reviews/pending",
				middleware.RateLimit(r.cfg.Review.SubmitRatePerMinute, r.cfg.Review.SubmitBurst),
				r.reviewHandler.SubmitPending)
		}

		// 邮件中的确认链接
		api.GET("/reviews/verify/:token", r.reviewHandler.Verify)

		// 支付
		api.GET("/subscription/plans", r.subscriptionHandler.Plans)
		api.POST("/webhooks/stripe", r.subscriptionHandler.Webhook)

		// 需要认证的接口
		authenticated := api.Group("")
		authenticated.Use(auth)
		{
			me := authenticated.Group("/me")
			{
				me.GET("/profile", r.profileHandler.GetMine)
				me.PUT("/profile", r.profileHandler.Upsert)
				me.DELETE("/profile", r.profileHandler.Delete)
				me.POST("/profile/photo", r.profileHandler.UploadPhoto)
			}

			sub := authenticated.Group("/subscription")
			{
				sub.GET("", r.subscriptionHandler.GetMine)
				sub.DELETE("", r.subscriptionHandler.Cancel)
				sub.POST("/checkout", r.subscriptionHandler.Checkout)
			}
		}
	}

	return engine
}

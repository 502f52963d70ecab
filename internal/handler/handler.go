package handler

import (
	"net/http"
	"time"

	"user_api/internal/auth"
	"user_api/internal/cache"
	"user_api/internal/config"
	"user_api/internal/middleware"
	"user_api/internal/observability"
	"user_api/internal/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupHandler initializes all dependencies and routes.
// The API binary always passes live clients: it exits at startup when
// Redis or RabbitMQ is unreachable. A nil redisClient or publisher is only
// accepted for tests and turns off caching, locking, rate limiting or events.
func SetupHandler(dynamo user.DynamoAPI, redisClient *redis.Client, publisher user.EventPublisher, cfg *config.Config) *gin.Engine {
	// Initialize repositories
	userRepo := user.NewUserRepository(dynamo, cfg.DynamoDB.Table, cfg.DynamoDB.NameIndex)

	opts := user.ServiceOptions{
		Publisher:      publisher,
		JWTSecret:      cfg.JWT.Secret,
		TokenTTL:       cfg.JWT.TTL,
		StorageTimeout: cfg.DynamoDB.Timeout,
	}
	if redisClient != nil {
		opts.Cache = cache.NewProfileCache(redisClient, cfg.Redis.CacheTTL)
		opts.Locker = cache.NewNameLock(redisClient, cfg.Redis.LockTTL)
	}

	// Initialize services
	userService := user.NewUserService(userRepo, opts)

	// Initialize controllers
	userController := user.NewUserController(userService)

	return NewRouter(userController, redisClient, observability.GlobalMetrics, cfg)
}

// NewRouter builds the engine and mounts the user routes under /api.
func NewRouter(userCtrl *user.UserController, redisClient *redis.Client, metrics *observability.Metrics, cfg *config.Config) *gin.Engine {
	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "HEAD"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", auth.TokenHeader},
		ExposeHeaders: []string{"Content-Length", "Content-Type", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))

	if metrics != nil {
		r.Use(middleware.PrometheusMiddleware(metrics))
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"error": nil, "data": "ok"})
	})

	setupRoutes(r, userCtrl, redisClient, cfg)

	return r
}

// setupRoutes configures all application routes
func setupRoutes(r *gin.Engine, userCtrl *user.UserController, redisClient *redis.Client, cfg *config.Config) {
	rateLimited := cfg.RateLimit.Enabled && redisClient != nil

	limit := func(scope string, preset *middleware.RateLimiterConfig) []gin.HandlerFunc {
		if !rateLimited {
			return nil
		}
		return []gin.HandlerFunc{middleware.RateLimiterMiddleware(redisClient, scope, preset)}
	}

	api := r.Group("/api")

	// Public routes
	public := api.Group("/users")
	public.Use(limit("public", middleware.DefaultRateLimiterConfig())...)
	{
		public.POST("", userCtrl.Create)
		public.POST("/login", append(limit("login", middleware.StrictRateLimiter()), userCtrl.Login)...)
	}

	// Protected routes. The token check runs before the limiter so that
	// authenticated callers are limited per user name.
	protected := api.Group("/users")
	if cfg.Auth.Enabled {
		protected.Use(middleware.AuthMiddleware(cfg.JWT.Secret))
	}
	protected.Use(limit("api", middleware.DefaultRateLimiterConfig())...)
	{
		protected.GET("", userCtrl.List)
		protected.GET("/:name", userCtrl.Get)
		protected.PUT("/:name", userCtrl.Update)
		protected.DELETE("/:name", userCtrl.Delete)
	}
}

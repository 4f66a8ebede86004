// Package server contains the HTTP and WebSocket boundary for the API.
package server

import (
	"context"
	"log"
	"time"

	"ripple/internal/cache"
	"ripple/internal/config"
	"ripple/internal/database"
	"ripple/internal/middleware"
	"ripple/internal/notifications"
	"ripple/internal/repository"
	"ripple/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config *config.Config
	db     *gorm.DB
	redis  *redis.Client

	userService *service.UserService
	feedService *service.FeedService

	redisNotifier *notifications.RedisNotifier
	hub           *notifications.Hub
}

// NewServer creates a server instance, connecting the database and Redis.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, err
	}

	cache.InitRedis(cfg.RedisURL)
	redisClient := cache.GetClient()

	notifier := notifications.NewRedisNotifier(redisClient)
	return NewServerWithDeps(cfg, db, redisClient, notifier), nil
}

// NewServerWithDeps wires a server from pre-built dependencies. Tests use it
// to inject an in-memory database and a recording or failing notifier.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client, notifier notifications.Notifier) *Server {
	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)

	s := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		userService: service.NewUserService(userRepo),
		feedService: service.NewFeedService(postRepo, commentRepo, userRepo, notifier, nil),
		hub:         notifications.NewHub(),
	}
	if rn, ok := notifier.(*notifications.RedisNotifier); ok {
		s.redisNotifier = rn
	}
	return s
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	// Panic recovery
	app.Use(recover.New())

	// Request ID for tracing
	app.Use(requestid.New())

	// Security headers
	app.Use(helmet.New())

	// Structured logging
	app.Use(middleware.StructuredLogger())

	// Prometheus HTTP metrics
	prom := fiberprometheus.New("ripple")
	prom.RegisterAt(app, "/api/metrics")
	app.Use(prom.Middleware)

	// Global rate limiting (100 requests per minute per IP)
	app.Use(limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"success": false,
				"message": "Too many requests, please try again later",
			})
		},
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins:     s.config.AllowedOrigins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, Upgrade, Connection, Sec-WebSocket-Key, Sec-WebSocket-Version",
		AllowCredentials: true,
		MaxAge:           86400,
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	api := app.Group("/api")

	api.Get("/health", s.HealthCheck)

	auth := middleware.RequireAuth(s.config.JWTSecret)

	users := api.Group("/users")
	users.Post("/login", middleware.RateLimit(s.redis, 10, 5*time.Minute, "login"), s.Login)
	users.Post("/get-my-profile", auth, s.GetMyProfile)
	users.Get("/", s.GetAllUsers)
	users.Post("/", middleware.RateLimit(s.redis, 3, 10*time.Minute, "signup"), s.CreateUser)

	posts := api.Group("/posts")
	// Specific paths must register before the generic /:postId routes.
	posts.Get("/my", auth, s.GetMyPosts)
	posts.Get("/search", middleware.RateLimit(s.redis, 30, time.Minute, "search"), s.SearchPosts)
	posts.Get("/:postId/comments", s.GetComments)
	posts.Post("/:postId/comments", auth, middleware.RateLimit(s.redis, 10, time.Minute, "create_comment"), s.CreateComment)
	posts.Patch("/:postId/like", auth, s.ToggleLike)
	posts.Get("/:postId", s.GetPost)
	posts.Get("/", s.GetFeed)
	posts.Post("/", auth, middleware.RateLimit(s.redis, 5, 5*time.Minute, "create_post"), s.CreatePost)

	ws := api.Group("/ws", auth)
	ws.Get("/", upgradeRequired, s.WebsocketHandler())
}

// StartHub wires the websocket hub to the Redis push subscription. No-op
// when Redis is unavailable.
func (s *Server) StartHub(ctx context.Context) {
	if s.redisNotifier == nil {
		return
	}
	if err := s.hub.StartWiring(ctx, s.redisNotifier); err != nil {
		log.Printf("failed to start push hub wiring: %v", err)
	}
}

// HealthCheck handles health check requests
func (s *Server) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	redisStatus := "healthy"
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	} else {
		redisStatus = "unavailable"
	}

	status := fiber.StatusOK
	if dbStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
	}

	return c.Status(status).JSON(fiber.Map{
		"success": status == fiber.StatusOK,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Shutdown gracefully releases server resources.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.hub != nil {
		if err := s.hub.Shutdown(ctx); err != nil {
			log.Printf("error shutting down push hub: %v", err)
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			log.Printf("error closing sql DB: %v", cerr)
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			log.Printf("error closing redis: %v", rerr)
		}
	}

	log.Println("Server shutdown complete")
	return nil
}

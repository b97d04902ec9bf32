package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"taskboard/internal/auth"
	"taskboard/internal/cache"
	"taskboard/internal/config"
	"taskboard/internal/database"
	"taskboard/internal/handler"
	"taskboard/internal/middleware"
	"taskboard/internal/repository"
	"taskboard/internal/service"
)

type Server struct {
	Engine *gin.Engine
	DB     *gorm.DB
	Config *config.Config
	Logger *zap.Logger
}

func Init(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	if err := database.RunMigrations(cfg, logger); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName,
	)
	// TranslateError turns unique violations into gorm.ErrDuplicatedKey,
	// which the repositories map to ErrDuplicate.
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to DB: %w", err)
	}
	logger.Info("connected to database", zap.String("host", cfg.DBHost), zap.String("db", cfg.DBName))

	redisClient, err := cache.NewClient(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.RedisAddr))

	r := gin.Default()

	// Infrastructure
	tokenService := auth.NewTokenService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := cache.NewTokenStore(redisClient)
	loginLimiter := cache.NewRateLimiter(redisClient, "login", cfg.LoginRateLimit, time.Minute)
	hasher := auth.NewPasswordHasher(cfg.Argon2Time, cfg.Argon2Memory, cfg.Argon2Threads)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	taskRepo := repository.NewTaskRepository(db)
	tagRepo := repository.NewTagRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, tokenService, tokenStore, hasher)
	userService := service.NewUserService(userRepo)
	taskService := service.NewTaskService(taskRepo, tagRepo)
	tagService := service.NewTagService(tagRepo)

	// Handlers
	authHandler := handler.NewAuthHandler(authService, userService)
	userHandler := handler.NewUserHandler(userService)
	taskHandler := handler.NewTaskHandler(taskService)
	tagHandler := handler.NewTagHandler(tagService)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")

	// Public routes
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", middleware.RateLimit(loginLimiter), authHandler.Login)
	api.POST("/auth/refresh", authHandler.Refresh)

	// Protected routes - require authentication
	authorized := api.Group("/")
	authorized.Use(middleware.JWTAuthMiddleware(tokenService, tokenStore))
	{
		authorized.POST("/auth/logout", authHandler.Logout)
		authorized.GET("/auth/me", authHandler.Me)
		authorized.PUT("/auth/password", authHandler.ChangePassword)

		authorized.GET("/users/me", userHandler.Me)
		authorized.PUT("/users/me", userHandler.UpdateMe)
		authorized.DELETE("/users/me", userHandler.DeleteMe)

		authorized.GET("/tasks", taskHandler.List)
		authorized.POST("/tasks", taskHandler.Create)
		authorized.PATCH("/tasks/reorder", taskHandler.Reorder)
		authorized.GET("/tasks/overdue", taskHandler.ListOverdue)
		authorized.GET("/tasks/status/:status", taskHandler.ListByStatus)
		authorized.GET("/tasks/:id", taskHandler.GetByID)
		authorized.PUT("/tasks/:id", taskHandler.Update)
		authorized.PATCH("/tasks/:id/status", taskHandler.UpdateStatus)
		authorized.DELETE("/tasks/:id", taskHandler.Delete)
		authorized.POST("/tasks/:id/tags/:tag_id", taskHandler.AddTag)
		authorized.DELETE("/tasks/:id/tags/:tag_id", taskHandler.RemoveTag)

		authorized.GET("/tags", tagHandler.List)
		authorized.POST("/tags", tagHandler.Create)
		authorized.GET("/tags/:id", tagHandler.GetByID)
		authorized.PUT("/tags/:id", tagHandler.Update)
		authorized.DELETE("/tags/:id", tagHandler.Delete)
	}

	return &Server{
		Engine: r,
		DB:     db,
		Config: cfg,
		Logger: logger,
	}, nil
}

func (s *Server) Run() {
	srv := &http.Server{
		Addr:    ":" + s.Config.ServerPort,
		Handler: s.Engine,
	}

	go func() {
		s.Logger.Info("server running", zap.String("port", s.Config.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.Logger.Fatal("failed to listen", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	s.Logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		s.Logger.Fatal("server forced to shutdown", zap.Error(err))
	}

	s.Logger.Info("server exited properly")
}

package main

import (
	"context"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/drewmudry/scriptcast/auth"
	"github.com/drewmudry/scriptcast/internal/platform"
	"github.com/drewmudry/scriptcast/llm"
	"github.com/drewmudry/scriptcast/pipeline"
	"github.com/drewmudry/scriptcast/videos"
	"github.com/drewmudry/scriptcast/worker"
	"github.com/drewmudry/scriptcast/youtube"
)

type Server struct {
	Config *platform.Config
	DB     *gorm.DB
	Redis  *redis.Client
	Router *gin.Engine
	Log    *zap.Logger
}

func NewServer(ctx context.Context, cfg *platform.Config, logger *zap.Logger) (*Server, error) {
	db, err := platform.NewDBConnection(cfg, logger)
	if err != nil {
		return nil, err
	}
	rdb := platform.NewRedisClient(cfg, logger)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.Default()

	// CORS for the dashboard
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.App.FrontendURL)
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	server := &Server{
		Config: cfg,
		DB:     db,
		Redis:  rdb,
		Router: router,
		Log:    logger,
	}
	if err := server.setupRoutes(ctx); err != nil {
		return nil, err
	}
	return server, nil
}

func (s *Server) setupRoutes(ctx context.Context) error {
	s.Router.GET("/health", func(c *gin.Context) {
		sqlDB, err := s.DB.DB()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		if err := sqlDB.Ping(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		if err := s.Redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status":   "healthy",
			"database": "connected",
			"redis":    "connected",
		})
	})

	s.Router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "scriptcast API v1"})
	})

	gen, err := llm.New(ctx, s.Config.LLM)
	if err != nil {
		return err
	}
	res, err := pipeline.NewResolver(s.Config, gen, s.Log)
	if err != nil {
		return err
	}
	proc := worker.NewProcessor(s.DB, worker.NewRedisQueue(s.Redis), nil, s.Log.Named("queue"))
	videoHandler := videos.NewHandler(s.DB, proc, res, s.Log.Named("videos"))

	// YouTube connect is optional; the API runs without a client secret.
	if yt, err := youtube.NewAuthenticator(s.Config.YouTube); err != nil {
		s.Log.Warn("YouTube connect disabled", zap.Error(err))
	} else {
		authHandler := auth.NewHandler(yt, s.Config.App.JWTSecret, s.Config.App.FrontendURL, s.Log.Named("auth"))
		// Connect checks the API token itself; the callback trusts only a state it signed.
		authRoutes := s.Router.Group("/auth")
		{
			authRoutes.GET("/youtube", authHandler.ConnectYouTube)
			authRoutes.GET("/youtube/callback", authHandler.YouTubeCallback)
		}
	}

	protected := s.Router.Group("")
	protected.Use(auth.AuthMiddleware(s.Config.App.JWTSecret))
	videoHandler.Register(protected)
	return nil
}

func (s *Server) Run() error {
	s.Log.Info("Server starting", zap.String("port", s.Config.App.Port))
	return s.Router.Run(":" + s.Config.App.Port)
}

func main() {
	cfg := platform.LoadConfig()
	logger := platform.NewLogger(cfg)
	defer logger.Sync()

	server, err := NewServer(context.Background(), cfg, logger)
	if err != nil {
		log.Fatal("Failed to create server: ", err)
	}

	if err := server.Run(); err != nil {
		logger.Fatal("Failed to run server", zap.Error(err))
	}
}

package web

import (
	"context"
	"fmt"
	"net/http"

	"pa-intake/config"
	"pa-intake/engine"
	"pa-intake/web/handlers"
	"pa-intake/web/middleware"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	engine  *engine.Engine
	logger  *zap.Logger
	config  *config.Config
	limiter *middleware.SessionRateLimiter
}

func NewServer(eng *engine.Engine, logger *zap.Logger, cfg *config.Config) *Server {
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(func(c *gin.Context) {
		c.Set("logger", logger)
		c.Next()
	})

	limiter := middleware.NewSessionRateLimiter(middleware.RateLimiterConfig{
		AnswersPerMinute: cfg.RateLimitAnswersPerMin,
		BurstSize:        cfg.RateLimitBurstSize,
	}, logger)

	server := &Server{
		router:  router,
		engine:  eng,
		logger:  logger,
		config:  cfg,
		limiter: limiter,
	}

	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	h := handlers.NewSessionHandler(s.engine, s.logger)

	s.router.GET("/healthz", h.Health)
	s.router.POST("/sessions", h.CreateSession)
	s.router.POST("/sessions/:id/intake", h.SubmitIntake)
	s.router.POST("/sessions/:id/answer", middleware.RateLimitAnswers(s.limiter), h.SubmitAnswer)
	s.router.GET("/sessions/:id/question", h.CurrentQuestion)
	s.router.GET("/sessions/:id/summary", h.Summary)
	s.router.DELETE("/sessions/:id", h.EndSession)
}

// Router exposes the gin engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.config.WebPort)
	s.logger.Info("Starting web server", zap.String("address", addr))

	srv := &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Error("Web server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()

	s.logger.Info("Shutting down web server")
	s.limiter.Stop()
	return srv.Shutdown(context.Background())
}

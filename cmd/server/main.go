package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"answer-grading-service/internal/adapters/primary/http/handlers"
	"answer-grading-service/internal/adapters/primary/http/middleware"
	"answer-grading-service/internal/adapters/secondary/mathpix"
	"answer-grading-service/internal/adapters/secondary/symbolic"
	"answer-grading-service/internal/config"
	"answer-grading-service/internal/core/services"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	_ "go.uber.org/automaxprocs"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	initLogger(cfg)

	// ============================================================================
	// Hexagonal Architecture Wiring
	// ============================================================================

	// Secondary Adapters (Output Ports)
	recognizer := mathpix.NewMathPixClient(&cfg.MathPix)
	if cfg.MathPix.Configured() {
		log.WithField("url", cfg.MathPix.URL).Info("MathPix client initialized")
	} else {
		log.Warn("MathPix credentials not configured, answers will not be graded")
	}

	comparator := symbolic.NewComparator(&cfg.Symbolic)

	// Core Services (Application Layer)
	gradingSvc := services.NewGradingService(recognizer, comparator, cfg.Grading.DefaultExpectedAnswer)

	// Primary Adapter (HTTP Handlers)
	h := handlers.New(gradingSvc, cfg.Server.UploadMaxBytes)

	// Setup router
	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.CORS(cfg.Server.AllowedOrigins),
		gin.Recovery(),
	)
	h.RegisterRoutes(router)

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced shutdown: %v", err)
	}

	log.Info("server stopped")
}

func initLogger(cfg *config.Config) {
	level, err := log.ParseLevel(cfg.Logger.Level)
	if err != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	} else {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
}

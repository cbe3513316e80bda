package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/mmdatafocus/estate_console/backend"
	"github.com/mmdatafocus/estate_console/config"
	"github.com/mmdatafocus/estate_console/middlewares"
	"github.com/mmdatafocus/estate_console/models"
	"github.com/mmdatafocus/estate_console/utils"
	"github.com/mmdatafocus/estate_console/views"
	"github.com/sirupsen/logrus"
)

const defaultPort = "8080"

// RateLimiter counts requests per client IP in Redis over a fixed window.
type RateLimiter struct {
	limit  int64
	window time.Duration
}

func NewRateLimiter(limit int64, window time.Duration) *RateLimiter {
	return &RateLimiter{limit: limit, window: window}
}

// RateLimitMiddleware lets every request through while Redis is not connected.
func (rl *RateLimiter) RateLimitMiddleware(c *gin.Context) {
	client := config.GetRedisDB()
	if client == nil {
		c.Next()
		return
	}
	key := "RateLimit:" + c.ClientIP()

	count, err := client.Incr(c.Request.Context(), key).Result()
	if err != nil {
		_ = c.Error(err)
		c.Next()
		return
	}
	if count == 1 {
		client.Expire(c.Request.Context(), key, rl.window)
	}

	if count > rl.limit {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error": fmt.Sprintf("Rate limit exceeded. Try again in %d seconds", int(rl.window.Seconds())),
		})
		return
	}
	c.Next()
}

func rateLimiterFromEnv() *RateLimiter {
	limit := int64(600)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_MAX_REQUESTS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			limit = n
		}
	}
	windowSec := int64(60)
	if v := strings.TrimSpace(os.Getenv("RATE_LIMIT_WINDOW_SECONDS")); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			windowSec = n
		}
	}
	return NewRateLimiter(limit, time.Duration(windowSec)*time.Second)
}

func corsConfig() cors.Config {
	cfg := cors.DefaultConfig()
	// In production only CORS_ALLOWED_ORIGINS may call; elsewhere any origin.
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			cfg.AllowOriginFunc = func(string) bool { return false }
		} else {
			cfg.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		cfg.AllowAllOrigins = true
	}
	cfg.AddAllowMethods("GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS")
	cfg.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization", "X-Correlation-Id")
	cfg.AddExposeHeaders("Content-Length", "Content-Disposition", "X-Correlation-Id")
	cfg.AllowCredentials = !cfg.AllowAllOrigins
	return cfg
}

func newRouter(a *api) *gin.Engine {
	logger := config.GetLogger()

	r := gin.New()
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	r.Use(cors.New(corsConfig()))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("RATE_LIMIT_ENABLED")), "true") {
		r.Use(rateLimiterFromEnv().RateLimitMiddleware)
	}
	r.Use(middlewares.SessionMiddleware())
	r.Use(middlewares.LoaderMiddleware(a.upstream))
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	a.routes(r)
	r.NoRoute(customNotFoundHandler)
	return r
}

func customNotFoundHandler(c *gin.Context) {
	c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
}

func main() {
	port := os.Getenv("PORT")
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		gin.SetMode(gin.ReleaseMode)
	}

	upstream := backend.NewFromConfig()
	registry := views.NewRegistry(upstream, config.ViewTTL())

	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           newRouter(newAPI(upstream, registry)),
		ReadHeaderTimeout: 10 * time.Second,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open. Both are optional.
	if config.DatabaseConfigured() {
		config.ConnectDatabaseWithRetry()
		if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
			models.MigrateTable()
		} else {
			logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
		}
	} else {
		logger.WithFields(logrus.Fields{"field": "database"}).Warn("DB_HOST not set; saved filters and mutation log disabled")
	}
	config.ConnectRedisWithRetry(sigCtx)

	sweepCtx, cancelSweep := context.WithCancel(context.Background())
	defer cancelSweep()
	go registry.Run(sweepCtx)

	logger.WithFields(logrus.Fields{
		"info":     "Server started",
		"upstream": config.UpstreamBaseURL(),
	}).Info("listening on :", port)
	log.Println("Server started successfully")

	select {
	case <-sigCtx.Done():
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	cancelSweep()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	if db := config.GetDB(); db != nil {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that recorded errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			cid, _ := utils.GetCorrelationIdFromContext(c.Request.Context())
			logger.WithFields(logrus.Fields{"path": c.FullPath(), "correlation_id": cid}).Error(c.Errors.String())
		}
	}
}

func splitAndTrim(csv string) []string {
	if strings.TrimSpace(csv) == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

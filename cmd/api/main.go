package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/courtside/courtside-chat/internal/config"
	"github.com/courtside/courtside-chat/internal/handler"
	"github.com/courtside/courtside-chat/internal/middleware"
	"github.com/courtside/courtside-chat/internal/migration"
	"github.com/courtside/courtside-chat/internal/repository"
	"github.com/courtside/courtside-chat/internal/routes"
	"github.com/courtside/courtside-chat/internal/service"
	"github.com/courtside/courtside-chat/internal/ws"
	pkgcache "github.com/courtside/courtside-chat/pkg/cache"
	"github.com/courtside/courtside-chat/pkg/i18n"
	"github.com/courtside/courtside-chat/pkg/jwt"
	pkglogger "github.com/courtside/courtside-chat/pkg/logger"
	pkgredis "github.com/courtside/courtside-chat/pkg/redis"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// @title           Courtside Chat API
// @version         1.0
// @description     Courtside direct conversations and squad channels
//
// @host            localhost:8090
// @BasePath        /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description JWT Authorization header using the Bearer scheme. Example: "Bearer {token}"
//
// @securityDefinitions.apikey InternalAPIKey
// @in header
// @name X-API-Key

// getConfigPath returns config file path based on APP_ENV environment variable
func getConfigPath() string {
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	return fmt.Sprintf("configs/config.%s.yaml", env)
}

func main() {
	dotenvFiles := config.LoadDotEnv()

	// 로거 초기화
	env := os.Getenv("APP_ENV")
	if env == "" {
		env = "local"
	}
	pkglogger.InitStructured(env)
	pkglogger.Info("APP_ENV=%s, loaded env files: %v", env, dotenvFiles)

	// 설정 로드
	configPath := getConfigPath()
	pkglogger.Info("Loading config from: %s", configPath)
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	config.LogResolved(cfg)
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// MySQL 연결. Chat history lives here, so there is no DB-less mode.
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	pkglogger.Info("Connected to MySQL")
	if err := migration.Run(db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	if cfg.IsDevelopment() {
		if err := migration.RunDirectory(db); err != nil {
			pkglogger.Warn("Directory seed warning: %v", err)
		}
	}

	// Redis 연결
	redisClient, err := pkgredis.NewClient(
		cfg.Redis.Host,
		cfg.Redis.Port,
		cfg.Redis.Password,
		cfg.Redis.DB,
		cfg.Redis.PoolSize,
	)
	if err != nil {
		pkglogger.Warn("Failed to connect to Redis: %v (continuing without Redis: single instance, no cache, no rate limit)", err)
		redisClient = nil
	} else {
		pkglogger.Info("Connected to Redis")
	}
	cacheService := pkgcache.NewService(redisClient)

	// Realtime hub
	wsHub := ws.NewHub(redisClient, ws.Options{
		SubscriberBuffer:      cfg.Chat.SubscriberBuffer,
		ResubscribeMaxElapsed: cfg.Chat.ResubscribeMaxElapsed,
	})
	go wsHub.Run()

	// Repositories
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	profileRepo := repository.NewProfileRepository(db)
	groupRepo := repository.NewGroupRepository(db)

	// Services
	profiles := service.NewProfileProvider(profileRepo, cacheService)
	memberships := service.NewMembershipProvider(groupRepo, cacheService)
	gate := service.NewAccessGate(convRepo, memberships)
	directoryService := service.NewDirectoryService(convRepo, msgRepo, profiles)
	messageService := service.NewMessageService(msgRepo, gate, profiles, memberships, wsHub, service.MessageOptions{
		DefaultPageSize:  cfg.Chat.DefaultPageSize,
		MaxPageSize:      cfg.Chat.MaxPageSize,
		MaxContentLength: cfg.Chat.MaxContentLength,
		ImageHosts:       cfg.Chat.ImageHosts,
	})

	// Handlers
	conversationHandler := handler.NewConversationHandler(directoryService)
	messageHandler := handler.NewMessageHandler(messageService)
	membershipHandler := handler.NewMembershipHandler(messageService)
	wsHandler := handler.NewWSHandler(wsHub, gate, cfg.CORSOrigins())

	jwtManager := jwt.NewManager(cfg.JWT.Secret, cfg.JWT.ExpiresIn)

	// i18n Bundle
	i18nBundle := i18n.NewDefaultBundle()
	if cfg.I18nDir != "" {
		if _, err := os.Stat(cfg.I18nDir); err == nil {
			if err := i18nBundle.LoadDir(cfg.I18nDir); err != nil {
				pkglogger.Warn("i18n LoadDir failed: %v", err)
			}
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())

	// CORS 설정
	router.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins(),
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Accept-Language", "Authorization", "X-API-Key", "X-Request-ID"},
		AllowCredentials: true,
		AllowMethods:     []string{"GET", "POST", "PATCH", "OPTIONS"},
		ExposeHeaders:    []string{"X-Request-ID", "X-RateLimit-Remaining", "Retry-After"},
		MaxAge:           12 * time.Hour,
	}))

	// Middleware
	router.Use(middleware.I18n(i18nBundle))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.InputSanitizer())
	router.Use(middleware.Metrics())
	router.Use(middleware.RequestLogger())

	if redisClient != nil && !cfg.IsDevelopment() {
		router.Use(middleware.RateLimit(redisClient, middleware.DefaultRateLimitConfig()))
	}

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health Check
	router.GET("/health", func(c *gin.Context) {
		status := http.StatusOK
		body := gin.H{
			"status":  "ok",
			"service": "courtside-chat",
			"live":    wsHub.Live(),
			"time":    time.Now().Unix(),
		}
		if sqlDB, err := db.DB(); err != nil || sqlDB.PingContext(c.Request.Context()) != nil {
			status = http.StatusServiceUnavailable
			body["status"] = "degraded"
		}
		c.JSON(status, body)
	})

	routes.Setup(router, conversationHandler, messageHandler, membershipHandler, wsHandler, jwtManager, redisClient, cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	go reportDBStats(ctx, db)

	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		pkglogger.Info("Starting courtside-chat on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	pkglogger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// hijacked WebSocket connections are not tracked by Shutdown; stopping
	// the hub cancels their subscriptions, which closes them
	wsHub.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		pkglogger.Error("Server shutdown: %v", err)
	}
	if redisClient != nil {
		redisClient.Close() //nolint:errcheck
	}
}

// reportDBStats feeds the connection pool gauge until ctx ends
func reportDBStats(ctx context.Context, db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		return
	}
	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			middleware.SetDBConnectionsActive(float64(sqlDB.Stats().InUse))
		case <-ctx.Done():
			return
		}
	}
}

// initDB MySQL 연결 초기화
func initDB(cfg *config.Config) (*gorm.DB, error) {
	mysqlCfg, err := mysqldriver.ParseDSN(cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("DSN 파싱 실패: %w", err)
	}
	if mysqlCfg.Params == nil {
		mysqlCfg.Params = map[string]string{}
	}
	mysqlCfg.Params["time_zone"] = "'+00:00'"

	logLevel := gormlogger.Warn
	if cfg.IsDevelopment() {
		logLevel = gormlogger.Info
	}
	db, err := gorm.Open(mysql.Open(mysqlCfg.FormatDSN()), &gorm.Config{
		Logger:  gormlogger.Default.LogMode(logLevel),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
	if err != nil {
		return nil, err
	}

	db.Exec("SET NAMES utf8mb4")

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.Database.ConnMaxLifetime) * time.Second)

	return db, nil
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/tkdhub/chatcore/internal/config"
	"github.com/tkdhub/chatcore/internal/handler"
	"github.com/tkdhub/chatcore/internal/middleware"
	"github.com/tkdhub/chatcore/internal/model"
	"github.com/tkdhub/chatcore/internal/repository"
	"github.com/tkdhub/chatcore/internal/service"
	"github.com/tkdhub/chatcore/internal/ws"
	"github.com/tkdhub/chatcore/migrations"
	"github.com/tkdhub/chatcore/pkg/auth"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// @title           ChatCore API
// @version         1.0
// @description     Conversations, messages and realtime delivery with Gin, WebSocket and Redis Pub/Sub.

// @BasePath  /api/v1

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// ==================== Load Config ====================
	cfg := config.Load()
	log.Printf("🚀 Starting ChatCore Server [env=%s]", cfg.App.Env)

	// ==================== Database (PostgreSQL) ====================
	gormLogger := logger.Default.LogMode(logger.Info)
	if cfg.App.Env == "production" {
		gormLogger = logger.Default.LogMode(logger.Warn)
	}

	db, err := gorm.Open(postgres.Open(cfg.DB.DSN()), &gorm.Config{
		Logger: gormLogger,
	})
	if err != nil {
		log.Fatalf("❌ Failed to connect to database: %v", err)
	}
	log.Println("✅ Connected to PostgreSQL")

	// ==================== Run Migrations ====================
	if err := migrations.Run(cfg.DB.URL()); err != nil {
		log.Printf("⚠️  Migration warning: %v", err)
		log.Println("📦 Falling back to GORM AutoMigrate...")
		if err := db.AutoMigrate(
			&model.User{},
			&model.Conversation{},
			&model.ConversationParticipant{},
			&model.Message{},
			&model.Block{},
			&model.Friendship{},
			&model.FriendRequest{},
		); err != nil {
			log.Fatalf("❌ Failed to migrate database: %v", err)
		}
	}
	log.Println("✅ Database migrated successfully")

	// ==================== Redis ====================
	appCtx, appCancel := context.WithCancel(context.Background())
	defer appCancel()

	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       0,
		})
		if _, err := rdb.Ping(appCtx).Result(); err != nil {
			log.Fatalf("❌ Failed to connect to Redis: %v", err)
		}
		log.Println("✅ Connected to Redis")
	} else {
		log.Println("⚠️  Redis disabled: single instance fan-out, token revocation off")
	}

	// ==================== Realtime Fan-out ====================
	hub := ws.NewHub()
	var broadcaster ws.Broadcaster = hub
	if rdb != nil {
		relay := ws.NewRedisRelay(hub, rdb, ws.DefaultRelayChannel)
		if err := relay.Start(appCtx); err != nil {
			log.Fatalf("❌ Failed to start Redis relay: %v", err)
		}
		broadcaster = relay
	}

	// ==================== Initialize Layers ====================
	jwtManager := auth.NewJWTManager(cfg.JWT.Secret, cfg.JWT.Expiry)

	// Repositories
	userRepo := repository.NewUserRepository(db)
	convRepo := repository.NewConversationRepository(db)
	msgRepo := repository.NewMessageRepository(db)
	relRepo := repository.NewRelationshipRepository(db)

	// Services
	authService := service.NewAuthService(userRepo, jwtManager, rdb)
	chatService := service.NewChatService(convRepo, msgRepo, relRepo, userRepo, broadcaster, cfg.Chat)
	relService := service.NewRelationshipService(relRepo, userRepo)

	// ==================== Gin Router ====================
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	// Serve swagger.json at /docs/swagger.json to avoid conflict with /swagger/* wildcard
	router.StaticFile("/docs/swagger.json", "./docs/swagger.json")
	url := ginSwagger.URL("/docs/swagger.json")
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, url))

	router.Use(middleware.CORSMiddleware(cfg.CORS.Origins))

	handler.RegisterRoutes(router, handler.Routes{
		Authn:         authService,
		Auth:          handler.NewAuthHandler(authService),
		Chat:          handler.NewChatHandler(chatService),
		Relationships: handler.NewRelationshipHandler(relService),
		WS:            handler.NewWSHandler(chatService, authService, broadcaster, cfg.WS),
	})

	// ==================== Start Server ====================
	srv := &http.Server{
		Addr:    ":" + cfg.App.Port,
		Handler: router,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("❌ Server failed: %v", err)
		}
	}()

	log.Printf("🌐 ChatCore running on http://0.0.0.0:%s", cfg.App.Port)
	log.Printf("📋 API docs: http://0.0.0.0:%s/swagger/index.html", cfg.App.Port)
	log.Printf("🔌 WebSocket: ws://0.0.0.0:%s/ws/conversations/<id>?token=<jwt>", cfg.App.Port)

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("🛑 Shutting down server...")

	// Give ongoing requests 5 seconds to complete
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("❌ Server forced to shutdown: %v", err)
	}

	appCancel()
	if rdb != nil {
		rdb.Close()
	}
	log.Println("✅ Server exited gracefully")
}

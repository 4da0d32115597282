package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/kacamatagratis/kacamatagratis/cmd/api/app/routes"
	"github.com/kacamatagratis/kacamatagratis/logger"
	"github.com/kacamatagratis/kacamatagratis/metrics"
	"github.com/kacamatagratis/kacamatagratis/middlewares"
	"github.com/kacamatagratis/kacamatagratis/pkg/automation"
	"github.com/kacamatagratis/kacamatagratis/pkg/config"
	"github.com/kacamatagratis/kacamatagratis/pkg/database"
	"github.com/kacamatagratis/kacamatagratis/pkg/dripsender"
	"github.com/kacamatagratis/kacamatagratis/pkg/gateway"
	"github.com/kacamatagratis/kacamatagratis/pkg/repositories"
	"github.com/kacamatagratis/kacamatagratis/pkg/utils"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system env")
	}

	zlog, err := logger.InitLogger()
	if err != nil {
		panic("Failed to initialize zap logger: " + err.Error())
	}
	defer zlog.Sync()

	cfg, err := config.LoadConfig(utils.GetEnvDefault("CONFIG_PATH", "config.yaml"))
	if err != nil {
		zlog.Fatal("Failed to load config", zap.Error(err))
	}

	db, err := database.InitDB(utils.GetEnv("DATABASE_URL"))
	if err != nil {
		zlog.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := database.MigrateDB(db); err != nil {
		zlog.Fatal("Failed to run migrations", zap.Error(err))
	}

	rdb := database.InitRedis(
		utils.GetEnvDefault("REDIS_ADDR", "localhost:6379"),
		utils.GetEnv("REDIS_PASSWORD"),
	)

	metrics.InitAPIMetrics()
	metrics.InitAutomationMetrics()

	participantRepo := repositories.NewParticipantRepository(db)
	eventRepo := repositories.NewEventRepository(db)
	notificationRepo := repositories.NewNotificationRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	settingsRepo := repositories.NewSettingsRepository(db)
	keyRepo := repositories.NewDripSenderKeyRepository(db)

	client := dripsender.NewClient(cfg.Provider.BaseURL, cfg.Provider.Timeout)
	pool := gateway.NewRandomPool(keyRepo)
	gw := gateway.New(pool, keyRepo, notificationRepo, client, zlog)

	engine := automation.NewEngine(
		participantRepo,
		eventRepo,
		notificationRepo,
		templateRepo,
		settingsRepo,
		gw,
		cfg.PublicBaseURL,
		zlog,
	)
	runner := automation.NewRunner(engine, settingsRepo, rdb, zlog)

	runnerCtx, stopRunner := context.WithCancel(context.Background())
	go runner.Start(runnerCtx)

	router := gin.Default()
	router.Use(middlewares.GinMetricsMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{cfg.PublicBaseURL, "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE"},
		AllowHeaders:     []string{"Origin", "Content-Type", "X-Cron-Secret"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	router.GET("/health", func(ctx *gin.Context) {
		ctx.JSON(http.StatusOK, gin.H{"message": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := router.Group("/api")
	routes.Public(api, db)
	routes.Auth(api.Group("/auth"), rdb)

	admin := api.Group("/")
	admin.Use(middlewares.AdminAuth(rdb))
	routes.Participants(admin.Group("/participants"), db)
	routes.Events(admin.Group("/events"), db)
	routes.Templates(admin.Group("/templates"), db)
	routes.DripSenderKeys(admin.Group("/dripsender-keys"), db, client)
	routes.Settings(admin.Group("/settings"), db)
	routes.Notifications(admin.Group("/notifications"), db, engine)
	routes.Broadcast(admin.Group("/broadcast"), gw, cfg.Broadcast)
	routes.Automation(api, admin, db, runner, engine)

	go handleShutdown(stopRunner, zlog)

	addr := ":" + utils.GetEnvDefault("PORT", "3000")
	zlog.Info("API server starting", zap.String("addr", addr))
	if err := router.Run(addr); err != nil {
		zlog.Fatal("Failed to start server", zap.Error(err))
	}
}

func handleShutdown(stopRunner context.CancelFunc, log *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	log.Info("Shutdown signal received", zap.String("signal", sig.String()))

	stopRunner()
	// Give an in-flight automation cycle a moment to finish its pass.
	time.Sleep(2 * time.Second)
	os.Exit(0)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"badge-award-system/handlers"
	"badge-award-system/middleware"
	"badge-award-system/models"
	"badge-award-system/services"
	"badge-award-system/utils"
	"badge-award-system/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	if err := godotenv.Load(); err != nil {
		log.Warn("no .env file found, reading environment variables directly")
	}

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		log.Fatalw("failed to connect to database", "err", err)
	}

	if err := db.AutoMigrate(
		&models.Badge{},
		&models.ClaimCode{},
		&models.BadgeInstance{},
		&models.Credit{},
	); err != nil {
		log.Fatalw("failed to migrate database", "err", err)
	}

	if utils.R2Configured() {
		if err := utils.InitR2(); err != nil {
			log.Fatalw("failed to initialize R2 client", "err", err)
		}
	} else {
		log.Warn("R2 not configured — badge image uploads disabled")
	}

	var cache *redis.Client
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := cache.Ping(context.Background()).Err(); err != nil {
			log.Warnw("redis unreachable — recommendation cache disabled", "err", err)
			cache = nil
		}
	}

	var notifier services.Notifier
	if webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL"); webhookURL != "" {
		notifier = workers.NewWebhookNotifier(webhookURL, os.Getenv("BADGE_SERVICE_TOKEN"), log)
	} else {
		log.Warn("NOTIFY_WEBHOOK_URL not set — award notifications disabled")
		notifier = services.NopNotifier{}
	}

	claimCodeService := services.NewClaimCodeService(db, utils.NewPhrases(), log)
	awardService := services.NewAwardService(db, notifier, claimCodeService, log)
	badgeService := services.NewBadgeService(db, log)
	recommendationService := services.NewRecommendationService(db, cache, log)

	sweepTTL := 0
	if raw := os.Getenv("RESERVED_CODE_TTL_HOURS"); raw != "" {
		sweepTTL, _ = strconv.Atoi(raw)
	}
	claimCodeService.StartReservedCodeSweep(time.Duration(sweepTTL) * time.Hour)

	app := fiber.New(fiber.Config{
		BodyLimit: 8 * 1024 * 1024, // badge art only
	})

	app.Use(middleware.GatewayAuthMiddleware(log))

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	if allowedOrigins == "" {
		allowedOrigins = "http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-User-ID, X-User-Roles",
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	handlers.SetupBadgeRoutes(app, badgeService, log)
	handlers.SetupClaimRoutes(app, claimCodeService, awardService, badgeService, log)
	handlers.SetupAwardRoutes(app, awardService, recommendationService, badgeService, log)

	port := os.Getenv("PORT")
	if port == "" {
		port = "5400"
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := app.Listen(":" + port); err != nil {
			log.Errorw("server error", "err", err)
		}
	}()

	log.Infow("badge award service running", "port", port)

	<-ctx.Done()
	log.Info("shutting down server")
	if err := app.Shutdown(); err != nil {
		log.Errorw("shutdown failed", "err", err)
	}
}

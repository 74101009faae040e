package main

import (
	"context"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"raid-dashboard/config"
	"raid-dashboard/events"
	"raid-dashboard/games"
	"raid-dashboard/handlers"
	"raid-dashboard/logger"
	"raid-dashboard/models"
	"raid-dashboard/pricefeed"
	"raid-dashboard/services"
	"raid-dashboard/utils"
	"raid-dashboard/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("❌ config: ", err)
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output); err != nil {
		logger.Fatal("❌ logger: ", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{TranslateError: true})
	if err != nil {
		logger.Fatal("failed to connect to database: ", err)
	}

	if err := db.AutoMigrate(
		&models.Profile{},
		&models.RankDefinition{},
		&models.RaidAction{},
		&models.Poll{},
		&models.PollOption{},
		&models.Vote{},
		&models.RewardClaim{},
	); err != nil {
		logger.Fatal("failed to migrate database: ", err)
	}

	bus := events.NewProfileBus()
	defer bus.Close()

	// --- Storage ---
	var avatars services.AvatarStore
	if cfg.R2.Enabled() {
		r2, err := utils.NewR2Storage(ctx, cfg.R2)
		if err != nil {
			logger.Fatal("failed to initialize R2 client: ", err)
		}
		avatars = r2
	} else {
		logger.Warn("⚠️  R2 credentials not set, avatar uploads disabled")
	}

	// --- Services ---
	progressionService := services.NewProgressionService(db, bus)
	if err := progressionService.SeedRanks(ctx); err != nil {
		logger.Fatal("failed to seed ranks: ", err)
	}
	profileService := services.NewProfileService(db, bus, avatars)
	pointsService := services.NewPointsService(db, bus)
	rewardService := services.NewRewardService(db, bus)
	raidService := services.NewRaidService(db, bus)
	voteService := services.NewVoteService(db)

	catalog, err := games.NewCatalog(games.DefaultGames...)
	if err != nil {
		logger.Fatal("invalid game catalog: ", err)
	}
	minigameService := services.NewMinigameService(db, bus, catalog, nil)

	priceService := newPriceService(cfg)
	sched, err := priceService.StartRefreshScheduler(cfg.Prices.RefreshInterval, cfg.Prices.RequestTimeout)
	if err != nil {
		logger.Fatal("failed to start price scheduler: ", err)
	}
	defer func() { _ = sched.Shutdown() }()

	emailService := services.NewEmailService(cfg.Email.ResendAPIKey, cfg.Email.ResendBaseURL, cfg.Email.From)
	supabaseAdmin := services.NewSupabaseAdminClient(cfg.Supabase.URL, cfg.Supabase.ServiceRoleKey)
	profileStream := services.NewProfileStream(bus, profileService)

	// --- Workers ---
	if cfg.Email.Enabled() && cfg.Email.OpsAddress != "" {
		notifier := workers.NewClaimNotifier(rewardService, emailService, cfg.Email.OpsAddress, cfg.Email.ClaimNotifyInterval)
		go notifier.Run(ctx)
	} else {
		logger.Info("[CLAIMS] notifier disabled (RESEND_API_KEY, EMAIL_FROM or CLAIMS_OPS_EMAIL missing)")
	}

	// --- HTTP ---
	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{Output: logger.Log.Writer()}))
	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.AllowedOrigins, ","),
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, Cache-Control, apikey, x-client-info",
		AllowCredentials: true,
		MaxAge:           86400,
		// the delete-user routes answer any origin with their own CORS policy
		Next: func(c *fiber.Ctx) bool {
			return strings.HasSuffix(c.Path(), "/deleteUser")
		},
	}))
	app.Use(limiter.New(limiter.Config{
		Max:        120,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health" || c.Path() == "/profile/stream"
		},
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.UserContext())
		}
		if err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "degraded", "db": err.Error()})
		}
		return c.JSON(fiber.Map{"status": "ok", "time": time.Now().UTC()})
	})

	secret := cfg.Supabase.JWTSecret
	handlers.SetupPriceRoutes(app, priceService)
	handlers.SetupProgressionRoutes(app, secret, progressionService)
	handlers.SetupProfileRoutes(app, secret, profileService, profileStream)
	handlers.SetupRewardRoutes(app, secret, profileService, pointsService, rewardService)
	handlers.SetupGameRoutes(app, secret, profileService, minigameService)
	handlers.SetupRaidRoutes(app, secret, profileService, raidService)
	handlers.SetupVoteRoutes(app, secret, profileService, voteService)
	handlers.SetupAdminRoutes(app, secret, cfg.InternalServiceToken, supabaseAdmin, profileService)
	handlers.SetupEmailRoutes(app, cfg.InternalServiceToken, emailService)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			logger.Errorf("Server error: %v", err)
		}
	}()

	logger.Infof("✅ Server running on http://localhost:%s", cfg.Port)
	logger.Infof("✅ CORS configured for origins: %s", strings.Join(cfg.AllowedOrigins, ","))

	<-ctx.Done()
	logger.Info("Shutting down server...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		logger.Errorf("shutdown: %v", err)
	}
}

// newPriceService wires CoinGecko first, DexScreener second, behind Redis when
// REDIS_ADDR is set and an in-process cache otherwise.
func newPriceService(cfg *config.Config) *services.PriceService {
	var providers []pricefeed.Provider

	cg, err := pricefeed.NewCoinGecko(pricefeed.CoinGeckoConfig{
		BaseURL:         cfg.Prices.CoinGeckoBaseURL,
		APIKey:          cfg.Prices.CoinGeckoAPIKey,
		CoinID:          cfg.Prices.CoinGeckoCoinID,
		Timeout:         cfg.Prices.RequestTimeout,
		RateLimitPerMin: cfg.Prices.RateLimitPerMinute,
	})
	if err != nil {
		logger.Warnf("[PRICES] coingecko disabled: %v", err)
	} else {
		providers = append(providers, cg)
	}

	if cfg.Prices.TokenAddress != "" {
		dex, err := pricefeed.NewDexScreener(pricefeed.DexScreenerConfig{
			BaseURL:      cfg.Prices.DexScreenerBaseURL,
			TokenAddress: cfg.Prices.TokenAddress,
			Timeout:      cfg.Prices.RequestTimeout,
		})
		if err != nil {
			logger.Warnf("[PRICES] dexscreener disabled: %v", err)
		} else {
			providers = append(providers, dex)
		}
	}

	var cache pricefeed.Cache = pricefeed.NewMemoryCache()
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		cache = pricefeed.NewRedisCache(rdb, "raid-dashboard:prices:")
		logger.Infof("[PRICES] caching in redis at %s", cfg.Redis.Addr)
	}

	fallback := pricefeed.Snapshot{
		PriceUSD:     cfg.Prices.DefaultPriceUSD,
		Volume24hUSD: cfg.Prices.DefaultVolume24hUSD,
	}
	svc := services.NewPriceService(cache, cfg.Prices.CacheTTL, fallback, providers...)
	if cfg.Prices.RequestTimeout > 0 {
		svc.RequestTimeout = cfg.Prices.RequestTimeout
	}
	return svc
}

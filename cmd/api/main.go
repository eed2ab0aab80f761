package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"tycoon-engine/internal/cache"
	"tycoon-engine/internal/catalog"
	"tycoon-engine/internal/config"
	"tycoon-engine/internal/game"
	"tycoon-engine/internal/handler"
	"tycoon-engine/internal/middleware"
	"tycoon-engine/internal/persistence"
	"tycoon-engine/internal/realtime"
	"tycoon-engine/internal/repository"
	"tycoon-engine/internal/router"
	"tycoon-engine/internal/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/redis/go-redis/v9"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("Starting tycoon engine...")

	// Load configuration
	cfg := config.MustLoad()
	log.Printf("Environment: %s", cfg.App.Environment)

	cat, err := catalog.LoadOrDefault(cfg.Game.CatalogPath)
	if err != nil {
		log.Fatalf("Failed to load catalog: %v", err)
	}

	// Local save store
	var localRepo repository.LocalSaveRepository
	switch cfg.LocalStore.Type {
	case "memory":
		localRepo = repository.NewMemoryRepository()
		log.Println("In-memory local save store initialized")
	default: // sqlite
		if err := os.MkdirAll(filepath.Dir(cfg.LocalStore.Path), 0o755); err != nil {
			log.Fatalf("Failed to create data directory: %v", err)
		}
		sqliteRepo, err := repository.NewSQLiteLocalSaveRepository(cfg.LocalStore.Path)
		if err != nil {
			log.Fatalf("Failed to initialize SQLite: %v", err)
		}
		localRepo = sqliteRepo
		log.Println("SQLite local save store initialized")
	}
	defer localRepo.Close()

	codec, err := persistence.ParseCodec(cfg.LocalStore.Codec)
	if err != nil {
		log.Fatalf("Invalid local save codec: %v", err)
	}

	// Cloud document store
	var cloudRepo repository.CloudRepository
	switch cfg.Cloud.Type {
	case "mongodb", "mongo":
		mongoRepo, err := repository.NewMongoDBCloudRepository(cfg.Cloud.MongoURI, cfg.Cloud.MongoDatabase)
		if err != nil {
			log.Fatalf("Failed to initialize MongoDB: %v", err)
		}
		cloudRepo = mongoRepo
		log.Println("MongoDB cloud repository initialized")
	case "postgres", "postgresql":
		pgRepo, err := repository.NewPostgresPlayerRepository(cfg.Cloud.PostgresDSN())
		if err != nil {
			log.Fatalf("Failed to initialize PostgreSQL: %v", err)
		}
		// Postgres only keeps player documents; the social collections stay in memory.
		cloudRepo = repository.NewSplitCloudRepository(pgRepo, repository.NewMemoryRepository())
		log.Println("PostgreSQL player repository initialized")
	default: // memory
		cloudRepo = repository.NewMemoryRepository()
		log.Println("In-memory cloud repository initialized")
	}
	defer cloudRepo.Close()

	// Identity accounts
	var accountRepo repository.AccountRepository
	switch cfg.Accounts.Type {
	case "mysql":
		mysqlDB, err := sql.Open("mysql", cfg.Accounts.DSN())
		if err != nil {
			log.Fatalf("Failed to open MySQL: %v", err)
		}
		mysqlDB.SetMaxOpenConns(10)
		mysqlDB.SetMaxIdleConns(5)
		mysqlDB.SetConnMaxLifetime(5 * time.Minute)
		if err := mysqlDB.Ping(); err != nil {
			log.Fatalf("MySQL ping failed: %v", err)
		}
		defer mysqlDB.Close()

		mysqlRepo, err := repository.NewMySQLAccountRepository(mysqlDB)
		if err != nil {
			log.Fatalf("Failed to initialize MySQL accounts: %v", err)
		}
		accountRepo = mysqlRepo
		log.Println("MySQL account repository initialized")
	default: // memory
		accountRepo = repository.NewMemoryRepository()
		log.Println("In-memory account repository initialized")
	}

	// Cache and realtime hub
	var (
		appCache    cache.Cache
		hub         realtime.Hub
		redisClient *redis.Client
	)
	switch cfg.Cache.Type {
	case "redis":
		redisClient, err = cache.NewRedisClient(cache.RedisConfig{
			Addr:     cfg.Cache.RedisAddress(),
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err != nil {
			log.Fatalf("Redis connection failed: %v", err)
		}
		defer redisClient.Close()
		appCache = cache.NewRedisCacheWithClient(redisClient, cfg.Cache.RedisPrefix+":cache")
		hub = realtime.NewRedisHub(redisClient, cfg.Cache.RedisPrefix+":rt")
		log.Println("Redis cache and hub initialized")
	default: // memory
		appCache = cache.NewMemoryCache()
		hub = realtime.NewMemoryHub()
		log.Println("In-memory cache and hub initialized")
	}
	defer appCache.Close()
	defer hub.Close()

	// Game store
	seed := cfg.Game.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	store := game.New(game.Options{
		Catalog:      cat,
		Rand:         rand.New(rand.NewSource(seed)),
		HoursPerTick: cfg.Game.HoursPerTick,
		IntroBonus:   cfg.Game.IntroBonus,
	})

	// Services
	tokenService := service.NewTokenService(appCache, cfg.Cache.TokenTTL)
	identityService := service.NewIdentityService(accountRepo, tokenService)

	adapter := persistence.NewAdapter(persistence.Options{
		Store:            store,
		Local:            localRepo,
		Cloud:            cloudRepo,
		Users:            identityService,
		Codec:            codec,
		SaveKey:          cfg.Game.SaveKey,
		CloudLoadTimeout: cfg.Game.CloudLoadTimeout,
	})
	if _, err := adapter.LoadLocal(context.Background()); err != nil {
		log.Printf("Starting a new game: %v", err)
	} else {
		log.Println("Local save restored")
	}

	autosave := persistence.NewAutosave(adapter, persistence.AutosaveConfig{
		LocalInterval: cfg.Game.LocalSaveInterval,
		CloudInterval: cfg.Game.CloudSaveInterval,
		Debounce:      cfg.Game.SaveDebounce,
		Timeout:       cfg.Game.SaveTimeout,
	})
	store.SetSaver(autosave)
	autosave.Start()

	loop := game.NewLoop(store, cfg.Game.TickInterval)
	loop.Start()

	sessionService := service.NewSessionService(identityService, adapter)
	socialService := service.NewSocialService(service.SocialDeps{
		Store: store,
		Users: identityService,
		Cloud: cloudRepo,
		Cache: appCache,
		Hub:   hub,
	})

	cleanup := service.NewCleanupScheduler(cloudRepo, service.DefaultCleanupConfig())
	cleanup.Start()

	// Initialize handlers
	var readyChecks []handler.ReadyCheck
	if redisClient != nil {
		readyChecks = append(readyChecks, handler.ReadyCheck{
			Name:  "redis",
			Probe: func(ctx context.Context) error { return redisClient.Ping(ctx).Err() },
		})
	}
	healthHandler := handler.New(cfg.App.Name, cfg.App.Version, readyChecks...)
	adminHandler := handler.NewAdminHandler(handler.AdminConfig{
		Store:   store,
		Local:   localRepo,
		SaveKey: cfg.Game.SaveKey,
		Backends: map[string]string{
			"local_store": cfg.LocalStore.Type,
			"codec":       string(codec),
			"cloud":       cfg.Cloud.Type,
			"accounts":    cfg.Accounts.Type,
			"cache":       cfg.Cache.Type,
		},
	})

	r := router.New(router.Config{
		Handler:        healthHandler,
		CatalogHandler: handler.NewCatalogHandler(cat),
		GameHandler:    handler.NewGameHandler(store),
		SaveHandler:    handler.NewSaveHandler(adapter),
		AuthHandler:    handler.NewAuthHandler(sessionService, identityService, tokenService, cfg.Cache.TokenTTL),
		SocialHandler:  handler.NewSocialHandler(socialService),
		StreamHandler:  handler.NewStreamHandler(store, socialService, cfg.Server.AllowedOrigins),
		AdminHandler:   adminHandler,
		AuthMiddleware: middleware.NewAuthMiddleware(middleware.AuthConfig{Identity: identityService}),
		StreamAuth:     middleware.NewAuthMiddleware(middleware.AuthConfig{Identity: identityService, AllowQueryToken: true}),
		RateLimiter: middleware.NewRateLimiter(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}),
		AdminKey:       cfg.App.LoginKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Server listening on %s", cfg.Server.Address())
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	// Stop ticking first so the final save sees a settled state, then flush
	// saves while the store still accepts operations.
	loop.Stop()
	cleanup.Stop()
	log.Println("Flushing saves...")
	autosave.Close()
	store.Close()

	log.Println("Server stopped")
	fmt.Println("Goodbye!")
}

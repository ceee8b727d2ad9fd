package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/golubka/foodbot/internal/adminapi"
	"github.com/golubka/foodbot/internal/bot"
	"github.com/golubka/foodbot/internal/cart"
	"github.com/golubka/foodbot/internal/checkout"
	"github.com/golubka/foodbot/internal/gateway"
	"github.com/golubka/foodbot/internal/menu"
	"github.com/golubka/foodbot/internal/notify"
	"github.com/golubka/foodbot/internal/orders"
	"github.com/golubka/foodbot/internal/users"
)

type Config struct {
	MongoURI    string
	MongoDBName string
	RedisAddr   string
	RedisPass   string

	MenuDBPath         string
	MenuMigrationsPath string

	Postgres orders.Credentials

	KafkaBrokers []string
	AdminIDs     []int64

	HTTPPort        string
	WebhookPort     string
	AdminToken      string
	ShutdownTimeout time.Duration
}

func loadConfig() *Config {
	return &Config{
		MongoURI:    getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDBName: getEnv("MONGO_DB_NAME", "foodbot"),
		RedisAddr:   getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPass:   getEnv("REDIS_PASSWORD", ""),

		MenuDBPath:         getEnv("MENU_DB_PATH", "menu.db"),
		MenuMigrationsPath: getEnv("MENU_MIGRATIONS_PATH", "internal/menu/migrations"),

		Postgres: orders.Credentials{
			Host:              getEnv("POSTGRES_HOST", "localhost"),
			Port:              getEnvInt("POSTGRES_PORT", 5432),
			User:              getEnv("POSTGRES_USER", "postgres"),
			Password:          getEnv("POSTGRES_PASSWORD", "postgres"),
			DBName:            getEnv("POSTGRES_DB", "foodbot"),
			MigrationsDirPath: getEnv("ORDERS_MIGRATIONS_PATH", "internal/orders/migrations"),
		},

		KafkaBrokers: strings.Split(getEnv("KAFKA_BROKERS", "localhost:9092"), ","),
		AdminIDs:     parseIDList(getEnv("ADMIN_IDS", "")),

		HTTPPort:        getEnv("HTTP_PORT", "8080"),
		WebhookPort:     getEnv("WEBHOOK_PORT", "8081"),
		AdminToken:      getEnv("ADMIN_TOKEN", ""),
		ShutdownTimeout: 10 * time.Second,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func parseIDList(raw string) []int64 {
	var ids []int64
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			log.Printf("skipping malformed admin id %q", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("no .env file found, using environment")
	}
	cfg := loadConfig()
	if cfg.AdminToken == "" {
		log.Fatal("ADMIN_TOKEN must be set")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Cart storage: MongoDB documents fronted by a Redis cache.
	mongoDB, err := cart.ConnectMongoDB(ctx, cfg.MongoURI, cfg.MongoDBName)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer mongoDB.Client().Disconnect(context.Background())
	cartRepo := cart.NewMongoRepository(mongoDB)
	if err := cartRepo.CreateIndexes(ctx); err != nil {
		log.Fatalf("Failed to create cart indexes: %v", err)
	}
	log.Printf("Connected to MongoDB at %s", cfg.MongoURI)

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       0,
	})
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Fatal("Redis connection failed: ", err)
	}
	log.Printf("Redis ping succeeded")

	cartService := cart.NewService(cartRepo, cart.NewRedisCache(redisClient))

	// Menu: embedded sqlite with seeded catalog.
	menuRepo, err := menu.NewRepository(cfg.MenuDBPath)
	if err != nil {
		log.Fatalf("Failed to open menu database: %v", err)
	}
	defer menuRepo.Close()
	if err := menuRepo.RunMigrations(cfg.MenuMigrationsPath); err != nil {
		log.Fatalf("Failed to run menu migrations: %v", err)
	}

	// Orders + users: Postgres.
	orderRepo, err := orders.NewRepository(&cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to Postgres: %v", err)
	}
	defer orderRepo.Close()
	if err := orderRepo.RunMigrations(&cfg.Postgres); err != nil {
		log.Fatalf("Failed to run order migrations: %v", err)
	}
	userRepo := users.NewRepository(orderRepo.DB())

	conv := gateway.LogGateway{}

	checkoutService := checkout.NewService(checkout.DefaultConfig(), cartService, orderRepo)
	defer checkoutService.Close()

	router := bot.NewRouter(menuRepo, cartService, checkoutService, userRepo, conv)

	// Background notification pipeline.
	poller := notify.NewOutboxPoller(orderRepo, cfg.KafkaBrokers...)
	go poller.Run(ctx)
	defer poller.Close()

	notifier := notify.NewAdminNotifier(conv, cfg.AdminIDs, cfg.KafkaBrokers...)
	go notifier.Run(ctx)
	defer notifier.Close()

	// Inbound updates webhook.
	webhookSrv := &http.Server{
		Addr:         ":" + cfg.WebhookPort,
		Handler:      bot.WebhookHandler(router),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Printf("Updates webhook listening on :%s", cfg.WebhookPort)
		if err := webhookSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("webhook server error: %v", err)
		}
	}()

	// Admin HTTP surface.
	adminServer := adminapi.NewServer(adminapi.Config{Token: cfg.AdminToken}, orderRepo, menuRepo, userRepo, conv)
	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      adminServer.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Admin API listening on :%s", cfg.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer shutdownCancel()
	if err := webhookSrv.Shutdown(shutdownCtx); err != nil {
		log.Printf("webhook server forced to shutdown: %v", err)
	}
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server forced to shutdown: %v", err)
	}
	log.Println("Stopped")
}

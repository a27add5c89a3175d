package main // process entry point

import (
	"context"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/listing-relay/internal/config"
	"github.com/listing-relay/internal/database"
	"github.com/listing-relay/internal/dispatch"
	"github.com/listing-relay/internal/handler"
	"github.com/listing-relay/internal/middleware"
	"github.com/listing-relay/internal/queue"
	"github.com/listing-relay/internal/repository"
	"github.com/listing-relay/internal/router"
	"github.com/listing-relay/internal/service"
)

func main() {
	_ = godotenv.Load() // .env is optional; real deployments set the environment directly
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	apiTokens := repository.NewAPITokenRepo(db)
	configs := repository.NewConfigRepo(db)
	listings := repository.NewListingRepo(db)

	// Sweep refresh tokens that expired while the server was down.
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if n, err := tokens.DeleteExpired(ctx); err != nil {
		log.Printf("refresh token sweep failed: %v", err)
	} else if n > 0 {
		log.Printf("swept %d expired refresh tokens", n)
	}
	cancel()

	scheduler := dispatch.NewClient(cfg)
	svc := service.NewListingService(configs, listings, scheduler, service.NewDispatchPublisher(cfg.RabbitMQURL))

	// Audit trail of accepted dispatches; runs until the process exits.
	go func() {
		if err := queue.StartDispatchConsumer(cfg.RabbitMQURL); err != nil {
			log.Printf("dispatch consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	rdb := config.NewRedisClient(config.LoadRedisConfig())
	if rdb == nil {
		log.Printf("redis unreachable; rate limiting and response cache disabled")
	}

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, users, tokens),
		Configs:  handler.NewConfigHandler(configs),
		Listings: handler.NewListingHandler(svc, listings),
		Tokens:   handler.NewAPITokenHandler(apiTokens),
		Callback: handler.NewCallbackHandler(svc),
	}, cfg.JWTSecret, apiTokens,
		middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb),
		middleware.NewRedisCache(config.LoadCacheConfig(), rdb),
	)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

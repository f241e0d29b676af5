package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flashduel-service/internal/app"
	"flashduel-service/internal/config"
	"flashduel-service/internal/domain"
	"flashduel-service/internal/infra/memory"
	"flashduel-service/internal/infra/postgres"
	infraredis "flashduel-service/internal/infra/redis"
	"flashduel-service/internal/infra/schedule"
	transport "flashduel-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the flashduel server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var matches app.MatchRepository
	var decks app.DeckRepository
	var users app.UserRepository
	if cfg.Postgres.URL != "" {
		db := openBun(cfg.Postgres.URL)
		defer db.Close()
		matches = postgres.NewMatchRepository(db)
		decks = postgres.NewDeckStore(db, pool)
		users = postgres.NewUserStore(db)
	} else {
		matches = memory.NewMatchStore()
		decks = memory.NewDeckStore(sampleDecks())
		users = memory.NewUserStore()
	}

	deckTTL := config.Duration(cfg.Deck.TTL, 10*time.Minute)
	if redisClient != nil {
		decks = infraredis.NewDeckCache(redisClient, decks, deckTTL)
	} else {
		decks = memory.NewDeckCache(decks, deckTTL)
	}

	var broadcaster app.Broadcaster
	var subscriber app.Subscriber
	if redisClient != nil {
		gateway := infraredis.NewGateway(redisClient)
		broadcaster, subscriber = gateway, gateway
	} else {
		broker := memory.NewBroker()
		broadcaster, subscriber = broker, broker
	}

	scheduler, err := schedule.New()
	if err != nil {
		return err
	}
	defer scheduler.Shutdown()

	revealDelay := config.Duration(cfg.Game.RevealDelay, 2*time.Second)
	service := app.NewMatchService(matches, decks, users, broadcaster, scheduler, revealDelay)

	handler := transport.NewHandler(service, transport.HeaderAuthenticator{})
	wsHandler := transport.NewWSHandler(service, subscriber)

	mux := http.NewServeMux()
	handler.Register(mux)
	mux.HandleFunc("GET /ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting flashduel service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleDecks provides demo content for running without Postgres.
func sampleDecks() map[string]domain.Deck {
	return map[string]domain.Deck{
		"deck-1": {
			ID:          "deck-1",
			Name:        "World Capitals",
			Description: "Name the capital city",
			Cards: []domain.Card{
				{Question: "Capital of France?", Answer: "Paris"},
				{Question: "Capital of Japan?", Answer: "Tokyo"},
				{Question: "Capital of Canada?", Answer: "Ottawa"},
			},
			CreatedAt: time.Now(),
		},
	}
}

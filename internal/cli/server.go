package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"sessq-service/internal/app"
	"sessq-service/internal/auth"
	"sessq-service/internal/config"
	"sessq-service/internal/domain"
	"sessq-service/internal/infra/memory"
	"sessq-service/internal/infra/postgres"
	redisinfra "sessq-service/internal/infra/redis"
	transport "sessq-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the session server",
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

	// Authoring store: Postgres when configured, otherwise an in-memory
	// store seeded with a demo host and quiz.
	var quizStore transport.QuizStore
	var loader memory.QuizLoader
	var credentials auth.Credentials
	if pool != nil {
		store := postgres.NewQuizStore(pool)
		quizStore, loader, credentials = store, store, store
	} else {
		store := memory.NewQuizStore()
		seedDemoContent(ctx, store)
		quizStore, loader, credentials = store, store, store
	}

	quizTTL := config.TTLDuration(cfg.Quiz.TTL, 10*time.Minute)
	var quizRepo app.QuizRepository
	var cache transport.QuizCache
	if redisClient != nil {
		repo := redisinfra.NewQuizRepository(redisClient, loader, quizTTL)
		quizRepo, cache = repo, repo
	} else {
		repo := memory.NewQuizRepository(loader, quizTTL)
		quizRepo, cache = repo, repo
	}

	sessionTTL := config.TTLDuration(cfg.Session.TTL, 12*time.Hour)
	var store app.SessionStore
	if redisClient != nil {
		store = redisinfra.NewSessionStore(redisClient, sessionTTL)
	} else {
		store = memory.NewSessionStore()
	}

	var tokens auth.TokenStore
	if redisClient != nil {
		tokens = redisinfra.NewTokenStore(redisClient)
	} else {
		tokens = memory.NewTokenStore()
	}

	secret := cfg.Auth.Secret
	if secret == "" {
		secret = os.Getenv("AUTH_SECRET")
	}
	if secret == "" {
		return errMissingSecret
	}
	authService := auth.NewService(
		credentials,
		tokens,
		secret,
		config.TTLDuration(cfg.Auth.AccessTTL, 15*time.Minute),
		config.TTLDuration(cfg.Auth.RefreshTTL, 7*24*time.Hour),
	)

	registry := app.NewRegistry(store, cfg.Session.CodeLength)
	hub := app.NewHub()
	sessions := app.NewSessionService(registry, quizRepo, hub)

	api := transport.NewAPI(authService, quizStore, cache, sessions)
	wsHandler := transport.NewWSHandler(sessions, authService)
	router := transport.NewRouter(api, wsHandler)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting session service on :%s", finalPort)
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

var errMissingSecret = errors.New("auth secret not configured (set auth.secret or AUTH_SECRET)")

// seedDemoContent gives the in-memory store a usable host and quiz so the
// service works out of the box without Postgres.
func seedDemoContent(ctx context.Context, store *memory.QuizStore) {
	hash, err := bcrypt.GenerateFromPassword([]byte("demo1234"), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("seed demo host: %v", err)
		return
	}
	host, err := store.CreateHost(ctx, "demo", string(hash))
	if err != nil {
		log.Printf("seed demo host: %v", err)
		return
	}
	quiz, err := store.CreateQuiz(ctx, host.ID, "General Knowledge")
	if err != nil {
		log.Printf("seed demo quiz: %v", err)
		return
	}
	three := "3"
	five := "5"
	questions := []domain.Question{
		{QuizID: quiz.ID, Text: "What is 2 + 2?", OptionA: "4", OptionB: "22", OptionC: &three, OptionD: &five, CorrectOption: "A"},
		{QuizID: quiz.ID, Text: "Which planet is known as the Red Planet?", OptionA: "Venus", OptionB: "Mars", CorrectOption: "B"},
	}
	for _, question := range questions {
		if _, err := store.CreateQuestion(ctx, host.ID, question); err != nil {
			log.Printf("seed demo question: %v", err)
		}
	}
	log.Printf("seeded demo host %q with quiz %s", host.Username, quiz.ID)
}

package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"quizdesk-service/internal/app"
	"quizdesk-service/internal/auth"
	"quizdesk-service/internal/config"
	"quizdesk-service/internal/domain"
	"quizdesk-service/internal/infra/memory"
	pgstore "quizdesk-service/internal/infra/postgres"
	redcache "quizdesk-service/internal/infra/redis"
	transport "quizdesk-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		if !os.IsNotExist(err) {
			return err
		}
		log.Printf("no config at %s, using defaults with in-memory stores", configPath)
		cfg = config.Default()
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

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		secret = "quizdesk-dev-secret"
		log.Printf("warning: auth.jwt_secret not set, using development secret")
	}
	tokens, err := auth.NewTokenManager(secret, config.TTLDuration(cfg.Auth.TokenTTL, 24*time.Hour))
	if err != nil {
		return err
	}
	hasher := auth.NewHasher(cfg.Auth.BcryptCost)

	var (
		userStore   app.UserStore
		quizStore   app.QuizStore
		resultStore app.ResultStore
	)
	demoMode := cfg.Postgres.URL == ""
	if demoMode {
		userStore = memory.NewUserStore()
		quizStore = memory.NewQuizStore()
		resultStore = memory.NewResultStore()
	} else {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
		userStore = pgstore.NewUserStore(pool)
		quizStore = pgstore.NewQuizStore(pool)
		resultStore = pgstore.NewResultStore(pool)
	}

	cacheTTL := config.TTLDuration(cfg.Quiz.CacheTTL, 10*time.Minute)
	var quizReader app.QuizReader
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		quizReader = redcache.NewQuizCache(client, quizStore, cacheTTL)
	} else {
		quizReader = memory.NewQuizCache(quizStore, cacheTTL)
	}

	authService := app.NewAuthService(userStore, hasher, tokens)
	quizService := app.NewQuizService(quizStore, userStore, quizReader)
	resultService := app.NewResultService(resultStore, quizStore, userStore)
	attemptService := app.NewAttemptService(
		quizReader,
		resultService,
		memory.NewAttemptRegistry(),
		cfg.SaveMode(),
		cfg.Results.RetryAttempts,
	)

	if demoMode {
		if err := seedDemoData(ctx, authService, quizService); err != nil {
			return err
		}
	}

	handler := transport.NewHandler(authService, quizService, resultService, attemptService)
	mux := http.NewServeMux()
	handler.Routes(mux)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting quizdesk service on :%s", finalPort)
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

// seedDemoData registers a demo admin and one sample quiz so the in-memory
// mode is usable out of the box.
func seedDemoData(ctx context.Context, authService *app.AuthService, quizService *app.QuizService) error {
	session, err := authService.Register(ctx, app.RegisterInput{
		Username: "admin",
		Password: "admin123",
		Name:     "Demo Admin",
		Email:    "admin@quizdesk.local",
		Role:     domain.RoleAdmin,
	})
	if err != nil {
		return err
	}

	actor := app.Actor{
		ID:       session.User.ID,
		Username: session.User.Username,
		Name:     session.User.Name,
		Role:     session.User.Role,
	}
	timerOn := true
	_, err = quizService.CreateQuiz(ctx, actor, domain.QuizDraft{
		Title:            "General Knowledge Warmup",
		Description:      "A short sample quiz seeded in demo mode.",
		Category:         "general",
		Difficulty:       domain.DifficultyEasy,
		TimerEnabled:     &timerOn,
		TimeLimitMinutes: 5,
		Questions: []domain.QuestionDraft{
			{
				Text:          "What is 2 + 2?",
				Options:       []string{"3", "4", "5", "22"},
				CorrectOption: 1,
			},
			{
				Text:          "Which planet is known as the Red Planet?",
				Options:       []string{"Venus", "Jupiter", "Mars", "Saturn"},
				CorrectOption: 2,
			},
		},
	})
	if err != nil {
		return err
	}
	log.Printf("demo mode: seeded admin/admin123 and one sample quiz")
	return nil
}

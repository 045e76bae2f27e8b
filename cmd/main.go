package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"auth_backend/internal/auth"
	"auth_backend/internal/config"
	"auth_backend/internal/email"
	confirmEmail "auth_backend/internal/http_server/handlers/confirm_email"
	"auth_backend/internal/http_server/handlers/login"
	"auth_backend/internal/http_server/handlers/logout"
	"auth_backend/internal/http_server/handlers/profile"
	"auth_backend/internal/http_server/handlers/reissue"
	sendVerification "auth_backend/internal/http_server/handlers/send_verification"
	"auth_backend/internal/http_server/handlers/signup"
	"auth_backend/internal/http_server/handlers/verify"
	verifyEmail "auth_backend/internal/http_server/handlers/verify_email"
	tokens "auth_backend/internal/lib/jwt"
	"auth_backend/internal/middleware/authn"
	rateLimit "auth_backend/internal/middleware/ratelimit"
	"auth_backend/internal/rabbitmq"
	"auth_backend/internal/storage/postgres"
	"auth_backend/internal/storage/redis"

	"github.com/go-chi/chi"
	"github.com/go-chi/chi/middleware"
	"github.com/go-playground/validator/v10"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

func main() {
	cfg := config.MustLoad("./config/config.yaml")

	log := setupLogger(cfg.Env)

	log.Info("starting auth backend", slog.String("env", cfg.Env))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigs
		log.Info("Shutdown signal received")
		cancel()
	}()

	storage, err := postgres.New(ctx, cfg)
	if err != nil {
		log.Error("failed to connect postgres", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer storage.Close()

	ledger, err := redis.New(ctx, cfg.Redis.Address, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		log.Error("failed to connect redis", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer ledger.Close()

	msgBroker, err := rabbitmq.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.QueueName)
	if err != nil {
		log.Error("failed to connect rabbitmq", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer msgBroker.Close()

	tokenManager := tokens.New(
		cfg.Tokens.Secret,
		cfg.Tokens.AccessTokenTTL,
		cfg.Tokens.RefreshTokenTTL,
		cfg.Tokens.VerificationTokenTTL,
	)

	emailService := email.New(log, ledger, msgBroker, tokenManager)
	authService := auth.New(log, storage, storage, emailService, tokenManager, ledger)

	router := setupRouter(log, authService, emailService)

	srv := &http.Server{
		Addr:         cfg.HTTPServer.Address,
		Handler:      router,
		ReadTimeout:  cfg.HTTPServer.Timeout,
		WriteTimeout: cfg.HTTPServer.Timeout,
		IdleTimeout:  cfg.HTTPServer.IdleTimeout,
	}

	go func() {
		log.Info("HTTP server is running")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("Server failed", slog.String("err", err.Error()))
			cancel()
		}
	}()

	<-ctx.Done()

	log.Info("Shutting down HTTP server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server shutdown error", slog.String("err", err.Error()))
	} else {
		log.Info("Server stopped gracefully")
	}

	log.Info("Main service stopped")
}

func setupRouter(
	log *slog.Logger,
	authService *auth.Auth,
	emailService *email.Service,
) *chi.Mux {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	validate := validator.New()
	requireAuth := authn.New(log, authService)

	r.Route("/api/auth", func(r chi.Router) {
		r.With(rateLimit.SignUp()).Post("/signup",
			signup.New(log, validate, authService),
		)
		r.With(rateLimit.Login()).Post("/login",
			login.New(log, validate, authService),
		)
		r.With(rateLimit.Logout()).Delete("/logout",
			logout.New(log, authService),
		)
		r.With(rateLimit.Reissue()).Post("/reissue",
			reissue.New(log, validate, authService),
		)
		r.With(rateLimit.Verify()).Post("/verify",
			verify.New(log, authService),
		)

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.With(rateLimit.Logout()).Delete("/logout/user",
				logout.NewByUser(log, authService),
			)
			r.With(rateLimit.Reissue()).Post("/reissue/user",
				reissue.NewByUser(log, validate, authService),
			)
			r.Get("/profile",
				profile.NewGet(log, authService),
			)
			r.Patch("/profile",
				profile.NewUpdate(log, validate, authService),
			)
		})
	})

	r.Route("/api/email", func(r chi.Router) {
		r.With(rateLimit.EmailSend()).Post("/verification/send",
			sendVerification.New(log, validate, emailService),
		)
		r.With(rateLimit.EmailVerify()).Post("/verification/verify",
			verifyEmail.New(log, validate, emailService),
		)
		r.With(rateLimit.EmailVerify()).Get("/verification/confirm",
			confirmEmail.New(log, emailService),
		)
	})

	return r
}

func setupLogger(env string) *slog.Logger {
	var log *slog.Logger

	switch env {
	case envLocal:
		log = slog.New(
			slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envDev:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}),
		)
	case envProd:
		log = slog.New(
			slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}),
		)
	}

	return log
}

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"ainurse/internal/app"
	"ainurse/internal/config"
	"ainurse/internal/server"
	"ainurse/internal/util"
	"ainurse/pkg/ai"
)

func main() {
	// .env is optional, real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("AINURSE_CONFIG"))
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}

	util.InitLogger(cfg.LogLevel)

	generator, err := newGenerator(cfg)
	if err != nil {
		util.Fatal("failed to init text generator", "err", err)
	}

	appCore, err := app.New(app.Config{
		DatabaseURL: cfg.DatabaseURL,
		Generator:   generator,
	})
	if err != nil {
		util.Fatal("failed to init app", "err", err)
	}

	httpServer, err := server.New(server.Config{
		App:                      appCore,
		RedisAddr:                cfg.RedisAddr,
		RedisPassword:            cfg.RedisPassword,
		LoginRateLimitPerMinute:  cfg.LoginRateLimitPerMinute,
		SignupRateLimitPerMinute: cfg.SignupRateLimitPerMinute,
		TrustedProxyCIDRs:        cfg.TrustedProxyCIDRs,
	})
	if err != nil {
		util.Fatal("failed to init server", "err", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	slog.Info("ainurse server listening", "addr", addr, "provider", cfg.AIProvider)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "err", err)
	}
}

func newGenerator(cfg config.FileConfig) (ai.TextGenerator, error) {
	switch cfg.AIProvider {
	case "gemini":
		return ai.NewGeminiGenerator(cfg.GeminiAPIKey, cfg.GenerationModel)
	case "openai":
		return ai.NewOpenAIGenerator(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, cfg.GenerationModel), nil
	case "ollama":
		return ai.NewOllamaGenerator(cfg.OllamaBaseURL, cfg.GenerationModel), nil
	default:
		return nil, fmt.Errorf("unknown ai provider %q", cfg.AIProvider)
	}
}

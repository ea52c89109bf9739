// Portfolio Chat - AI assistant proxy server
package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ashureev/portfolio-chat/internal/api"
	"github.com/ashureev/portfolio-chat/internal/chat"
	"github.com/ashureev/portfolio-chat/internal/config"
	"github.com/ashureev/portfolio-chat/internal/llm"
	"github.com/ashureev/portfolio-chat/internal/portfolio"
	"github.com/ashureev/portfolio-chat/internal/probe"
	"github.com/ashureev/portfolio-chat/internal/prompt"
	"github.com/ashureev/portfolio-chat/internal/ratelimit"
	"github.com/ashureev/portfolio-chat/internal/store"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	}))
	slog.SetDefault(logger)

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment(), "model", cfg.Gemini.Model)

	if err := run(cfg, logger); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped successfully")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	p, err := portfolio.Load(cfg.PortfolioFile)
	if err != nil {
		return err
	}
	slog.Info("Portfolio loaded", "name", p.Name, "source", portfolioSource(cfg.PortfolioFile))

	gateway := newGateway(cfg)
	if !gateway.Configured() {
		slog.Warn("GEMINI_API_KEY not set, chat requests will fail with a configuration error")
	}
	responder := chat.NewDirectResponder(prompt.NewAssembler(p, cfg.Chat.HistoryWindow), p.Context(), gateway)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	limiter := ratelimit.New(ratelimit.Config{
		Window:     cfg.RateLimit.Window,
		Max:        cfg.RateLimit.Requests,
		MaxClients: cfg.RateLimit.MaxClients,
	})
	limiter.StartSweeper(ctx, cfg.RateLimit.Window)

	repo, err := openExchangeStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	recorder := store.NewRecorder(repo, cfg.Exchange.QueueSize, logger)
	defer func() {
		if closeErr := recorder.Close(); closeErr != nil {
			slog.Error("Failed to flush exchange log", "error", closeErr, "dropped", recorder.Dropped())
		}
	}()
	if cfg.Exchange.Enabled {
		store.StartPruner(ctx, repo, cfg.Exchange.Retention, 0)
	}

	h := api.NewHandler(api.Options{
		Responder:      responder,
		Limiter:        limiter,
		Recorder:       recorder,
		Repo:           repo,
		Greeting:       p.Greeting(),
		HistoryWindow:  cfg.Chat.HistoryWindow,
		AllowedOrigins: cfg.AllowedOrigins,
		Logger:         logger,
	})

	// No WriteTimeout: WebSocket connections stay open for the life of a widget.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           api.NewRouter(h, cfg.AllowedOrigins, logger),
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       120 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	var hp *probe.Server
	if cfg.GRPCHealthPort != "" {
		hp, err = probe.Listen(":"+cfg.GRPCHealthPort, logger)
		if err != nil {
			return err
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		slog.Info("Server listening", "addr", srv.Addr, "allowed_origins", cfg.AllowedOrigins)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if hp != nil {
		hp.SetServing(true)
		g.Go(hp.Serve)
	}

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("Shutting down gracefully...")
		if hp != nil {
			hp.SetServing(false)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		if hp != nil {
			hp.Stop()
		}
		return err
	})

	return g.Wait()
}

func newGateway(cfg *config.Config) *llm.Gateway {
	var budget *rate.Limiter
	if cfg.RateLimit.GlobalRPS > 0 {
		budget = rate.NewLimiter(rate.Limit(cfg.RateLimit.GlobalRPS), cfg.RateLimit.GlobalBurst)
		slog.Info("Global request budget enabled", "rps", cfg.RateLimit.GlobalRPS, "burst", cfg.RateLimit.GlobalBurst)
	}

	provider := llm.NewGeminiProvider(cfg.Gemini.APIKey, cfg.Gemini.BaseURL, nil)
	return llm.NewGateway(provider, llm.GatewayConfig{
		APIKey:     cfg.Gemini.APIKey,
		Timeout:    cfg.Chat.Timeout,
		Generation: cfg.Gemini.Generation(),
		Budget:     budget,
	})
}

func openExchangeStore(ctx context.Context, cfg *config.Config) (store.Repository, error) {
	if !cfg.Exchange.Enabled {
		slog.Info("Exchange log disabled")
		return store.NewNoop(), nil
	}

	repo, err := store.NewSQLite(cfg.Exchange.DBPath)
	if err != nil {
		return nil, err
	}
	if err := repo.Ping(ctx); err != nil {
		_ = repo.Close()
		return nil, err
	}
	slog.Info("Database connected", "path", cfg.Exchange.DBPath)
	return repo, nil
}

func portfolioSource(path string) string {
	if path == "" {
		return "embedded"
	}
	return path
}

// Command schedvox is the main entry point for the Schedvox scheduling
// assistant server.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/oauth2"

	"github.com/schedvox/schedvox/internal/calendar"
	"github.com/schedvox/schedvox/internal/calendar/google"
	"github.com/schedvox/schedvox/internal/config"
	"github.com/schedvox/schedvox/internal/dialogue"
	"github.com/schedvox/schedvox/internal/health"
	"github.com/schedvox/schedvox/internal/observe"
	"github.com/schedvox/schedvox/internal/resilience"
	"github.com/schedvox/schedvox/internal/server"
	"github.com/schedvox/schedvox/internal/session"
	"github.com/schedvox/schedvox/internal/session/postgres"
)

// sweepInterval is how often the in-memory store scans for expired sessions.
const sweepInterval = time.Minute

func main() {
	os.Exit(run())
}

func run() int {
	// ── CLI flags ──────────────────────────────────────────────────────────────
	configPath := flag.String("config", "config.yaml", "path to the YAML configuration file")
	flag.Parse()

	// ── Load configuration ────────────────────────────────────────────────────
	cfg, err := config.Load(*configPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			fmt.Fprintf(os.Stderr, "schedvox: config file %q not found — copy configs/example.yaml to get started\n", *configPath)
		} else {
			fmt.Fprintf(os.Stderr, "schedvox: %v\n", err)
		}
		return 1
	}

	// ── Logger ────────────────────────────────────────────────────────────────
	// A LevelVar so the hot-reload watcher can adjust verbosity at runtime.
	logLevel := new(slog.LevelVar)
	logLevel.Set(slogLevel(cfg.Server.LogLevel))
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)

	slog.Info("schedvox starting",
		"config", *configPath,
		"listen_addr", listenAddr(cfg),
		"log_level", cfg.Server.LogLevel,
	)

	// ── Signal context ────────────────────────────────────────────────────────
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// ── Observability ─────────────────────────────────────────────────────────
	otelShutdown, err := observe.InitProvider(ctx, observe.ProviderConfig{
		ServiceName: "schedvox",
	})
	if err != nil {
		slog.Error("failed to initialise telemetry", "err", err)
		return 1
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("telemetry shutdown error", "err", err)
		}
	}()
	metrics := observe.DefaultMetrics()

	// ── Response generation ───────────────────────────────────────────────────
	responder, chain, err := buildResponder(cfg, metrics)
	if err != nil {
		slog.Error("failed to build llm providers", "err", err)
		return 1
	}

	// ── Session store ─────────────────────────────────────────────────────────
	var store session.Store
	var checkers []health.Checker
	switch cfg.Session.Backend {
	case config.SessionPostgres:
		pg, err := postgres.New(ctx, cfg.Session.PostgresDSN)
		if err != nil {
			slog.Error("failed to connect to postgres", "err", err)
			return 1
		}
		defer pg.Close()
		checkers = append(checkers, health.StoreChecker(pg))
		store = pg
		slog.Info("session store ready", "backend", "postgres")
	default:
		ms := session.NewMemStore()
		if ttl := time.Duration(cfg.Session.TTL); ttl > 0 {
			ms.StartSweeper(ctx, sweepInterval, ttl)
		}
		store = ms
		slog.Info("session store ready", "backend", "memory", "ttl", time.Duration(cfg.Session.TTL))
	}

	if chain != nil {
		checkers = append(checkers, health.Checker{Name: "llm", Check: chain.Check})
	}

	orch := dialogue.New(store, responder, metrics, cfg.Scheduling.DefaultTimezone)

	// ── Google Calendar ───────────────────────────────────────────────────────
	var calOpts []google.Option
	if cfg.Scheduling.CalendarID != "" {
		calOpts = append(calOpts, google.WithCalendarID(cfg.Scheduling.CalendarID))
	}
	if cfg.Scheduling.AttendeeEmail != "" {
		calOpts = append(calOpts, google.WithAttendee(cfg.Scheduling.AttendeeEmail))
	}

	opts := server.Options{
		Orchestrator: orch,
		Metrics:      metrics,
		Health:       health.New(checkers...),
		Scheduling:   cfg.Scheduling,
	}
	if cfg.Google.OAuthConfigured() {
		opts.OAuth = google.NewOAuthFlow(cfg.Google.ClientID, cfg.Google.ClientSecret, cfg.Google.RedirectURL)
		opts.NewCalendar = func(ts oauth2.TokenSource) calendar.Service {
			return google.New(ts, calOpts...)
		}
		slog.Info("google oauth flow enabled", "redirect_url", cfg.Google.RedirectURL)
	}
	if cfg.Google.ServiceAccountFile != "" {
		ts, err := google.ServiceAccountTokenSource(ctx, cfg.Google.ServiceAccountFile)
		if err != nil {
			slog.Error("failed to load google service account", "err", err)
			return 1
		}
		opts.ServiceCalendar = google.New(ts, calOpts...)
		slog.Info("google service account calendar enabled")
	}

	srv := server.New(opts)
	httpSrv := &http.Server{
		Addr:              listenAddr(cfg),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ── Config hot reload ─────────────────────────────────────────────────────
	watcher, err := config.NewWatcher(*configPath, func(old, new *config.Config) {
		d := config.Diff(old, new)
		if !d.Any() {
			return
		}
		if d.LogLevelChanged {
			logLevel.Set(slogLevel(d.NewLogLevel))
			slog.Info("log level updated", "level", d.NewLogLevel)
		}
		if d.SchedulingChanged {
			srv.UpdateScheduling(d.NewScheduling)
			slog.Info("scheduling defaults updated",
				"timezone", d.NewScheduling.DefaultTimezone,
				"calendar_id", d.NewScheduling.CalendarID,
			)
		}
	})
	if err != nil {
		slog.Warn("config hot reload unavailable", "err", err)
	} else {
		defer watcher.Stop()
	}

	// ── Startup summary ───────────────────────────────────────────────────────
	printStartupSummary(cfg)

	errCh := make(chan error, 1)
	go func() {
		var err error
		if tls := cfg.Server.TLS; tls != nil {
			err = httpSrv.ListenAndServeTLS(tls.CertFile, tls.KeyFile)
		} else {
			err = httpSrv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	slog.Info("server ready — press Ctrl+C to shut down")

	select {
	case err := <-errCh:
		slog.Error("server error", "err", err)
		return 1
	case <-ctx.Done():
	}

	// ── Graceful shutdown ─────────────────────────────────────────────────────
	slog.Info("shutdown signal received, stopping…")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("shutdown error", "err", err)
		return 1
	}
	slog.Info("goodbye")
	return 0
}

// ── Provider wiring ───────────────────────────────────────────────────────────

// buildResponder instantiates the configured LLM backends and wraps them in
// the failover chain. The chain is also returned so it can serve as a
// readiness check; it is nil when no provider is configured, in which case
// every turn uses the dialogue layer's fixed apology.
func buildResponder(cfg *config.Config, metrics *observe.Metrics) (dialogue.Responder, *resilience.LLMFallback, error) {
	if cfg.Providers.LLM.Name == "" {
		slog.Warn("no llm provider configured — replies will use the fallback apology")
		return dialogue.UnconfiguredResponder{}, nil, nil
	}

	reg := config.DefaultRegistry()

	primary, err := reg.CreateLLM(cfg.Providers.LLM)
	if err != nil {
		return nil, nil, fmt.Errorf("create llm provider %q: %w", cfg.Providers.LLM.Name, err)
	}
	slog.Info("provider created", "kind", "llm", "name", cfg.Providers.LLM.Name, "model", cfg.Providers.LLM.Model)

	chain := resilience.NewLLMFallback(cfg.Providers.LLM.Name, primary, resilience.CircuitBreakerConfig{})
	for _, entry := range cfg.Providers.Fallbacks {
		p, err := reg.CreateLLM(entry)
		if err != nil {
			return nil, nil, fmt.Errorf("create fallback provider %q: %w", entry.Name, err)
		}
		chain.AddFallback(entry.Name, p)
		slog.Info("provider created", "kind", "llm-fallback", "name", entry.Name, "model", entry.Model)
	}

	return dialogue.NewLLMResponder(chain, metrics), chain, nil
}

// ── Startup summary ───────────────────────────────────────────────────────────

func printStartupSummary(cfg *config.Config) {
	llmValue := "(not configured)"
	if name := cfg.Providers.LLM.Name; name != "" {
		llmValue = name
		if model := cfg.Providers.LLM.Model; model != "" {
			llmValue = name + " / " + model
		}
	}

	backend := cfg.Session.Backend
	if backend == "" {
		backend = config.SessionMemory
	}

	calMode := "(not configured)"
	switch {
	case cfg.Google.OAuthConfigured() && cfg.Google.ServiceAccountFile != "":
		calMode = "oauth + service acct"
	case cfg.Google.OAuthConfigured():
		calMode = "oauth"
	case cfg.Google.ServiceAccountFile != "":
		calMode = "service account"
	}

	tz := cfg.Scheduling.DefaultTimezone
	if tz == "" {
		tz = "UTC"
	}

	fmt.Println("╔══════════════════════════════════════╗")
	fmt.Println("║       Schedvox — startup summary     ║")
	fmt.Println("╠══════════════════════════════════════╣")
	printRow("LLM", llmValue)
	printRow("Fallbacks", fmt.Sprintf("%d", len(cfg.Providers.Fallbacks)))
	printRow("Sessions", string(backend))
	printRow("Calendar", calMode)
	printRow("Timezone", tz)
	printRow("Listen addr", listenAddr(cfg))
	fmt.Println("╚══════════════════════════════════════╝")
}

func printRow(key, value string) {
	if len(value) > 20 {
		value = value[:17] + "…"
	}
	fmt.Printf("║  %-12s: %-20s ║\n", key, value)
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func listenAddr(cfg *config.Config) string {
	if cfg.Server.ListenAddr != "" {
		return cfg.Server.ListenAddr
	}
	return ":8080"
}

func slogLevel(level config.LogLevel) slog.Level {
	switch level {
	case config.LogDebug:
		return slog.LevelDebug
	case config.LogWarn:
		return slog.LevelWarn
	case config.LogError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

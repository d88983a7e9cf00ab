// Package app wires all hirevox subsystems into a running application.
//
// The App struct owns the full lifecycle: New creates and connects all
// subsystems, Run serves the websocket gateway and operational endpoints
// until the context is cancelled, and Shutdown tears everything down in
// order.
//
// For testing, inject mock implementations via functional options
// (WithRecordStore, WithMetrics). When an option is not provided, New creates
// real implementations from the config.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/vikram-capsitech/hirevox/internal/align"
	"github.com/vikram-capsitech/hirevox/internal/config"
	"github.com/vikram-capsitech/hirevox/internal/gateway"
	"github.com/vikram-capsitech/hirevox/internal/health"
	"github.com/vikram-capsitech/hirevox/internal/observe"
	"github.com/vikram-capsitech/hirevox/internal/record"
	"github.com/vikram-capsitech/hirevox/pkg/provider/llm"
	"github.com/vikram-capsitech/hirevox/pkg/provider/tts"
	"github.com/vikram-capsitech/hirevox/pkg/speechio"
)

// Providers holds one interface value per provider slot. Nil means the
// provider is not configured. Populated by main.go via the config registry.
type Providers struct {
	LLM llm.Provider
	TTS tts.Synthesizer
}

// App owns all subsystem lifetimes and serves the interview gateway.
type App struct {
	cfg       *config.Config
	providers *Providers

	records record.Store
	pool    *tts.KeyPool
	aligner *align.Engine
	metrics *observe.Metrics

	server *http.Server

	// closers are called in order during Shutdown.
	closers []func() error

	// stopOnce guards the Shutdown path.
	stopOnce sync.Once
}

// Option is a functional option for New. Use these to inject test doubles.
type Option func(*App)

// WithRecordStore injects a record store instead of creating one from config.
func WithRecordStore(s record.Store) Option {
	return func(a *App) { a.records = s }
}

// WithMetrics injects a metrics set instead of using the global meter
// provider.
func WithMetrics(m *observe.Metrics) Option {
	return func(a *App) { a.metrics = m }
}

// New creates an App by wiring all subsystems together. The providers struct
// comes from main.go (populated via the config registry); an LLM provider is
// required, voice synthesis is optional.
func New(ctx context.Context, cfg *config.Config, providers *Providers, opts ...Option) (*App, error) {
	if providers == nil || providers.LLM == nil {
		return nil, fmt.Errorf("app: an LLM provider is required")
	}

	a := &App{
		cfg:       cfg,
		providers: providers,
	}
	for _, o := range opts {
		o(a)
	}

	if a.metrics == nil {
		a.metrics = observe.DefaultMetrics()
	}

	if err := a.initRecords(ctx); err != nil {
		return nil, fmt.Errorf("app: init records: %w", err)
	}
	if err := a.initSynthesis(); err != nil {
		return nil, fmt.Errorf("app: init synthesis: %w", err)
	}
	a.initAlignment()
	a.initServer()

	return a, nil
}

// initRecords sets up the conversation store: Postgres when a DSN is
// configured, in-memory otherwise.
func (a *App) initRecords(ctx context.Context) error {
	if a.records != nil {
		return nil // injected
	}

	dsn := a.cfg.Storage.PostgresDSN
	if dsn == "" {
		slog.Warn("storage.postgres_dsn not set, conversation records are in-memory only")
		a.records = record.NewMemoryStore()
		return nil
	}

	store, err := record.NewPostgresStore(ctx, dsn)
	if err != nil {
		return err
	}
	a.records = store
	a.closers = append(a.closers, func() error {
		store.Close()
		return nil
	})
	return nil
}

// initSynthesis builds the credential key pool over the configured
// synthesizer. Without a TTS provider the gateway ships text-only speak
// frames and the client synthesizes locally.
func (a *App) initSynthesis() error {
	if a.providers.TTS == nil {
		slog.Info("no tts provider configured, interviewer turns are text-only")
		return nil
	}

	pool, err := tts.NewKeyPool(a.providers.TTS, a.cfg.Providers.TTS.APIKeys)
	if err != nil {
		return err
	}
	a.pool = pool
	slog.Info("voice synthesis ready",
		"provider", a.cfg.Providers.TTS.Name, "keys", pool.Len())
	return nil
}

// initAlignment builds the transcript alignment engine with the configured
// matcher.
func (a *App) initAlignment() {
	var matcher align.Matcher
	switch a.cfg.Alignment.Matcher {
	case config.MatcherFuzzy:
		matcher = align.NewFuzzyMatcher(a.cfg.Alignment.FuzzyThreshold)
	default:
		matcher = align.NewKeywordMatcher()
	}
	a.aligner = align.NewEngine(matcher)
}

// initServer assembles the HTTP surface: the websocket gateway, transcript
// reads, health probes and the Prometheus scrape endpoint.
func (a *App) initServer() {
	mux := http.NewServeMux()

	mux.Handle("/ws", gateway.NewHandler(a.sessionFactory, a.newPlayer))
	mux.HandleFunc("GET /api/sessions/{id}/transcript", a.handleTranscript)
	mux.Handle("GET /metrics", promhttp.Handler())

	checkers := []health.Checker{}
	if pg, ok := a.records.(*record.PostgresStore); ok {
		checkers = append(checkers, health.Database(pg))
	}
	health.New(checkers...).Register(mux)

	addr := a.cfg.Server.ListenAddr
	if addr == "" {
		addr = ":8080"
	}
	a.server = &http.Server{
		Addr:              addr,
		Handler:           observe.Middleware(a.metrics)(mux),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

// newPlayer builds a per-connection synthesis player over the shared key
// pool. Each session pins the pool key that first succeeds for it.
func (a *App) newPlayer() *speechio.Player {
	if a.pool == nil {
		return nil
	}
	ttsCfg := a.cfg.Providers.TTS
	player, err := speechio.NewPlayer(a.pool, speechio.Voice{
		VoiceID:      ttsCfg.VoiceID,
		Model:        ttsCfg.Model,
		OutputFormat: ttsCfg.OutputFormat,
		Settings: tts.VoiceSettings{
			Stability:       ttsCfg.Stability,
			SimilarityBoost: ttsCfg.SimilarityBoost,
		},
	})
	if err != nil {
		slog.Error("synthesis player setup failed, session falls back to text-only", "err", err)
		return nil
	}
	return player
}

// Run serves until ctx is cancelled, then shuts the server down gracefully.
func (a *App) Run(ctx context.Context) error {
	slog.Info("app running", "addr", a.server.Addr, "tls", a.cfg.Server.TLS != nil)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		if t := a.cfg.Server.TLS; t != nil {
			err = a.server.ListenAndServeTLS(t.CertFile, t.KeyFile)
		} else {
			err = a.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("app: serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("server shutdown error", "err", err)
		}
		return gctx.Err()
	})
	return g.Wait()
}

// Shutdown stops the HTTP server and closes all subsystems in order. Safe to
// call more than once.
func (a *App) Shutdown(ctx context.Context) error {
	var err error
	a.stopOnce.Do(func() {
		if shutdownErr := a.server.Shutdown(ctx); shutdownErr != nil {
			err = fmt.Errorf("app: shutdown server: %w", shutdownErr)
		}
		for _, closeFn := range a.closers {
			if closeErr := closeFn(); closeErr != nil && err == nil {
				err = closeErr
			}
		}
	})
	return err
}

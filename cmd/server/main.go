package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/lawgest/internal/api"
	"github.com/dgallion1/lawgest/internal/config"
	"github.com/dgallion1/lawgest/internal/pathstore"
	"github.com/dgallion1/lawgest/internal/pipeline"
	"github.com/dgallion1/lawgest/internal/publish"
	"github.com/dgallion1/lawgest/internal/rules"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Rules: built-in table, or a file that is reloaded on change.
	var rs rules.Source = rules.NewStatic(rules.Default())
	if cfg.RulesFile != "" {
		w, err := rules.NewWatcher(cfg.RulesFile, log)
		if err != nil {
			log.Error("invalid rules file", "path", cfg.RulesFile, "error", err)
			os.Exit(1)
		}
		go func() {
			if err := w.Run(ctx); err != nil {
				log.Error("rules watcher stopped", "error", err)
			}
		}()
		rs = w
		log.Info("rules loaded", "path", cfg.RulesFile, "markers", len(w.Current().Rules()))
	}

	// Initialize clients.
	ps := pathstore.NewClient(cfg.PathstoreURL, cfg.PathstoreAPIKey)
	pub := publish.New(ps, cfg.PublishConfig(), log)

	// Initialize pipeline.
	orch := pipeline.NewOrchestrator(cfg, rs, pub, log)
	orch.Start(ctx)

	// Initialize HTTP server.
	srv := api.NewServer(orch, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		orch.Stop()
		cancel()
		ps.Close()
	}()

	log.Info("starting lawgest", "port", cfg.Port, "workers", cfg.WorkerCount)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
}

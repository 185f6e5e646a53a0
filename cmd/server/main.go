package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/docquiz/internal/api"
	"github.com/dgallion1/docquiz/internal/bank"
	"github.com/dgallion1/docquiz/internal/config"
	"github.com/dgallion1/docquiz/internal/generate"
	"github.com/dgallion1/docquiz/internal/pipeline"
)

func main() {
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.Load()
	if err != nil {
		log.Error("load configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store, err := bank.Open(ctx, bank.Options{
		Driver: bank.Driver(cfg.BankDriver),
		Path:   cfg.BankPath,
		DSN:    cfg.BankDSN,
	})
	if err != nil {
		log.Error("open question bank", "driver", cfg.BankDriver, "error", err)
		os.Exit(1)
	}

	llm := generate.NewClient(generate.Options{
		APIKey:            cfg.OpenAIAPIKey,
		Model:             cfg.OpenAIModel,
		BaseURL:           cfg.OpenAIBaseURL,
		RequestsPerSecond: cfg.RequestsPerSecond,
		Burst:             cfg.RequestBurst,
		Stats:             generate.NewLLMStats(time.Hour),
		Logger:            log,
	})

	orch := pipeline.NewOrchestrator(llm, bank.NewAssembler(store, log), log, pipeline.Options{
		Workers:           cfg.WorkerCount,
		QueueSize:         cfg.MaxQueueSize,
		MaxConcurrent:     cfg.MaxConcurrentGenerate,
		MaxRetries:        cfg.MaxRetries,
		CallTimeout:       cfg.GenerateTimeout,
		MinExtractChars:   cfg.MinExtractChars,
		PdftotextFallback: cfg.PDFFallbackPdftotext,
		JobTTL:            cfg.JobTTL,
	})
	orch.Start(ctx)

	srv := api.NewServer(orch, llm, log, cfg)
	srv.Start(ctx)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 10 * time.Minute, // wait=true runs generation inline
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown. HTTP stops first so no request can reach a stopped
	// orchestrator; main waits on done so the closes always run.
	done := make(chan struct{})
	go func() {
		defer close(done)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Error("http shutdown", "error", err)
		}

		orch.Stop()
		cancel()

		llm.Close()
		if err := store.Close(); err != nil {
			log.Error("close question bank", "error", err)
		}
	}()

	log.Info("starting docquiz",
		"port", cfg.Port,
		"model", llm.Model(),
		"bank_driver", cfg.BankDriver,
	)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-done
	log.Info("shutdown complete")
}

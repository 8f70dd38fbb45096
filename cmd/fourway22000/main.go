package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"

	"github.com/rook-sec/fourway22000/internal/adapters/capture"
	"github.com/rook-sec/fourway22000/internal/adapters/storage"
	"github.com/rook-sec/fourway22000/internal/adapters/web"
	"github.com/rook-sec/fourway22000/internal/config"
	"github.com/rook-sec/fourway22000/internal/core/domain"
	"github.com/rook-sec/fourway22000/internal/core/export"
	"github.com/rook-sec/fourway22000/internal/telemetry"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("fourway22000 starting")

	cfg := config.Load()
	if cfg.Debug {
		logger = slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	telemetry.InitMetrics()
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		log.Fatalf("failed to init tracer: %v", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracer(shutdownCtx); err != nil {
			slog.Error("tracer shutdown", "error", err.Error())
		}
	}()

	store := domain.NewHandshakeStore()

	lines, err := storage.NewSQLiteStore(cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to open export database %q: %v", cfg.DBPath, err)
	}
	defer lines.Close()

	router := capture.NewFrameRouter(store)
	runID := uuid.New()
	slog.Info("capture run started", "run_id", runID.String())

	if cfg.PcapPath != "" {
		source := capture.NewPcapSource(router, logger)

		var count int
		var replayErr error
		if cfg.PcapNG {
			count, replayErr = source.ReplayNG(cfg.PcapPath)
		} else {
			count, replayErr = source.Replay(cfg.PcapPath)
		}
		if replayErr != nil {
			log.Fatalf("failed to replay %q: %v", cfg.PcapPath, replayErr)
		}
		slog.Info("replay complete", "path", cfg.PcapPath, "frames_routed", count)

		for _, rec := range store.Records() {
			if _, err := lines.SaveExport(ctx, runID, rec); err != nil {
				slog.Error("save export", "error", err.Error())
			}
		}
	}

	if cfg.NoServe {
		printExport(store)
		return
	}

	server := web.NewServer(cfg.Addr, store, lines, logger)

	errChan := make(chan error, 1)
	go func() {
		if err := server.Run(ctx); err != nil {
			errChan <- err
		}
	}()

	slog.Info("fourway22000 started, press Ctrl+C to exit", "addr", cfg.Addr)

	select {
	case <-ctx.Done():
		slog.Info("shutdown signal received")
	case err := <-errChan:
		slog.Error("fatal server error", "error", err)
		cancel()
	}

	time.Sleep(1 * time.Second)
	slog.Info("shutting down")
}

func printExport(store *domain.HandshakeStore) {
	for _, rec := range store.Records() {
		if line, ok := export.Export22000(rec); ok {
			fmt.Println(line)
		}
	}
}

package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/nats-io/nats.go/jetstream"
	ort "github.com/yalue/onnxruntime_go"

	"github.com/your-org/mpf/internal/api"
	"github.com/your-org/mpf/internal/api/ws"
	"github.com/your-org/mpf/internal/config"
	"github.com/your-org/mpf/internal/models"
	"github.com/your-org/mpf/internal/notify"
	"github.com/your-org/mpf/internal/observability"
	"github.com/your-org/mpf/internal/queue"
	"github.com/your-org/mpf/internal/scan"
	"github.com/your-org/mpf/internal/storage"
	"github.com/your-org/mpf/internal/vision"
)

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	observability.SetupLogger(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("starting MPF API service", "port", cfg.Server.Port)

	// Connect to Postgres
	db, err := storage.NewPostgresStore(cfg.Database)
	if err != nil {
		slog.Error("connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	// Connect to MinIO
	minioStore, err := storage.NewMinIOStore(cfg.MinIO)
	if err != nil {
		slog.Error("connect to minio", "error", err)
		os.Exit(1)
	}
	if err := minioStore.EnsureBucket(context.Background()); err != nil {
		slog.Warn("ensure minio bucket", "error", err)
	}

	// Connect to NATS
	producer, err := queue.NewProducer(cfg.NATS.URL)
	if err != nil {
		slog.Error("connect to nats", "error", err)
		os.Exit(1)
	}
	defer producer.Close()

	if err := producer.EnsureStreams(context.Background()); err != nil {
		slog.Warn("ensure nats streams", "error", err)
	}

	// SMS dispatcher
	dispatcher := notify.NewDispatcher(cfg.SMS)

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Start match event consumer to persist results and broadcast via WebSocket
	consumer, err := queue.NewConsumer(cfg.NATS.URL)
	if err != nil {
		slog.Error("create match consumer", "error", err)
		os.Exit(1)
	}
	defer consumer.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	err = consumer.ConsumeMatches(ctx, "api-matches", func(ctx context.Context, msg jetstream.Msg) error {
		var ev models.MatchEvent
		if err := json.Unmarshal(msg.Data(), &ev); err != nil {
			return err
		}

		if err := db.CreateScanEvent(ctx, &ev); err != nil {
			slog.Error("store scan event", "error", err)
		}

		hub.BroadcastRaw(msg.Data())
		return nil
	})
	if err != nil {
		slog.Warn("start match consumer", "error", err)
	}

	// Initialize ONNX Runtime for synchronous scans and photo registration
	var extractFn func([]byte) ([][]float32, error)
	var pipeline *scan.Pipeline

	ort.SetSharedLibraryPath(getONNXLibPath())
	if err := ort.InitializeEnvironment(); err != nil {
		slog.Warn("onnx runtime init failed, scan and photo upload unavailable", "error", err)
	} else {
		extractor, err := vision.NewExtractor(cfg.Vision)
		if err != nil {
			slog.Warn("vision init failed, scan and photo upload unavailable", "error", err)
		} else {
			extractFn = extractor.Extract
			pipeline = scan.NewPipeline(extractor.Extract, db, dispatcher, producer, cfg.Match)
			defer extractor.Close()
			defer ort.DestroyEnvironment()
			slog.Info("vision pipeline ready")
		}
	}

	// Setup router
	router := api.NewRouter(api.RouterConfig{
		APIKey:     cfg.Server.APIKey,
		DB:         db,
		MinIO:      minioStore,
		Producer:   producer,
		Dispatcher: dispatcher,
		Hub:        hub,
		Pipeline:   pipeline,
		ExtractFn:  extractFn,
	})

	// Start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		slog.Info("API server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down API server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server shutdown error", "error", err)
	}

	slog.Info("API server stopped")
}

// getONNXLibPath returns the ONNX Runtime shared library path.
func getONNXLibPath() string {
	switch runtime.GOOS {
	case "windows":
		return "onnxruntime.dll"
	case "linux":
		return "libonnxruntime.so"
	case "darwin":
		return "libonnxruntime.dylib"
	default:
		return "onnxruntime.dll"
	}
}

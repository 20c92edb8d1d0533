package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ashmont/kestrel/internal/capability"
	"github.com/ashmont/kestrel/internal/capability/embedding"
	"github.com/ashmont/kestrel/internal/config"
	"github.com/ashmont/kestrel/internal/engine"
	"github.com/ashmont/kestrel/internal/ingest"
	"github.com/ashmont/kestrel/internal/logging"
	"github.com/ashmont/kestrel/internal/notify"
	"github.com/ashmont/kestrel/internal/server"
	"github.com/ashmont/kestrel/internal/simulator"
	"github.com/ashmont/kestrel/internal/storage"
	"github.com/ashmont/kestrel/internal/storage/elastic"
	"github.com/ashmont/kestrel/internal/storage/file"
)

func main() {
	cfg := config.Load()

	logger, err := logging.New(cfg.Log.Format, logging.ParseLevel(cfg.Log.Level))
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer logger.Sync()

	// Set up graceful shutdown.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		fmt.Fprintf(os.Stderr, "\nreceived %v, shutting down...\n", sig)
		cancel()
	}()

	// Initialize the secondary classifier, falling back to keyword
	// matching when no model files are present.
	classifier := newClassifier(cfg, logger)
	defer classifier.Close()

	// Initialize alert routing.
	var notifier engine.Notifier
	if cfg.SMTP.Server != "" {
		notifier = notify.NewRouter(cfg.Admins, cfg.SMTP.FromEmail, notify.NewSMTPTransport(cfg.SMTP), logger)
	} else {
		logger.Info("SMTP not configured, alerts disabled")
	}

	// Initialize the anomaly engine.
	eng := engine.New(
		capability.NewLexiconScorer(),
		classifier,
		notifier,
		engine.WithWorkers(cfg.Engine.Workers),
		engine.WithTimeout(cfg.Engine.CapabilityTimeout),
		engine.WithLogger(logger),
	)

	// Initialize storage: flat files always, Elasticsearch when reachable.
	store, historian := newStore(ctx, cfg, logger)
	defer store.Close()

	// Initialize the HTTP/WebSocket surface.
	opts := []server.Option{server.WithLogger(logger)}
	if historian != nil {
		opts = append(opts, server.WithHistorian(historian))
	}
	srv := server.New(eng, store, simulator.New(), opts...)

	// Initialize Kafka ingestion.
	consumer := ingest.New(ingest.NewReader(cfg.Kafka), eng, store,
		ingest.WithBroadcaster(srv.Hub()),
		ingest.WithLogger(logger))

	logger.Info("kestrel starting",
		zap.String("addr", cfg.HTTP.Addr),
		zap.Strings("kafka_brokers", cfg.Kafka.Brokers),
		zap.String("kafka_topic", cfg.Kafka.Topic))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return srv.ListenAndServe(gctx, cfg.HTTP.Addr) })
	g.Go(func() error { return consumer.Run(gctx) })

	if err := g.Wait(); err != nil && err != context.Canceled {
		logger.Fatal("kestrel exited", zap.Error(err))
	}
}

// newClassifier loads the ONNX classifier when model files exist.
func newClassifier(cfg config.Config, logger *zap.Logger) capability.CategoryClassifier {
	if _, err := os.Stat(cfg.Engine.ModelPath); err != nil {
		logger.Info("model files not found, using keyword classifier",
			zap.String("model_path", cfg.Engine.ModelPath))
		return capability.NewKeywordClassifier()
	}
	classifier, err := embedding.NewClassifier(cfg.Engine.ModelPath, cfg.Engine.VocabPath)
	if err != nil {
		logger.Warn("loading model failed, using keyword classifier", zap.Error(err))
		return capability.NewKeywordClassifier()
	}
	logger.Info("embedding classifier loaded", zap.String("model_path", cfg.Engine.ModelPath))
	return classifier
}

// newStore builds the storage stack. Elasticsearch joins the fan-out when
// it can be reached; flat-file storage is always present.
func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (storage.Store, server.Historian) {
	fileStore, err := file.New(cfg.Storage.BaseDir)
	if err != nil {
		logger.Fatal("file storage init failed", zap.Error(err))
	}

	esStore, err := elastic.New(ctx, cfg.Elastic.Addresses)
	if err != nil {
		logger.Warn("elasticsearch unavailable, using file storage only", zap.Error(err))
		return fileStore, nil
	}
	logger.Info("elasticsearch storage initialized", zap.Strings("addresses", cfg.Elastic.Addresses))
	return storage.NewMulti(esStore, fileStore), esStore
}

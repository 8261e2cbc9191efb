package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/logscout-dev/logscout/internal/config"
	"github.com/logscout-dev/logscout/internal/reasoner"
	"github.com/logscout-dev/logscout/internal/retriever"
	"github.com/logscout-dev/logscout/internal/server"
	"github.com/logscout-dev/logscout/internal/session"
	"github.com/logscout-dev/logscout/internal/translator"
	"github.com/logscout-dev/logscout/pkg/logstore"
	"github.com/logscout-dev/logscout/pkg/observability"
)

var (
	// Version information (set via ldflags)
	Version = "dev"

	configFile  = flag.String("config", getEnv("CONFIG_FILE", "config/logscout.yaml"), "Configuration file")
	httpPort    = flag.Int("port", getEnvInt("PORT", 0), "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", getEnvInt("METRICS_PORT", 0), "Observability server port (overrides config)")
	logCSV      = flag.String("log-csv", getEnv("LOG_CSV", ""), "Log dataset CSV path (overrides config)")
)

func main() {
	flag.Parse()

	log.Printf("Starting logscout v%s", Version)

	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Config error: %v", err)
	}
	if *httpPort > 0 {
		cfg.Port = *httpPort
	}
	if *metricsPort > 0 {
		cfg.MetricsPort = *metricsPort
	}
	if *logCSV != "" {
		cfg.LogCSV = *logCSV
	}
	// Validate after flag overrides so a bad key or port clash fails here
	// instead of on the first OpenAI call.
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Config error: %v", err)
	}
	log.Printf("Config: %s, API port: %d, metrics port: %d", *configFile, cfg.Port, cfg.MetricsPort)

	// Observability
	observability.InitMetrics()
	healthChecker := observability.NewChecker()
	healthChecker.Register(observability.PingCheck())

	if err := observability.InitTracing(observability.TracingConfig{
		Enabled:      cfg.Tracing.Enabled,
		ExporterType: cfg.Tracing.Exporter,
		OTLPEndpoint: cfg.Tracing.Endpoint,
	}); err != nil {
		log.Printf("Tracing init error: %v", err)
	}

	// Log dataset
	store, err := logstore.LoadCSV(cfg.LogCSV)
	if err != nil {
		log.Fatalf("Load log dataset: %v", err)
	}
	log.Printf("Loaded %d log records from %s", store.Len(), cfg.LogCSV)
	healthChecker.Register(observability.LogStoreCheck(store.Len))

	// OpenAI plumbing shared by the translator, embedder and agent.
	client := openai.NewClient(cfg.OpenAIKey)
	limiter := rate.NewLimiter(rate.Limit(cfg.RateLimit.RequestsPerSecond), cfg.RateLimit.Burst)

	tr := translator.New(client, cfg.Model, limiter)

	// Semantic search is optional: when the index cannot be built the agent
	// still runs with the structured query tool only.
	var searcher reasoner.Searcher
	indexCtx, cancelIndex := context.WithTimeout(context.Background(), 5*time.Minute)
	embedder := retriever.NewOpenAIEmbedder(client, cfg.EmbeddingModel, limiter)
	index, err := retriever.BuildIndex(indexCtx, store, embedder, cfg.TopK)
	cancelIndex()
	if err != nil {
		log.Printf("Semantic search disabled, index build failed: %v", err)
	} else {
		searcher = index
		log.Printf("Semantic index ready (%d records, top_k=%d)", store.Len(), cfg.TopK)
	}

	tools := reasoner.NewToolset(store, tr, searcher)
	sessions := session.NewManager(func() (reasoner.Agent, error) {
		return reasoner.NewOpenAIAgent(client, cfg.Model, reasoner.ModelParams{
			MaxTokens:   cfg.MaxTokens,
			Temperature: float32(cfg.Temperature),
		}, tools), nil
	}, nil)
	healthChecker.Register(observability.AgentCheck(sessions.Ping))

	apiServer, err := server.New(server.Options{
		Sessions:       sessions,
		AllowedOrigins: cfg.CORSOrigins,
		Port:           cfg.Port,
	})
	if err != nil {
		log.Fatalf("Server setup: %v", err)
	}
	obsServer := observability.NewServer(cfg.MetricsPort, healthChecker)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("API server listening on :%d", cfg.Port)
		return apiServer.Run(ctx)
	})
	g.Go(func() error {
		log.Printf("Observability server listening on :%d", cfg.MetricsPort)
		if err := obsServer.Start(); err != nil {
			return fmt.Errorf("observability server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return obsServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		log.Printf("Error: %v", err)
	}

	if err := sessions.Close(); err != nil {
		log.Printf("Session shutdown error: %v", err)
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := observability.ShutdownTracing(shutdownCtx); err != nil {
		log.Printf("Tracing shutdown error: %v", err)
	}

	log.Println("logscout stopped")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

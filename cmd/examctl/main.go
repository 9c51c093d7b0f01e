package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"examgen/internal/bootstrap"
	"examgen/internal/config"
	"examgen/internal/transport/cli"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}
	logger := bootstrap.NewLogger(os.Stderr, cfg.App)

	open := func(ctx context.Context) (*cli.Runtime, func() error, error) {
		core, err := bootstrap.NewCore(ctx, cfg, logger)
		if err != nil {
			return nil, nil, err
		}
		return &cli.Runtime{
			Documents:   core.Documents,
			Artifacts:   core.Artifacts,
			Ingester:    core.Ingest,
			Retriever:   core.Retriever,
			Synthesizer: core.Synthesizer,
			Evaluator:   core.Evaluator,
			TopK:        cfg.Retrieval.TopK,
		}, core.Close, nil
	}
	migrate := func(ctx context.Context) (int, error) {
		return bootstrap.Migrate(ctx, cfg, logger)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := cli.NewRootCommand(open, migrate)
	root.SetOut(os.Stdout)
	if err := root.ExecuteContext(ctx); err != nil {
		stop()
		log.Fatalf("examctl: %v", err)
	}
}

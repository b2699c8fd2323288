package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"

	"github.com/redis/go-redis/v9"

	"numq/internal/config"
	server "numq/internal/http"
	"numq/internal/store"
	"numq/internal/worker"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	role := flag.String("role", "all", "process role: api|worker|all")
	flag.Parse()

	cfg := config.Load(*configPath)

	// Create one shared redis client; it is safe for concurrent use
	// across request handlers and worker loops.
	opt, err := redis.ParseURL(cfg.Redis.URL)
	if err != nil {
		log.Fatalf("invalid redis url: %v", err)
	}
	rdb := redis.NewClient(opt)

	st := store.New(rdb)

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	rootCtx := context.Background()

	switch *role {
	case "api":
		// API-only: serve submissions and status queries.
		s := server.NewServer(cfg, st, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	case "worker":
		// Worker-only: consume the pending queue and block.
		w := worker.New(cfg, st, logger, nil)
		w.Start(rootCtx)
	case "all":
		// Default: run both API and worker in one process.
		w := worker.New(cfg, st, logger, nil)
		go w.Start(rootCtx)
		s := server.NewServer(cfg, st, logger)
		if err := s.Listen(); err != nil {
			log.Fatalf("server failed: %v", err)
		}
	default:
		log.Fatalf("invalid role: %s (expected api|worker|all)", *role)
	}
}

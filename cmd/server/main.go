package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/himanishpuri/audioprints/internal/config"
	"github.com/himanishpuri/audioprints/pkg/audioprints"
	"github.com/himanishpuri/audioprints/pkg/logger"
)

var (
	configPath     string
	envFile        string
	listen         string
	dbPath         string
	backend        string
	allowedOrigins string
)

func init() {
	flag.StringVar(&configPath, "config", config.DefaultConfigFile, "INI configuration file (skipped if missing)")
	flag.StringVar(&envFile, "env", ".env", "dotenv file (skipped if missing)")
	flag.StringVar(&listen, "listen", "", "HTTP listen address (env: "+config.EnvListen+", default "+config.DefaultListen+")")
	flag.StringVar(&dbPath, "db", "", "Database path (env: "+config.EnvDBPath+")")
	flag.StringVar(&backend, "backend", "", "Storage backend: sqlite, badger or memory (env: "+config.EnvBackend+")")
	flag.StringVar(&allowedOrigins, "origins", "*", "Comma-separated list of allowed CORS origins (use * for all)")
}

func main() {
	flag.Parse()
	log := logger.GetLogger()

	cfg, err := config.Load(configPath, envFile)
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	if listen != "" {
		cfg.Listen = listen
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}
	if backend != "" {
		if cfg.Backend, err = audioprints.ParseBackend(backend); err != nil {
			log.Fatalf("Invalid backend: %v", err)
		}
	}

	// Parse allowed origins
	origins := strings.Split(allowedOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}

	service, err := audioprints.NewService(append(cfg.ServiceOptions(), audioprints.WithLogger(log))...)
	if err != nil {
		log.Fatalf("Failed to create service: %v", err)
	}
	defer service.Close()

	server := NewServer(service, &ServerConfig{
		Addr:           cfg.Listen,
		DBPath:         cfg.DBPath,
		Backend:        cfg.Backend,
		Extraction:     cfg.Extraction,
		AllowedOrigins: origins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		log.Errorf("Server failed: %v", err)
		os.Exit(1)
	}
}

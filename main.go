package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/crewhub/workspace/internal/api"
	"github.com/crewhub/workspace/internal/inference"
	"github.com/crewhub/workspace/internal/log"
	"github.com/crewhub/workspace/internal/memory"
	"github.com/crewhub/workspace/internal/ports"
	"github.com/crewhub/workspace/version"
)

func main() {
	App()
}

type serveOptions struct {
	logLevel       int
	port           int
	address        string
	headless       bool
	enableCORS     bool
	enableXsrf     bool
	allowedOrigins []string
	stateDir       string
	hfToken        string
}

func serve(opts serveOptions) {
	log.DefaultEntry.Logger.SetOutput(os.Stderr)
	log.DefaultEntry.Logger.SetLevel(logrus.Level(opts.logLevel))
	ctx := log.WithLogger(context.Background(), log.DefaultEntry)

	if vacant, _ := ports.CheckPort(opts.port); !vacant {
		log.Error(ctx, "Port is already in use", "port", opts.port)
		os.Exit(1)
	}

	store := memory.NewInMemory()
	if opts.stateDir != "" {
		if err := os.MkdirAll(opts.stateDir, 0o755); err != nil {
			log.Error(ctx, "Failed to create state directory", "dir", opts.stateDir, "err", err)
			os.Exit(1)
		}
		var err error
		store, err = memory.NewSQLite(ctx, filepath.Join(opts.stateDir, "session.db"))
		if err != nil {
			log.Error(ctx, "Failed to open session database", "dir", opts.stateDir, "err", err)
			os.Exit(1)
		}
	}
	defer func() { _ = store.Close() }()

	client := inference.NewClient(opts.hfToken)
	if !client.HasToken() {
		log.Warning(ctx, "No inference API token configured, chat requests will fail until one is provided")
	}

	server := api.NewServer(api.Config{
		Address:              opts.address,
		Port:                 opts.port,
		Headless:             opts.headless,
		EnableCORS:           opts.enableCORS,
		AllowedOrigins:       opts.allowedOrigins,
		EnableXsrfProtection: opts.enableXsrf,
	}, store, client, version.Version)

	ctxSig, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := server.Run(ctxSig); err != nil {
		log.Error(ctx, "Server exited with error", "err", err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	designaudit "github.com/hellenic-development/design-audit"
	"github.com/hellenic-development/design-audit/internal/server"

	"github.com/spf13/cobra"
)

var servePort string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the design audit HTTP API.

Endpoints:
  GET  /health, /healthz
  GET  /api/v1/personas
  POST /api/v1/figma/frames   {"url": "..."}
  POST /api/v1/audits         JSON {"image": "..."} or multipart "image" file
  POST /api/v1/audits/multi   {"frames": [...]}, streamed as Server-Sent Events`,
		RunE: runServe,
	}

	cmd.Flags().StringVarP(&servePort, "port", "p", "", "Port to listen on (default $PORT or 8080)")
	return cmd
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc, cfg, exportCache, err := newService(ctx, serverLogger{})
	if err != nil {
		return err
	}
	defer closeCache(exportCache)

	server.SetGinMode(cfg.App.Environment)

	version := cfg.App.Version
	if version == "dev" {
		version = designaudit.Version
	}

	deps := server.RouterDeps{
		ServiceName:    "design-audit",
		Version:        version,
		Service:        svc,
		AllowedOrigins: cfg.Server.CORSAllowedOrigins,
	}
	if exportCache != nil {
		deps.Cache = exportCache
	}

	port := cfg.Server.Port
	if servePort != "" {
		port = servePort
	}

	return server.Serve(ctx, ":"+port, server.BuildRouter(deps), 30*time.Second)
}

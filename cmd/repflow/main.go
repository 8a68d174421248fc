package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tailscale.com/tsnet"

	"github.com/meltforce/repflow/internal/backend"
	"github.com/meltforce/repflow/internal/cache"
	"github.com/meltforce/repflow/internal/config"
	"github.com/meltforce/repflow/internal/enrich"
	"github.com/meltforce/repflow/internal/server"
)

// Version is set at build time via -ldflags.
var Version = "dev"

func main() {
	configPath := flag.String("config", "config.yaml", "path to config file")
	flag.Parse()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	log.Info("RepFlow starting", "version", Version)

	// Load config
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Coaching backend client
	client := backend.New(cfg.Backend.BaseURL, cfg.Backend.APIKey)

	// Optional local details cache
	var store enrich.Store
	if cfg.Cache.Enabled {
		dc, err := cache.Open(cfg.Cache.Dir)
		if err != nil {
			log.Error("failed to open details cache", "dir", cfg.Cache.Dir, "error", err)
			os.Exit(1)
		}
		defer dc.Close()

		if n, err := dc.Purge(context.Background()); err != nil {
			log.Warn("details cache purge failed", "error", err)
		} else if n > 0 {
			log.Info("purged expired details", "count", n)
		}
		store = dc
		log.Info("details cache enabled", "dir", cfg.Cache.Dir)
	}

	enricher := enrich.New(client, store, log)

	// Session runner
	srv := server.New(client, enricher, cfg.Server.APIKey, log)
	defer srv.Shutdown()

	// Start server — tsnet or plain HTTP
	var listener net.Listener
	var tsServer *tsnet.Server

	if cfg.Tailscale.Enabled {
		tsServer = &tsnet.Server{
			Hostname: cfg.Tailscale.Hostname,
			Dir:      cfg.Tailscale.StateDir,
		}
		if err := tsServer.Start(); err != nil {
			log.Error("tsnet start failed", "error", err)
			os.Exit(1)
		}
		defer tsServer.Close()

		listener, err = tsServer.Listen("tcp", ":80")
		if err != nil {
			log.Error("tsnet listen failed", "error", err)
			os.Exit(1)
		}
		log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	} else {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		listener, err = net.Listen("tcp", addr)
		if err != nil {
			log.Error("listen failed", "addr", addr, "error", err)
			os.Exit(1)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
	}

	httpSrv := &http.Server{Handler: srv}

	go func() {
		if err := httpSrv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Info("shutting down", "signal", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	log.Info("server stopped")
}

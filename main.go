package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

func main() {
	testMode := flag.Bool("t", false, "Run in interactive CLI test mode")
	mcpMode := flag.Bool("mcp", false, "Serve the admin tools over MCP stdio instead of the web page")
	danger := flag.Bool("danger", false, "Start CLI/MCP sessions with delete operations enabled")
	remote := flag.Bool("remote", false, "Start CLI/MCP sessions on the configured remote store")
	addr := flag.String("addr", "", "Listen address for the web page (overrides config)")
	configPath := flag.String("config", "", "Path to config.json (default ~/.chromadmin/config.json)")
	flag.Parse()

	if err := run(*configPath, *addr, *testMode, *mcpMode, *danger, *remote); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath, addr string, testMode, mcpMode, danger, remote bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if configPath == "" {
		p, err := DefaultConfigPath()
		if err != nil {
			return err
		}
		configPath = p
	}
	cfg, err := LoadConfig(configPath, nil)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if addr != "" {
		cfg.ListenAddr = addr
	}

	logger := NewLogger(cfg.LogFile, cfg.Production)
	defer func() { _ = logger.Sync() }()

	embFunc, err := NewEmbedder(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to create embedder: %w", err)
	}

	local, err := NewLocalStore(cfg.DataDir, embFunc, logger)
	if err != nil {
		return fmt.Errorf("failed to open local store: %w", err)
	}
	defer func() {
		if err := local.Close(); err != nil {
			logger.Error("failed to close local store", zap.Error(err))
		}
	}()

	resolver := NewStoreResolver(local, RemoteOptions{
		Tenant:   cfg.Remote.Tenant,
		Database: cfg.Remote.Database,
		UseTLS:   cfg.Remote.UseTLS,
		Timeout:  cfg.RemoteTimeout(),
	}, embFunc, logger)
	remoteDefault := ConnectionConfig{Mode: HostRemote, Host: cfg.Remote.Host, Port: cfg.Remote.Port}
	app := NewApp(resolver, remoteDefault, logger)

	startConn := LocalConnection()
	if remote {
		startConn = remoteDefault
	}

	switch {
	case testMode:
		state := NewSessionState().WithConnection(startConn).WithDangerMode(danger)
		app.runInteractiveCLI(ctx, os.Stdin, os.Stdout, state)
		return nil

	case mcpMode:
		return NewMCPTools(app, startConn, danger, logger).Serve()
	}

	web, err := NewWebServer(app, NewSessionStore(cfg.SessionTTL()), logger)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() { errCh <- web.Run(cfg.ListenAddr) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return web.Shutdown(shutdownCtx)
	}
}

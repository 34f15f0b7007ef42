package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/frudas24/roomwire/internal/app"
	"github.com/frudas24/roomwire/internal/config"
	"github.com/frudas24/roomwire/internal/logging"
	"github.com/frudas24/roomwire/internal/webrtc"
	"go.uber.org/zap"
)

// run wires the application and blocks until shutdown.
func run(ctx context.Context, opts serveOptions) error {
	if opts.configPath != "" {
		if err := os.Setenv("CONFIG_PATH", opts.configPath); err != nil {
			return err
		}
	}
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if opts.listen != "" {
		cfg.ListenAddr = opts.listen
	}
	if opts.debug {
		cfg.LogLevel = "debug"
	}

	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	logStartup(log, cfg)

	var negotiator *webrtc.Negotiator
	if cfg.Negotiate {
		negotiator, err = webrtc.NewNegotiator(cfg.ICEServers, log.Named("webrtc"))
		if err != nil {
			return err
		}
	}

	appInstance := app.New(cfg, negotiator, log)
	defer func() {
		if err := appInstance.Stop(); err != nil {
			log.Warn("shutdown", zap.Error(err))
		}
	}()

	mux := http.NewServeMux()
	appInstance.RegisterRoutes(mux)
	server := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil {
			errCh <- err
		}
	}()

	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	appInstance.Signaling().CloseAll()
	return server.Shutdown(shutdownCtx)
}

// logStartup reports the effective configuration.
func logStartup(log *zap.Logger, cfg config.Config) {
	log.Info("roomwire starting",
		zap.String("ws_path", cfg.WSPath),
		zap.Int64("read_limit_bytes", cfg.ReadLimitBytes),
		zap.Int64("max_peers", cfg.MaxPeers),
		zap.Bool("negotiate", cfg.Negotiate),
		zap.Strings("ice_servers", cfg.ICEServers),
		zap.Bool("legacy_candidate_type", cfg.LegacyCandidateType))
	logFileStatus(log, "env file", filepath.Join(cfg.DataDir, ".env"))
	logFileStatus(log, "config file", cfg.ConfigPath)
	logListenStatus(log, cfg.ListenAddr, cfg.WSPath)
}

// logFileStatus reports whether an optional file was found.
func logFileStatus(log *zap.Logger, what, path string) {
	log.Info(what, zap.String("path", path), zap.Bool("found", fileExists(path)))
}

// logListenStatus reports the listen address and a local URL helper.
func logListenStatus(log *zap.Logger, addr, wsPath string) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		log.Info("listening", zap.String("addr", addr))
		return
	}
	if host == "" || host == "0.0.0.0" || host == "::" {
		host = "localhost"
	}
	log.Info("listening",
		zap.String("addr", addr),
		zap.String("url", "ws://"+net.JoinHostPort(host, port)+wsPath))
}

// fileExists reports whether a path exists and is a file.
func fileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

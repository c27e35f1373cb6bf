package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/freekieb7/poolhttp/config"
	"github.com/freekieb7/poolhttp/http"
	"github.com/freekieb7/poolhttp/routes"
	"github.com/freekieb7/poolhttp/telemetry"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $HTTPD_CONFIG)")
	flag.Parse()

	if err := run(context.Background(), *configPath); err != nil {
		log.Fatalln(err)
	}
}

func run(ctx context.Context, configPath string) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	tel, err := telemetry.Setup(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := tel.Shutdown(context.Background()); err != nil {
			log.Println("telemetry shutdown:", err)
		}
	}()
	logger := tel.Logger
	slog.SetDefault(logger)

	server := http.NewServer("poolhttp", routes.NewHandler(logger))
	server.Workers = cfg.Server.Workers
	server.ReadTimeout = cfg.Server.ReadTimeout
	server.WriteTimeout = cfg.Server.WriteTimeout
	server.DeferAccept = cfg.Server.DeferAccept
	server.Limits = http.ReadLimits{
		BufferSize:  cfg.Server.ReadBufferSize,
		MaxBodySize: cfg.Server.MaxBodySize,
	}
	server.Logger = logger

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("server running", "addr", config.Addr, "workers", cfg.Server.Workers)
		serverErrCh <- server.ListenAndServe(ctx, config.Addr)
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-ctx.Done():
		stop()
	}

	logger.Info("shutting down", "timeout", cfg.Server.ShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-serverErrCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

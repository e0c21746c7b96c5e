package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/meetz/fansession/internal/config"
	pkglog "github.com/meetz/fansession/internal/log"
	"github.com/meetz/fansession/internal/mock"
	"github.com/meetz/fansession/internal/storage"
)

func main() {
	configPath := flag.String("config", "meetz.yaml", "Path to the YAML config file")
	port := flag.Int("port", 0, "Override the listen port")
	token := flag.String("token", "", "Require this bearer token")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Mock.Port = *port
	}
	if *token != "" {
		cfg.Mock.Token = *token
	}

	cfg.Log.ServiceName = "meetz-mock"
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	photos, err := storage.NewLocalStorage(cfg.Mock.PhotoDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open photo directory")
	}

	broadcaster := mock.NewBroadcaster()
	generator := mock.NewGenerator(broadcaster, mock.Options{
		Stars:       cfg.Mock.Stars,
		QueueLength: cfg.Mock.QueueLength,
		LiveSeconds: cfg.Mock.LiveSeconds,
		Tick:        cfg.Mock.Tick,
	})
	srv := mock.NewServer(broadcaster, photos, cfg.Mock.Token)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	g, gCtx := errgroup.WithContext(ctx)

	addr := fmt.Sprintf("%s:%d", cfg.Mock.Host, cfg.Mock.Port)
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// Streams end with the process instead of holding up Shutdown.
		BaseContext: func(net.Listener) context.Context { return gCtx },
	}

	g.Go(func() error {
		return generator.Run(gCtx)
	})
	g.Go(func() error {
		logger.Info().Str("addr", addr).Bool("auth", cfg.Mock.Token != "").Msg("mock meeting server listening")
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("mock server stopped")
		os.Exit(1)
	}
	logger.Info().Msg("mock server stopped")
}

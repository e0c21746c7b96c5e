package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"github.com/meetz/fansession/internal/app"
	"github.com/meetz/fansession/internal/client"
	"github.com/meetz/fansession/internal/config"
	pkglog "github.com/meetz/fansession/internal/log"
	"github.com/meetz/fansession/internal/photo"
	"github.com/meetz/fansession/internal/session"
	"github.com/meetz/fansession/internal/storage"
)

func main() {
	configPath := flag.String("config", "meetz.yaml", "Path to the YAML config file")
	baseURL := flag.String("url", "", "Base URL of the meetz server (http(s) for SSE, ws(s) for WebSocket)")
	token := flag.String("token", "", "Access token")
	tokenFile := flag.String("token-file", "", "File holding the access token, re-read on every reconnect")
	setupDone := flag.Bool("setup-done", false, "Skip the camera and microphone checklist")
	logFile := flag.String("log-file", "meetz-fan.log", "Log file (the terminal belongs to the UI)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		os.Exit(1)
	}
	if *baseURL != "" {
		cfg.Server.BaseURL = *baseURL
	}
	if *token != "" {
		cfg.Auth.Token = *token
	}
	if *tokenFile != "" {
		cfg.Auth.TokenFile = *tokenFile
	}
	if cfg.Log.File == "" {
		cfg.Log.File = *logFile
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid config: %v\n", err)
		os.Exit(1)
	}

	f, err := pkglog.OpenFile(cfg.Log.File)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening log file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()
	cfg.Log.Output = f
	cfg.Log.ServiceName = "meetz-fan"
	pkglog.Init(cfg.Log)
	logger := pkglog.L()

	creds := credentials(cfg)
	warnIfExpired(logger, creds)

	sink, err := photoSink(cfg, creds)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error setting up photo sink: %v\n", err)
		os.Exit(1)
	}
	photographer := photo.New(photoSource(cfg), sink, photo.Options{
		Width:       cfg.Photo.Width,
		Height:      cfg.Photo.Height,
		JPEGQuality: cfg.Photo.JPEGQuality,
	})

	listener := client.NewListener(cfg.StreamURL(), creds, client.WithPolicy(client.Policy{
		BaseDelay:        cfg.Stream.ReconnectBaseDelay,
		MaxDelay:         cfg.Stream.ReconnectMaxDelay,
		MaxFailures:      cfg.Stream.MaxFailures,
		HeartbeatTimeout: cfg.Stream.HeartbeatTimeout,
		Buffer:           cfg.Stream.Buffer,
	}))

	logger.Info().
		Str(pkglog.FieldURL, cfg.StreamURL()).
		Str(pkglog.FieldTransport, cfg.Transport()).
		Str(pkglog.FieldSink, sink.Name()).
		Msg("starting fan session")

	err = app.Run(app.Options{
		Stream:       listener,
		Setup:        session.NewSetup(*setupDone),
		Photographer: photographer,
		Logger:       logger,
	}, tea.WithAltScreen())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func credentials(cfg *config.Config) client.CredentialProvider {
	if cfg.Auth.TokenFile != "" {
		return client.FileToken{Path: cfg.Auth.TokenFile}
	}
	return client.StaticToken(cfg.Auth.Token)
}

// warnIfExpired logs when the configured JWT is already past its exp claim.
// The server decides; this only explains the 401s that will follow.
func warnIfExpired(logger zerolog.Logger, creds client.CredentialProvider) {
	tok, err := creds.Token(context.Background())
	if err != nil {
		logger.Warn().Err(err).Msg("no access token available yet")
		return
	}
	if exp, ok := client.TokenExpiry(tok); ok && time.Now().After(exp) {
		logger.Warn().Time("exp", exp).Msg("access token has expired")
	}
}

func photoSource(cfg *config.Config) photo.Source {
	if cfg.Photo.Source != "" {
		return photo.FileSource{Path: cfg.Photo.Source}
	}
	return &photo.PatternSource{}
}

func photoSink(cfg *config.Config, creds client.CredentialProvider) (photo.Sink, error) {
	switch cfg.Photo.Sink {
	case config.SinkLocal:
		store, err := storage.NewLocalStorage(cfg.Photo.LocalDir)
		if err != nil {
			return nil, err
		}
		return photo.StorageSink{Storage: store, Label: "local"}, nil
	case config.SinkS3:
		s3cfg := cfg.Photo.S3
		store, err := storage.NewS3Storage(context.Background(), storage.S3Config{
			Endpoint:        s3cfg.Endpoint,
			Region:          s3cfg.Region,
			Bucket:          s3cfg.Bucket,
			AccessKeyID:     s3cfg.AccessKeyID,
			SecretAccessKey: s3cfg.SecretAccessKey,
			UsePathStyle:    s3cfg.UsePathStyle,
		})
		if err != nil {
			return nil, err
		}
		return photo.StorageSink{Storage: store, Prefix: s3cfg.Prefix, Label: "s3"}, nil
	default:
		return photo.HTTPSink{
			Client: client.NewHTTPClient(cfg.HTTPBaseURL(), creds),
			Path:   cfg.Server.PhotoPath,
		}, nil
	}
}

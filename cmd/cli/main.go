package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/dmitrijs2005/gophprofile/internal/buildinfo"
	"github.com/dmitrijs2005/gophprofile/internal/client/assets"
	"github.com/dmitrijs2005/gophprofile/internal/client/auth"
	"github.com/dmitrijs2005/gophprofile/internal/client/cli"
	"github.com/dmitrijs2005/gophprofile/internal/client/config"
	"github.com/dmitrijs2005/gophprofile/internal/client/localdb"
	"github.com/dmitrijs2005/gophprofile/internal/client/profiles"
	"github.com/dmitrijs2005/gophprofile/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophprofile/internal/logging"
)

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		log.Fatalf("%v", err)
	}

	logger, err := logging.New(cfg.LogFormat, cfg.LogLevel, os.Stderr)
	if err != nil {
		log.Fatalf("%v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error(ctx, "client stopped", "err", err)
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config, logger logging.Logger) error {
	stateDB, err := localdb.Open(ctx, cfg.DataDir)
	if err != nil {
		return fmt.Errorf("error initializing database: %w", err)
	}
	defer stateDB.Close()

	gateway, err := auth.NewHTTPGateway(auth.Config{
		BaseURL:     cfg.AuthURL,
		APIKey:      cfg.APIKey,
		CallbackURL: cfg.CallbackURL,
		Client:      &http.Client{Timeout: cfg.HTTPTimeout},
		Pending:     metadata.NewPendingStore(stateDB),
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	profileDB, store, err := profiles.Open(ctx, cfg.ProfileDriver, cfg.ProfileDSN, cfg.ProfileMigrate)
	if err != nil {
		return err
	}
	defer profileDB.Close()

	transfer, err := assets.NewS3Transfer(ctx, assets.S3Config{
		Bucket:    cfg.S3Bucket,
		Region:    cfg.S3Region,
		Endpoint:  cfg.S3Endpoint,
		AccessKey: cfg.S3AccessKey,
		SecretKey: cfg.S3SecretKey,
	}, logger)
	if err != nil {
		return err
	}

	app := cli.NewApp(cli.Deps{
		Config:  cfg,
		Logger:  logger,
		Gateway: gateway,
		Store:   store,
		Assets:  transfer,
	})
	return app.Run(ctx)
}

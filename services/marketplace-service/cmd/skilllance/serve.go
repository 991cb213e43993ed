package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/college"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/config"
	"github.com/skilllance/skilllance-api/services/marketplace-service/internal/server"
	"github.com/skilllance/skilllance-api/shared/logger"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			log := logger.New(cfg.Env, cfg.LogLevel)

			directory, err := college.Load(cfg.CollegeDomainsFile)
			if err != nil {
				return fmt.Errorf("failed to load college domains: %w", err)
			}
			log.Info().Int("domains", directory.Len()).Str("env", cfg.Env).Str("version", version).Msg("starting")

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv, err := server.New(ctx, cfg, log, directory)
			if err != nil {
				return err
			}

			if err := srv.Run(ctx); err != nil {
				log.Error().Err(err).Msg("server stopped with error")
				return err
			}

			log.Info().Msg("server exited")
			return nil
		},
	}
}

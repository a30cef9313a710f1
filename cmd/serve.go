package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rvi-ar/casos-api/api/handlers"
	"github.com/rvi-ar/casos-api/api/scheduler"
	"github.com/rvi-ar/casos-api/config"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd(flags *rootFlags) *cobra.Command {
	var withoutScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			conf, err := config.Load(flags.configPath)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return serve(cmd.Context(), conf, !withoutScheduler)
		},
	}
	cmd.Flags().BoolVar(&withoutScheduler, "no-scheduler", false, "Do not run the daily anniversary job in this process")
	return cmd
}

func serve(ctx context.Context, conf *config.Config, runScheduler bool) error {
	a := handlers.App{Config: *conf}
	if err := a.Initialize(ctx); err != nil {
		return err
	}
	defer a.Close(context.Background())

	if conf.Auth.DevBypass {
		zap.S().Warn("authentication bypass is enabled, every request is trusted")
	}

	if runScheduler {
		s := scheduler.NewScheduler(conf, scheduler.NewStore(a.DB), a.Mailer)
		if err := s.Start(); err != nil {
			return err
		}
		defer s.Stop()
	}

	srv := &http.Server{
		Addr:              ":" + conf.Port,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		zap.S().Infow("casos-api is up and running",
			"port", conf.Port,
			"url", conf.BaseURL,
		)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	zap.S().Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

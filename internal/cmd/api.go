package cmd

import (
	"context"
	"os"
	"strconv"

	"github.com/honeycombio/honeycomb-opentelemetry-go"
	"github.com/honeycombio/opentelemetry-go-contrib/launcher"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/api"
	"github.com/hermodapp/hermod-backend/internal/cmdutil"
)

func APICmd(ctx context.Context) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "api",
		Args:  cobra.ExactArgs(0),
		Short: "Runs the gateway API.",
		RunE: func(cmd *cobra.Command, args []string) error {
			port = 4000
			if os.Getenv("PORT") != "" {
				port, _ = strconv.Atoi(os.Getenv("PORT"))
			}

			logger := cmdutil.NewLogger(false)
			defer func() { _ = logger.Sync() }()

			if os.Getenv("HONEYCOMB_API_KEY") != "" {
				otelShutdown, err := launcher.ConfigureOpenTelemetry(
					launcher.WithSpanProcessor(honeycomb.NewBaggageSpanProcessor()),
				)
				if err != nil {
					return err
				}
				defer otelShutdown()
			}

			statsd, err := cmdutil.NewStatsdClient()
			if err != nil {
				return err
			}
			defer statsd.Close()

			db, err := cmdutil.NewDatabasePool(ctx, 1)
			if err != nil {
				return err
			}
			defer db.Close()

			redis, err := cmdutil.NewRedisClient(ctx)
			if err != nil {
				return err
			}
			defer redis.Close()

			api := api.NewAPI(ctx, logger, statsd, redis, db)
			srv := api.Server(port)

			go func() { _ = srv.ListenAndServe() }()

			logger.Info("started api", zap.Int("port", port))

			<-ctx.Done()

			_ = srv.Shutdown(ctx)

			return nil
		},
	}

	return cmd
}

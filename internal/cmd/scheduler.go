package cmd

import (
	"context"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/adjust/rmq/v5"
	"github.com/go-co-op/gocron"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/cmdutil"
	"github.com/hermodapp/hermod-backend/internal/wake"
)

func SchedulerCmd(ctx context.Context) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scheduler",
		Args:  cobra.ExactArgs(0),
		Short: "Moves due wake tasks onto the queue and runs maintenance periodically.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := cmdutil.NewLogger(false)
			defer func() { _ = logger.Sync() }()

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

			queue, err := cmdutil.NewQueueClient(logger, redis, "scheduler")
			if err != nil {
				return err
			}

			wakeQueue, err := queue.OpenQueue("wake")
			if err != nil {
				return err
			}

			scheduler := wake.NewScheduler(logger, statsd, redis, wake.DefaultDelay)

			s := gocron.NewScheduler(time.UTC)
			_, _ = s.Every(1).Second().SingletonMode().Do(func() { enqueueDueWakes(ctx, logger, scheduler, wakeQueue) })
			_, _ = s.Every(1).Minute().Do(func() { cleanQueues(ctx, logger, queue) })
			_, _ = s.Every(1).Minute().Do(func() { reportStats(ctx, logger, statsd, db) })
			s.StartAsync()

			<-ctx.Done()

			s.Stop()

			return nil
		},
	}

	return cmd
}

func enqueueDueWakes(ctx context.Context, logger *zap.Logger, scheduler *wake.Scheduler, queue rmq.Queue) {
	count, err := scheduler.EnqueueDue(ctx, queue)
	if err != nil {
		logger.Error("failed to enqueue due wake tasks", zap.Error(err))
		return
	}

	if count > 0 {
		logger.Debug("enqueued wake tasks", zap.Int("count", count))
	}
}

func cleanQueues(ctx context.Context, logger *zap.Logger, jobsConn rmq.Connection) {
	cleaner := rmq.NewCleaner(jobsConn)
	count, err := cleaner.Clean()
	if err != nil {
		logger.Error("failed cleaning jobs from queues", zap.Error(err))
		return
	}

	logger.Debug("returned jobs to queues", zap.Int64("count", count))
}

func reportStats(ctx context.Context, logger *zap.Logger, statsd *statsd.Client, pool *pgxpool.Pool) {
	var (
		count int64

		metrics = []struct {
			query string
			name  string
		}{
			{"SELECT COUNT(*) FROM devices", "hermod.registrations.devices"},
			{"SELECT COUNT(*) FROM directives", "hermod.directives.pending"},
		}
	)

	for _, metric := range metrics {
		_ = pool.QueryRow(ctx, metric.query).Scan(&count)
		_ = statsd.Gauge(metric.name, float64(count), []string{}, 1)

		logger.Debug("fetched metrics", zap.Int64("count", count), zap.String("metric", metric.name))
	}
}

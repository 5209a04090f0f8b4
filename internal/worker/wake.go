package worker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/adjust/rmq/v5"
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/valyala/fastjson"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/c2dm"
	"github.com/hermodapp/hermod-backend/internal/domain"
	"github.com/hermodapp/hermod-backend/internal/repository"
	"github.com/hermodapp/hermod-backend/internal/wake"
)

type wakeWorker struct {
	context.Context

	logger *zap.Logger
	statsd *statsd.Client
	db     *pgxpool.Pool
	redis  *redis.Client
	queue  rmq.Connection
	waker  *wake.Waker

	consumers int

	configRepo domain.ConfigRepository
}

func NewWakeWorker(ctx context.Context, logger *zap.Logger, statsd *statsd.Client, db *pgxpool.Pool, redis *redis.Client, queue rmq.Connection, consumers int) Worker {
	push := c2dm.NewClient(os.Getenv("C2DM_ENDPOINT"), statsd, consumers)
	deviceRepo := repository.NewPostgresDevice(db)
	waker := wake.NewWaker(logger, statsd, deviceRepo, push)

	return &wakeWorker{
		ctx,
		logger,
		statsd,
		db,
		redis,
		queue,
		waker,
		consumers,

		repository.NewPostgresConfig(db),
	}
}

func (ww *wakeWorker) Start() error {
	queue, err := ww.queue.OpenQueue("wake")
	if err != nil {
		return err
	}

	ww.logger.Info("starting up wake worker", zap.Int("consumers", ww.consumers))

	prefetchLimit := int64(ww.consumers * 4)

	if err := queue.StartConsuming(prefetchLimit, pollDuration); err != nil {
		return err
	}

	host, _ := os.Hostname()

	for i := 0; i < ww.consumers; i++ {
		name := fmt.Sprintf("consumer %s-%d", host, i)

		consumer := NewWakeConsumer(ww, i)
		if _, err := queue.AddConsumer(name, consumer); err != nil {
			return err
		}
	}

	return nil
}

func (ww *wakeWorker) Stop() {
	<-ww.queue.StopAllConsuming() // wait for all Consume() calls to finish
}

type wakeConsumer struct {
	*wakeWorker
	tag int
}

func NewWakeConsumer(ww *wakeWorker, tag int) *wakeConsumer {
	return &wakeConsumer{ww, tag}
}

func (wc *wakeConsumer) Consume(delivery rmq.Delivery) {
	payload := delivery.Payload()

	var p fastjson.Parser
	v, err := p.Parse(payload)
	if err != nil {
		wc.logger.Error("failed to parse wake task", zap.Error(err), zap.String("task#payload", payload))
		_ = delivery.Reject()
		return
	}

	owner := domain.UserID(v.GetStringBytes("owner"))
	device := domain.DeviceID(v.GetStringBytes("device"))

	wc.logger.Debug("starting wake", zap.String("device#id", string(device)))

	authToken, err := wc.configRepo.PushAuthToken(wc)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		wc.logger.Error("failed to read push auth token", zap.Error(err))
		_ = delivery.Reject()
		return
	}

	newToken, err := wc.waker.Wake(wc, authToken, owner, device)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		// Terminal: the device was never registered or is gone.
		wc.logger.Info("wake for unknown device", zap.String("device#id", string(device)))
		_ = delivery.Ack()
		return
	case errors.Is(err, domain.ErrInvalidPushAuthToken):
		_ = wc.statsd.Incr("hermod.wake.auth_failures", nil, 1)
		wc.logger.Warn("push auth token rejected, leaving task for retry", zap.String("device#id", string(device)))
		_ = delivery.Reject()
		return
	case err != nil:
		wc.logger.Error("failed to wake device", zap.Error(err), zap.String("device#id", string(device)))
		_ = delivery.Reject()
		return
	}

	if newToken != "" {
		if err := wc.configRepo.SetPushAuthToken(wc, newToken); err != nil {
			wc.logger.Error("failed to persist rotated push auth token", zap.Error(err))
		} else {
			wc.logger.Info("persisted rotated push auth token")
		}
	}

	if err := delivery.Ack(); err != nil {
		wc.logger.Error("failed to acknowledge wake task", zap.Error(err), zap.String("device#id", string(device)))
	}
}

package wake

import (
	"context"
	"errors"

	"github.com/DataDog/datadog-go/statsd"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/c2dm"
	"github.com/hermodapp/hermod-backend/internal/domain"
)

// Wakes share one collapse key: a device that was offline gets a single push
// no matter how many wakes queued up behind it.
const collapseKey = "directive"

type Waker struct {
	logger     *zap.Logger
	statsd     statsd.ClientInterface
	deviceRepo domain.DeviceRepository
	push       *c2dm.Client
}

func NewWaker(logger *zap.Logger, statsd statsd.ClientInterface, deviceRepo domain.DeviceRepository, push *c2dm.Client) *Waker {
	return &Waker{
		logger:     logger,
		statsd:     statsd,
		deviceRepo: deviceRepo,
		push:       push,
	}
}

// Wake tells one device that directives are pending. Returns the rotated push
// auth token when the transport handed one back, "" otherwise.
//
// Known race: a wake can reach the device before the triggering store's
// transaction is visible, in which case the fetch comes back empty and the
// directive waits for the next wake.
func (w *Waker) Wake(ctx context.Context, authToken string, owner domain.UserID, device domain.DeviceID) (string, error) {
	dev, err := w.deviceRepo.GetByID(ctx, owner, device)
	if err != nil {
		return "", err
	}

	if dev.PushToken == "" {
		w.logger.Info("device has no push token, not waking",
			zap.String("device#id", string(device)),
		)
		return "", nil
	}

	resp, err := w.push.Send(ctx, authToken, dev.PushToken, collapseKey, map[string]string{"action": "sync"})
	if err != nil {
		if errors.Is(err, c2dm.ErrInvalidAuthToken) {
			return "", domain.ErrInvalidPushAuthToken
		}
		return "", err
	}

	_ = w.statsd.Incr("hermod.wake.sent", nil, 1)

	if resp.UpdatedAuthToken != "" {
		w.logger.Info("push service rotated auth token")
	}

	return resp.UpdatedAuthToken, nil
}

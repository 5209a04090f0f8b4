// Package wake turns "directives are pending" into at most one push per
// device per coalescing window, delivered asynchronously through the wake
// queue.
package wake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/DataDog/datadog-go/statsd"
	"github.com/adjust/rmq/v5"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

const (
	// DefaultDelay is the coalescing window: wake requests for the same device
	// inside one window collapse into a single task, which also gives a burst
	// of stores a chance to commit before the device fetches.
	DefaultDelay = 2 * time.Second

	maxScheduleAttempts = 10
	scheduleBackoff     = 250 * time.Millisecond

	pendingKeyFormat = "wake:pending:%s"
	delayedSetKey    = "wake:delayed"
)

// ErrScheduleExhausted is reported when every scheduling attempt failed. The
// caller's directive is still stored; the device just won't be woken for it.
var ErrScheduleExhausted = errors.New("wake scheduling attempts exhausted")

// Task is the queued unit of work: wake one device of one owner.
type Task struct {
	Name   string `json:"name"`
	Owner  string `json:"owner"`
	Device string `json:"device"`
}

type Scheduler struct {
	logger *zap.Logger
	statsd statsd.ClientInterface
	redis  *redis.Client
	delay  time.Duration
}

func NewScheduler(logger *zap.Logger, statsd statsd.ClientInterface, redis *redis.Client, delay time.Duration) *Scheduler {
	if delay <= 0 {
		delay = DefaultDelay
	}

	return &Scheduler{
		logger: logger,
		statsd: statsd,
		redis:  redis,
		delay:  delay,
	}
}

// TaskName derives the deduplication name for a wake of device at now: all
// requests within the same delay-sized window map to the same name.
func TaskName(now time.Time, device domain.DeviceID, delay time.Duration) string {
	return fmt.Sprintf("%d:%s", now.UnixMilli()/delay.Milliseconds(), device)
}

// Schedule queues an asynchronous wake for (owner, device). A task with the
// same name already queued counts as success, the device will be woken anyway.
// Transient redis failures are retried; exhaustion returns
// ErrScheduleExhausted and must not fail the store that triggered it.
func (s *Scheduler) Schedule(ctx context.Context, owner domain.UserID, device domain.DeviceID) error {
	now := time.Now()
	name := TaskName(now, device, s.delay)

	payload, err := json.Marshal(Task{Name: name, Owner: string(owner), Device: string(device)})
	if err != nil {
		return err
	}

	var lastErr error
	marked := false

	for attempt := 0; attempt < maxScheduleAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(scheduleBackoff)
		}

		if !marked {
			created, err := s.redis.SetNX(ctx, fmt.Sprintf(pendingKeyFormat, name), 1, 2*s.delay).Result()
			if err != nil {
				lastErr = err
				s.logger.Warn("failed to mark wake task", zap.Error(err), zap.String("wake#task", name))
				continue
			}
			if !created {
				_ = s.statsd.Incr("hermod.wake.coalesced", nil, 1)
				return nil
			}
			marked = true
		}

		err := s.redis.ZAdd(ctx, delayedSetKey, &redis.Z{
			Score:  float64(now.Add(s.delay).UnixMilli()),
			Member: string(payload),
		}).Err()
		if err != nil {
			lastErr = err
			s.logger.Warn("failed to queue wake task", zap.Error(err), zap.String("wake#task", name))
			continue
		}

		_ = s.statsd.Incr("hermod.wake.scheduled", nil, 1)
		return nil
	}

	return fmt.Errorf("%w: %v", ErrScheduleExhausted, lastErr)
}

// EnqueueDue moves tasks whose countdown elapsed onto the wake queue. Called
// periodically by the scheduler process.
func (s *Scheduler) EnqueueDue(ctx context.Context, queue rmq.Queue) (int, error) {
	now := time.Now().UnixMilli()

	members, err := s.redis.ZRangeByScore(ctx, delayedSetKey, &redis.ZRangeBy{
		Min: "-inf",
		Max: strconv.FormatInt(now, 10),
	}).Result()
	if err != nil {
		return 0, err
	}

	count := 0
	for _, member := range members {
		if err := queue.Publish(member); err != nil {
			s.logger.Error("failed to publish wake task", zap.Error(err))
			continue
		}
		if err := s.redis.ZRem(ctx, delayedSetKey, member).Err(); err != nil {
			// The task was published; a leftover member means one duplicate
			// wake, which the push collapse key absorbs.
			s.logger.Error("failed to remove enqueued wake task", zap.Error(err))
		}
		count++
	}

	return count, nil
}

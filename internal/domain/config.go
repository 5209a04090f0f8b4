package domain

import "context"

// ConfigRepository holds the gateway-wide configuration singletons. The push
// auth token is shared by all wakes; concurrent rotations are last-write-wins
// since every writer refreshed from the same source.
type ConfigRepository interface {
	PushAuthToken(ctx context.Context) (string, error)
	SetPushAuthToken(ctx context.Context, token string) error
}

package c2dm

import (
	"errors"
	"fmt"
)

type ServerError struct {
	Body       string
	StatusCode int
}

func (se ServerError) Error() string {
	return fmt.Sprintf("error from push service: %d (%s)", se.StatusCode, se.Body)
}

var (
	ErrInvalidAuthToken    = errors.New("auth token rejected by push service")
	ErrInvalidRegistration = errors.New("invalid registration id")
	ErrNotRegistered       = errors.New("device no longer registered for push")
	ErrMessageTooBig       = errors.New("message too big")
	ErrQuotaExceeded       = errors.New("quota exceeded")
	ErrUnavailable         = errors.New("push service unavailable")
)

var errorsByCode = map[string]error{
	"InvalidRegistration": ErrInvalidRegistration,
	"NotRegistered":       ErrNotRegistered,
	"MessageTooBig":       ErrMessageTooBig,
	"QuotaExceeded":       ErrQuotaExceeded,
	"DeviceQuotaExceeded": ErrQuotaExceeded,
}

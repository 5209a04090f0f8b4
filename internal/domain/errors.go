package domain

import "errors"

var (
	// ErrNotFound will be returned if the requested item is not found
	ErrNotFound = errors.New("requested item was not found")
	// ErrInvalidDeviceID will be returned when a device id fails validation
	ErrInvalidDeviceID = errors.New("invalid device id")
	// ErrTooManyConcurrentAccesses will be returned once the transactional retry budget is spent
	ErrTooManyConcurrentAccesses = errors.New("too many concurrent accesses")
	// ErrInvalidPushAuthToken will be returned when the push transport rejects our credential
	ErrInvalidPushAuthToken = errors.New("push auth token rejected")
)

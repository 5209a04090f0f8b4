package domain

import (
	"context"
	"fmt"

	"github.com/fxamacker/cbor/v2"
	validation "github.com/go-ozzo/ozzo-validation/v4"
)

type DirectiveKind string

const (
	DirectiveNotification DirectiveKind = "notification"
	DirectiveVibration    DirectiveKind = "vibration"
	DirectiveSMS          DirectiveKind = "sms"
)

type Notification struct {
	Title string `cbor:"title"`
	Text  string `cbor:"text"`
}

type Vibration struct {
	// Millisecond off/on durations, as handed to the vibrator service.
	PatternMs []int64 `cbor:"pattern_ms"`
}

type SMS struct {
	Number  string `cbor:"number"`
	Message string `cbor:"message"`
}

// Directive is one unit of instruction for a device. Kind selects which of
// the payload fields is set; the other two must be nil.
type Directive struct {
	Kind DirectiveKind `cbor:"kind"`

	Notification *Notification `cbor:"notification,omitempty"`
	Vibration    *Vibration    `cbor:"vibration,omitempty"`
	SMS          *SMS          `cbor:"sms,omitempty"`
}

func (d Directive) Validate() error {
	set := 0
	for _, present := range []bool{d.Notification != nil, d.Vibration != nil, d.SMS != nil} {
		if present {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("directive must carry exactly one payload, has %d", set)
	}

	var match bool
	switch d.Kind {
	case DirectiveNotification:
		match = d.Notification != nil
	case DirectiveVibration:
		match = d.Vibration != nil
	case DirectiveSMS:
		match = d.SMS != nil
	default:
		return fmt.Errorf("unknown directive kind %q", d.Kind)
	}
	if !match {
		return fmt.Errorf("directive kind %q does not match its payload", d.Kind)
	}

	if d.Vibration != nil {
		return validation.Validate(d.Vibration.PatternMs, validation.Required, validation.Length(1, 64))
	}

	return nil
}

func (d Directive) Encode() ([]byte, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return cbor.Marshal(d)
}

func DecodeDirective(payload []byte) (Directive, error) {
	var d Directive
	if err := cbor.Unmarshal(payload, &d); err != nil {
		return Directive{}, err
	}
	if err := d.Validate(); err != nil {
		return Directive{}, err
	}
	return d, nil
}

// DirectiveRepository is the durable per-device directive queue. FetchAndDelete
// is atomic: a directive stored concurrently is either returned and deleted, or
// left untouched for the next fetch. Once a fetch commits the directives are
// gone, even if the response carrying them is lost.
type DirectiveRepository interface {
	Store(ctx context.Context, owner UserID, device DeviceID, d Directive) error
	FetchAndDelete(ctx context.Context, owner UserID, device DeviceID) ([]Directive, error)
}

// Package wire defines the CBOR shapes exchanged with clients. Requests are
// size-capped upstream; everything here assumes a fully buffered body.
package wire

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

type QueueDirectiveEntry struct {
	Device    string           `cbor:"device"`
	Directive domain.Directive `cbor:"directive"`
}

func (e QueueDirectiveEntry) Validate() error {
	if _, err := domain.ParseDeviceID(e.Device); err != nil {
		return err
	}
	return e.Directive.Validate()
}

type RegisterDeviceEntry struct {
	Device    string `cbor:"device"`
	PushToken string `cbor:"push_token,omitempty"`
	Name      string `cbor:"name,omitempty"`
}

func (e RegisterDeviceEntry) Validate() error {
	if _, err := domain.ParseDeviceID(e.Device); err != nil {
		return err
	}
	return validation.ValidateStruct(&e,
		validation.Field(&e.PushToken, validation.Length(0, 256)),
		validation.Field(&e.Name, validation.Length(0, 128)),
	)
}

type FetchDirectivesEntry struct {
	Device string `cbor:"device"`
}

func (e FetchDirectivesEntry) Validate() error {
	_, err := domain.ParseDeviceID(e.Device)
	return err
}

// BatchRequest carries any mix of sub-requests. Validation is all-or-nothing:
// one bad entry rejects the whole batch.
type BatchRequest struct {
	Queue    []QueueDirectiveEntry  `cbor:"queue,omitempty"`
	Register []RegisterDeviceEntry  `cbor:"register,omitempty"`
	Fetch    []FetchDirectivesEntry `cbor:"fetch,omitempty"`
}

func DecodeBatchRequest(body []byte) (*BatchRequest, error) {
	var req BatchRequest
	if err := cbor.Unmarshal(body, &req); err != nil {
		return nil, err
	}
	return &req, nil
}

// Faults validates every entry and describes each failure found.
func (req *BatchRequest) Faults() []string {
	var faults []string

	for i, e := range req.Queue {
		if err := e.Validate(); err != nil {
			faults = append(faults, fmt.Sprintf("queue directive entry %d: %v", i, err))
		}
	}
	for i, e := range req.Register {
		if err := e.Validate(); err != nil {
			faults = append(faults, fmt.Sprintf("register device entry %d: %v", i, err))
		}
	}
	for i, e := range req.Fetch {
		if err := e.Validate(); err != nil {
			faults = append(faults, fmt.Sprintf("get directives entry %d: %v", i, err))
		}
	}

	return faults
}

type BatchResponse struct {
	Directives []domain.Directive `cbor:"directives"`
}

func (resp *BatchResponse) Encode() ([]byte, error) {
	return cbor.Marshal(resp)
}

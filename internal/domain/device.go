package domain

import (
	"context"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Device is one registered handset of one owner. An empty PushToken means the
// device never registered for push and can only pick up directives by polling.
type Device struct {
	Owner     UserID
	ID        DeviceID
	PushToken string
	Name      string
}

func (dev *Device) Validate() error {
	return validation.ValidateStruct(dev,
		validation.Field(&dev.Owner, validation.Required),
		validation.Field(&dev.ID, validation.Required, validation.By(func(interface{}) error {
			_, err := ParseDeviceID(string(dev.ID))
			return err
		})),
		validation.Field(&dev.PushToken, validation.Length(0, 256)),
		validation.Field(&dev.Name, validation.Length(0, 128)),
	)
}

// DeviceRepository represents the device directory's repository contract
type DeviceRepository interface {
	GetByID(ctx context.Context, owner UserID, id DeviceID) (Device, error)
	GetByOwner(ctx context.Context, owner UserID) ([]Device, error)

	CreateOrUpdate(ctx context.Context, dev *Device) error
}

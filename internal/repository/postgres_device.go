package repository

import (
	"context"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

type postgresDeviceRepository struct {
	conn Connection
}

func NewPostgresDevice(conn Connection) domain.DeviceRepository {
	return &postgresDeviceRepository{conn: conn}
}

func (p *postgresDeviceRepository) fetch(ctx context.Context, query string, args ...interface{}) ([]domain.Device, error) {
	rows, err := p.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var devs []domain.Device
	for rows.Next() {
		var dev domain.Device
		if err := rows.Scan(
			&dev.Owner,
			&dev.ID,
			&dev.PushToken,
			&dev.Name,
		); err != nil {
			return nil, err
		}
		devs = append(devs, dev)
	}
	return devs, rows.Err()
}

func (p *postgresDeviceRepository) GetByID(ctx context.Context, owner domain.UserID, id domain.DeviceID) (domain.Device, error) {
	query := `
		SELECT owner_id, device_id, push_token, name
		FROM devices
		WHERE owner_id = $1 AND device_id = $2`

	devs, err := p.fetch(ctx, query, string(owner), string(id))

	if err != nil {
		return domain.Device{}, err
	}
	if len(devs) == 0 {
		return domain.Device{}, domain.ErrNotFound
	}
	return devs[0], nil
}

func (p *postgresDeviceRepository) GetByOwner(ctx context.Context, owner domain.UserID) ([]domain.Device, error) {
	query := `
		SELECT owner_id, device_id, push_token, name
		FROM devices
		WHERE owner_id = $1
		ORDER BY device_id`

	return p.fetch(ctx, query, string(owner))
}

func (p *postgresDeviceRepository) CreateOrUpdate(ctx context.Context, dev *domain.Device) error {
	if err := dev.Validate(); err != nil {
		return err
	}

	query := `
		INSERT INTO devices (owner_id, device_id, push_token, name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT(owner_id, device_id) DO
			UPDATE SET push_token = $3, name = $4`

	_, err := p.conn.Exec(
		ctx,
		query,
		string(dev.Owner),
		string(dev.ID),
		dev.PushToken,
		dev.Name,
	)
	return err
}

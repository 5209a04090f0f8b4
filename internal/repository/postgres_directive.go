package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/hermodapp/hermod-backend/internal/domain"
	"github.com/hermodapp/hermod-backend/internal/transact"
)

type postgresDirectiveRepository struct {
	db     transact.Beginner
	logger *zap.Logger
}

func NewPostgresDirective(db transact.Beginner, logger *zap.Logger) domain.DirectiveRepository {
	return &postgresDirectiveRepository{db: db, logger: logger}
}

func (p *postgresDirectiveRepository) Store(ctx context.Context, owner domain.UserID, device domain.DeviceID, d domain.Directive) error {
	payload, err := d.Encode()
	if err != nil {
		return err
	}

	return transact.Run(ctx, p.db, func(tx pgx.Tx) error {
		query := `
			INSERT INTO directives (owner_id, device_id, payload, created_at)
			VALUES ($1, $2, $3, $4)`

		_, err := tx.Exec(ctx, query, string(owner), string(device), payload, time.Now().Unix())
		return err
	})
}

func (p *postgresDirectiveRepository) FetchAndDelete(ctx context.Context, owner domain.UserID, device domain.DeviceID) ([]domain.Directive, error) {
	var directives []domain.Directive

	err := transact.Run(ctx, p.db, func(tx pgx.Tx) error {
		// The unit of work may run again after a conflict; start from scratch.
		directives = nil

		query := `
			SELECT id, payload
			FROM directives
			WHERE owner_id = $1 AND device_id = $2
			ORDER BY id`

		rows, err := tx.Query(ctx, query, string(owner), string(device))
		if err != nil {
			return err
		}

		var ids []int64
		var payloads [][]byte
		for rows.Next() {
			var id int64
			var payload []byte
			if err := rows.Scan(&id, &payload); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
			payloads = append(payloads, payload)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return err
		}

		for i, payload := range payloads {
			d, err := domain.DecodeDirective(payload)
			if err != nil {
				// A corrupt directive must not block delivery of the rest.
				// It still gets deleted below.
				p.logger.Warn("skipping corrupt directive",
					zap.Error(err),
					zap.Int64("directive#id", ids[i]),
					zap.String("device#id", string(device)),
				)
				continue
			}
			directives = append(directives, d)
		}

		if len(ids) == 0 {
			return nil
		}

		_, err = tx.Exec(ctx, `DELETE FROM directives WHERE id = ANY($1)`, ids)
		return err
	})

	if err != nil {
		return nil, err
	}
	return directives, nil
}

package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/hermodapp/hermod-backend/internal/domain"
)

const pushAuthTokenKey = "push_auth_token"

type postgresConfigRepository struct {
	conn Connection
}

func NewPostgresConfig(conn Connection) domain.ConfigRepository {
	return &postgresConfigRepository{conn: conn}
}

func (p *postgresConfigRepository) PushAuthToken(ctx context.Context) (string, error) {
	query := `SELECT value FROM gateway_config WHERE key = $1`

	var token string
	if err := p.conn.QueryRow(ctx, query, pushAuthTokenKey).Scan(&token); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.ErrNotFound
		}
		return "", err
	}
	return token, nil
}

func (p *postgresConfigRepository) SetPushAuthToken(ctx context.Context, token string) error {
	query := `
		INSERT INTO gateway_config (key, value)
		VALUES ($1, $2)
		ON CONFLICT(key) DO
			UPDATE SET value = $2`

	_, err := p.conn.Exec(ctx, query, pushAuthTokenKey, token)
	return err
}

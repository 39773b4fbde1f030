package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type configRepo struct {
	conn *sqlx.DB
}

func (r *configRepo) Get(ctx context.Context, key string) (*store.ConfigEntry, error) {
	var e store.ConfigEntry
	query := `SELECT key, value FROM config WHERE key = $1`
	if err := r.conn.GetContext(ctx, &e, query, key); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("config entry not found")
		}
		return nil, apperrors.Database("failed to get config entry", err)
	}
	return &e, nil
}

func (r *configRepo) Set(ctx context.Context, entry *store.ConfigEntry) error {
	query := `
		INSERT INTO config (key, value) VALUES (:key, :value)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`
	if _, err := sqlx.NamedExecContext(ctx, r.conn, query, entry); err != nil {
		return apperrors.Database("failed to set config entry", err)
	}
	return nil
}

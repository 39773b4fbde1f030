package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type accountRepo struct {
	conn *sqlx.DB
}

func (r *accountRepo) Insert(ctx context.Context, t store.Transaction, a *store.Account) error {
	query := `
		INSERT INTO account (id, sub, created_at, updated_at)
		VALUES (:id, :sub, :created_at, :updated_at)`

	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, a)
	if err != nil {
		return apperrors.Database("failed to insert account", err)
	}
	return nil
}

func (r *accountRepo) FindBySub(ctx context.Context, sub string) (*store.Account, error) {
	var a store.Account
	query := `SELECT id, sub, created_at, updated_at FROM account WHERE sub = $1`
	if err := r.conn.GetContext(ctx, &a, query, sub); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("account not found")
		}
		return nil, apperrors.Database("failed to get account", err)
	}
	return &a, nil
}

func (r *accountRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Account, error) {
	var a store.Account
	query := `SELECT id, sub, created_at, updated_at FROM account WHERE id = $1`
	if err := r.conn.GetContext(ctx, &a, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("account not found")
		}
		return nil, apperrors.Database("failed to get account", err)
	}
	return &a, nil
}

package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type apiKeyRepo struct {
	conn *sqlx.DB
}

const apiKeyColumns = `id, user_id, name, key_hash, permissions, description, created_at, expires_at`

func (r *apiKeyRepo) Insert(ctx context.Context, t store.Transaction, k *store.ApiKey) error {
	query := `
		INSERT INTO api_key (id, user_id, name, key_hash, permissions, description, created_at, expires_at)
		VALUES (:id, :user_id, :name, :key_hash, :permissions, :description, :created_at, :expires_at)`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, k)
	if err != nil {
		return apperrors.Database("failed to insert api key", err)
	}
	return nil
}

func (r *apiKeyRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.ApiKey, error) {
	var k store.ApiKey
	query := `SELECT ` + apiKeyColumns + ` FROM api_key WHERE id = $1`
	if err := r.conn.GetContext(ctx, &k, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("api key not found")
		}
		return nil, apperrors.Database("failed to get api key", err)
	}
	return &k, nil
}

func (r *apiKeyRepo) FindByKeyHash(ctx context.Context, hash []byte) (*store.ApiKey, error) {
	var k store.ApiKey
	query := `SELECT ` + apiKeyColumns + ` FROM api_key WHERE key_hash = $1`
	if err := r.conn.GetContext(ctx, &k, query, hash); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("api key not found")
		}
		return nil, apperrors.Database("failed to get api key", err)
	}
	return &k, nil
}

func (r *apiKeyRepo) FindMany(ctx context.Context, f store.Filter) ([]store.ApiKey, error) {
	cb := &clauseBuilder{}
	if f.UserID != nil {
		cb.add("user_id = $%d", *f.UserID)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	query := "SELECT " + apiKeyColumns + " FROM api_key " + cb.where() + " " + orderLimit(cb, "created_at", f)

	var out []store.ApiKey
	if err := r.conn.SelectContext(ctx, &out, query, cb.args...); err != nil {
		return nil, apperrors.Database("failed to list api keys", err)
	}
	return out, nil
}

func (r *apiKeyRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM api_key WHERE id = $1`, id); err != nil {
		return apperrors.Database("failed to delete api key", err)
	}
	return nil
}

func (r *apiKeyRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	cb := &clauseBuilder{}
	if f.UserID != nil {
		cb.add("user_id = $%d", *f.UserID)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	result, err := r.conn.ExecContext(ctx, "DELETE FROM api_key "+cb.where(), cb.args...)
	if err != nil {
		return 0, apperrors.Database("failed to delete api keys", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type lnAddressRepo struct {
	conn *sqlx.DB
}

const lnAddressColumns = `id, wallet_id, username, active, allows_nostr, nostr_pubkey, created_at, updated_at`

func (r *lnAddressRepo) Insert(ctx context.Context, t store.Transaction, a *store.LnAddress) error {
	query := `
		INSERT INTO ln_address (id, wallet_id, username, active, allows_nostr, nostr_pubkey, created_at, updated_at)
		VALUES (:id, :wallet_id, :username, :active, :allows_nostr, :nostr_pubkey, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, a)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("ln address already registered")
		}
		return apperrors.Database("failed to insert ln address", err)
	}
	return nil
}

func (r *lnAddressRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.LnAddress, error) {
	var a store.LnAddress
	query := `SELECT ` + lnAddressColumns + ` FROM ln_address WHERE id = $1`
	if err := r.conn.GetContext(ctx, &a, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("ln address not found")
		}
		return nil, apperrors.Database("failed to get ln address", err)
	}
	return &a, nil
}

func (r *lnAddressRepo) FindByUsername(ctx context.Context, username string) (*store.LnAddress, error) {
	var a store.LnAddress
	query := `SELECT ` + lnAddressColumns + ` FROM ln_address WHERE username = $1`
	if err := r.conn.GetContext(ctx, &a, query, username); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("ln address not found")
		}
		return nil, apperrors.Database("failed to get ln address", err)
	}
	return &a, nil
}

func (r *lnAddressRepo) FindByWalletID(ctx context.Context, walletID uuid.UUID) (*store.LnAddress, error) {
	var a store.LnAddress
	query := `SELECT ` + lnAddressColumns + ` FROM ln_address WHERE wallet_id = $1`
	if err := r.conn.GetContext(ctx, &a, query, walletID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("ln address not found")
		}
		return nil, apperrors.Database("failed to get ln address", err)
	}
	return &a, nil
}

func (r *lnAddressRepo) FindMany(ctx context.Context, f store.Filter) ([]store.LnAddress, error) {
	cb := &clauseBuilder{}
	if f.WalletID != nil {
		cb.add("wallet_id = $%d", *f.WalletID)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	query := "SELECT " + lnAddressColumns + " FROM ln_address " + cb.where() + " " + orderLimit(cb, "created_at", f)

	var out []store.LnAddress
	if err := r.conn.SelectContext(ctx, &out, query, cb.args...); err != nil {
		return nil, apperrors.Database("failed to list ln addresses", err)
	}
	return out, nil
}

func (r *lnAddressRepo) Update(ctx context.Context, t store.Transaction, a *store.LnAddress) error {
	query := `
		UPDATE ln_address SET active = :active, allows_nostr = :allows_nostr,
			nostr_pubkey = :nostr_pubkey, updated_at = :updated_at
		WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, a)
	if err != nil {
		return apperrors.Database("failed to update ln address", err)
	}
	return nil
}

func (r *lnAddressRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM ln_address WHERE id = $1`, id); err != nil {
		return apperrors.Database("failed to delete ln address", err)
	}
	return nil
}

func (r *lnAddressRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	cb := &clauseBuilder{}
	if f.WalletID != nil {
		cb.add("wallet_id = $%d", *f.WalletID)
	}
	result, err := r.conn.ExecContext(ctx, "DELETE FROM ln_address "+cb.where(), cb.args...)
	if err != nil {
		return 0, apperrors.Database("failed to delete ln addresses", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

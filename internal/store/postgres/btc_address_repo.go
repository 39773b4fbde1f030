package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type btcAddressRepo struct {
	conn *sqlx.DB
}

const btcAddressColumns = `id, wallet_id, address, address_type, used, derivation_index, created_at, updated_at`

func (r *btcAddressRepo) Insert(ctx context.Context, t store.Transaction, a *store.BtcAddress) error {
	query := `
		INSERT INTO btc_address (id, wallet_id, address, address_type, used, derivation_index, created_at, updated_at)
		VALUES (:id, :wallet_id, :address, :address_type, :used, :derivation_index, :created_at, :updated_at)`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, a)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("address already registered")
		}
		return apperrors.Database("failed to insert btc address", err)
	}
	return nil
}

// FindUnused returns the oldest address that has never received a deposit,
// the address reuse-before-mint rotation InvoiceService uses for on-chain
// invoices before asking the on-chain wallet to derive a fresh one.
func (r *btcAddressRepo) FindUnused(ctx context.Context, walletID uuid.UUID) (*store.BtcAddress, error) {
	var a store.BtcAddress
	query := `
		SELECT ` + btcAddressColumns + ` FROM btc_address
		WHERE wallet_id = $1 AND used = false
		ORDER BY created_at ASC LIMIT 1`
	if err := r.conn.GetContext(ctx, &a, query, walletID); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("no unused address")
		}
		return nil, apperrors.Database("failed to find unused address", err)
	}
	return &a, nil
}

func (r *btcAddressRepo) FindByAddress(ctx context.Context, address string) (*store.BtcAddress, error) {
	var a store.BtcAddress
	query := `SELECT ` + btcAddressColumns + ` FROM btc_address WHERE address = $1`
	if err := r.conn.GetContext(ctx, &a, query, address); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("address not found")
		}
		return nil, apperrors.Database("failed to find address", err)
	}
	return &a, nil
}

func (r *btcAddressRepo) MarkUsed(ctx context.Context, t store.Transaction, id uuid.UUID) error {
	query := `UPDATE btc_address SET used = true, updated_at = now() WHERE id = $1`
	_, err := execerFor(r.conn, t).ExecContext(ctx, query, id)
	if err != nil {
		return apperrors.Database("failed to mark address used", err)
	}
	return nil
}

package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type walletRepo struct {
	conn *sqlx.DB
}

func (r *walletRepo) Insert(ctx context.Context, t store.Transaction, w *store.Wallet) error {
	query := `
		INSERT INTO wallet (id, account_id, currency, created_at, updated_at)
		VALUES (:id, :account_id, :currency, :created_at, :updated_at)`

	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, w)
	if err != nil {
		return apperrors.Database("failed to insert wallet", err)
	}
	return nil
}

func (r *walletRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Wallet, error) {
	var w store.Wallet
	query := `SELECT id, account_id, currency, created_at, updated_at FROM wallet WHERE id = $1`
	if err := r.conn.GetContext(ctx, &w, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("wallet not found")
		}
		return nil, apperrors.Database("failed to get wallet", err)
	}
	return &w, nil
}

func (r *walletRepo) FindByAccountAndCurrency(ctx context.Context, accountID uuid.UUID, currency store.Currency) (*store.Wallet, error) {
	var w store.Wallet
	query := `
		SELECT id, account_id, currency, created_at, updated_at
		FROM wallet WHERE account_id = $1 AND currency = $2`
	if err := r.conn.GetContext(ctx, &w, query, accountID, currency); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("wallet not found")
		}
		return nil, apperrors.Database("failed to get wallet", err)
	}
	return &w, nil
}

func (r *walletRepo) FindMany(ctx context.Context, f store.Filter) ([]store.Wallet, error) {
	cb := &clauseBuilder{}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	query := "SELECT id, account_id, currency, created_at, updated_at FROM wallet " +
		cb.where() + " " + orderLimit(cb, "created_at", f)

	var wallets []store.Wallet
	if err := r.conn.SelectContext(ctx, &wallets, query, cb.args...); err != nil {
		return nil, apperrors.Database("failed to list wallets", err)
	}
	return wallets, nil
}

func (r *walletRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM wallet WHERE id = $1`, id); err != nil {
		return apperrors.Database("failed to delete wallet", err)
	}
	return nil
}

// Balance aggregates settled invoice receipts against pending-or-settled
// payment debits and settled payment fees, per the balance law in spec §3(5).
func (r *walletRepo) Balance(ctx context.Context, walletID uuid.UUID) (store.BalanceRow, error) {
	const query = `
		SELECT
			COALESCE((
				SELECT SUM(amount_received_msat) FROM invoice
				WHERE wallet_id = $1 AND payment_time IS NOT NULL
			), 0) AS received_msat,
			COALESCE((
				SELECT SUM(amount_msat) FROM payment
				WHERE wallet_id = $1 AND status IN ('Pending', 'Settled')
			), 0) AS sent_msat,
			COALESCE((
				SELECT SUM(fee_msat) FROM payment
				WHERE wallet_id = $1 AND status = 'Settled'
			), 0) AS fees_paid_msat
	`
	var row store.BalanceRow
	if err := r.conn.QueryRowxContext(ctx, query, walletID).Scan(&row.ReceivedMsat, &row.SentMsat, &row.FeesPaidMsat); err != nil {
		return store.BalanceRow{}, apperrors.Database("failed to compute balance", err)
	}
	return row, nil
}

func idsArray(ids []uuid.UUID) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = id.String()
	}
	return out
}

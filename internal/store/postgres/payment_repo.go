package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type paymentRepo struct {
	conn *sqlx.DB
}

const paymentColumns = `
	id, wallet_id, error, amount_msat, fee_msat, ledger, currency, payment_time,
	status, description, created_at, updated_at, ln_address, payment_hash,
	payment_preimage, metadata, success_action, destination_address, txid,
	output_id, block_height
`

func (r *paymentRepo) Insert(ctx context.Context, t store.Transaction, p *store.Payment) error {
	query := `
		INSERT INTO payment (
			id, wallet_id, error, amount_msat, fee_msat, ledger, currency, payment_time,
			status, description, created_at, updated_at, ln_address, payment_hash,
			payment_preimage, metadata, success_action, destination_address, txid,
			output_id, block_height
		) VALUES (
			:id, :wallet_id, :error, :amount_msat, :fee_msat, :ledger, :currency, :payment_time,
			:status, :description, :created_at, :updated_at, :ln_address, :payment_hash,
			:payment_preimage, :metadata, :success_action, :destination_address, :txid,
			:output_id, :block_height
		)`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, p)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("payment already exists")
		}
		return apperrors.Database("failed to insert payment", err)
	}
	return nil
}

func (r *paymentRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Payment, error) {
	var p store.Payment
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE id = $1`
	if err := r.conn.GetContext(ctx, &p, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("payment not found")
		}
		return nil, apperrors.Database("failed to get payment", err)
	}
	return &p, nil
}

func (r *paymentRepo) FindByPaymentHash(ctx context.Context, paymentHash string) (*store.Payment, error) {
	var p store.Payment
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE payment_hash = $1`
	if err := r.conn.GetContext(ctx, &p, query, paymentHash); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("payment not found")
		}
		return nil, apperrors.Database("failed to get payment", err)
	}
	return &p, nil
}

func (r *paymentRepo) FindPendingByTxid(ctx context.Context, txid string) (*store.Payment, error) {
	var p store.Payment
	query := `SELECT ` + paymentColumns + ` FROM payment WHERE txid = $1 AND status = 'Pending'`
	if err := r.conn.GetContext(ctx, &p, query, txid); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("pending payment not found")
		}
		return nil, apperrors.Database("failed to get pending payment by txid", err)
	}
	return &p, nil
}

func (r *paymentRepo) FindMany(ctx context.Context, f store.Filter) ([]store.Payment, error) {
	cb := &clauseBuilder{}
	if f.WalletID != nil {
		cb.add("wallet_id = $%d", *f.WalletID)
	}
	if f.Ledger != nil {
		cb.add("ledger = $%d", *f.Ledger)
	}
	if f.Status != nil {
		cb.add("status = $%d", *f.Status)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	query := "SELECT " + paymentColumns + " FROM payment " + cb.where() + " " + orderLimit(cb, "created_at", f)

	var out []store.Payment
	if err := r.conn.SelectContext(ctx, &out, query, cb.args...); err != nil {
		return nil, apperrors.Database("failed to list payments", err)
	}
	return out, nil
}

func (r *paymentRepo) Update(ctx context.Context, t store.Transaction, p *store.Payment) error {
	query := `
		UPDATE payment SET
			error = :error,
			fee_msat = :fee_msat,
			payment_time = :payment_time,
			status = :status,
			updated_at = :updated_at,
			payment_preimage = :payment_preimage,
			txid = :txid,
			output_id = :output_id,
			block_height = :block_height
		WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, p)
	if err != nil {
		return apperrors.Database("failed to update payment", err)
	}
	return nil
}

func (r *paymentRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM payment WHERE id = $1`, id); err != nil {
		return apperrors.Database("failed to delete payment", err)
	}
	return nil
}

func (r *paymentRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	cb := &clauseBuilder{}
	if f.WalletID != nil {
		cb.add("wallet_id = $%d", *f.WalletID)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	result, err := r.conn.ExecContext(ctx, "DELETE FROM payment "+cb.where(), cb.args...)
	if err != nil {
		return 0, apperrors.Database("failed to delete payments", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

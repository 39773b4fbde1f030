package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type invoiceRepo struct {
	conn *sqlx.DB
}

const invoiceColumns = `
	id, wallet_id, ln_address_id, description, amount_msat, amount_received_msat,
	timestamp, ledger, currency, fee_msat, payment_time, created_at, updated_at,
	btc_txid, output_index, payment_hash, bolt11, payee_pubkey, payment_secret,
	min_final_cltv_expiry_delta, expiry_seconds, expires_at, description_hash
`

func (r *invoiceRepo) Insert(ctx context.Context, t store.Transaction, inv *store.Invoice) error {
	query := `
		INSERT INTO invoice (
			id, wallet_id, ln_address_id, description, amount_msat, amount_received_msat,
			timestamp, ledger, currency, fee_msat, payment_time, created_at, updated_at,
			btc_txid, output_index, payment_hash, bolt11, payee_pubkey, payment_secret,
			min_final_cltv_expiry_delta, expiry_seconds, expires_at, description_hash
		) VALUES (
			:id, :wallet_id, :ln_address_id, :description, :amount_msat, :amount_received_msat,
			:timestamp, :ledger, :currency, :fee_msat, :payment_time, :created_at, :updated_at,
			:btc_txid, :output_index, :payment_hash, :bolt11, :payee_pubkey, :payment_secret,
			:min_final_cltv_expiry_delta, :expiry_seconds, :expires_at, :description_hash
		)`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, inv)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.Conflict("invoice payment_hash or bolt11 already exists")
		}
		return apperrors.Database("failed to insert invoice", err)
	}
	return nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, id uuid.UUID) (*store.Invoice, error) {
	var inv store.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoice WHERE id = $1`
	if err := r.conn.GetContext(ctx, &inv, query, id); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("invoice not found")
		}
		return nil, apperrors.Database("failed to get invoice", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) FindByPaymentHash(ctx context.Context, paymentHash string) (*store.Invoice, error) {
	var inv store.Invoice
	query := `SELECT ` + invoiceColumns + ` FROM invoice WHERE payment_hash = $1`
	if err := r.conn.GetContext(ctx, &inv, query, paymentHash); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("invoice not found")
		}
		return nil, apperrors.Database("failed to get invoice", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) FindMany(ctx context.Context, f store.Filter) ([]store.Invoice, error) {
	cb := &clauseBuilder{}
	if f.WalletID != nil {
		cb.add("wallet_id = $%d", *f.WalletID)
	}
	if f.Ledger != nil {
		cb.add("ledger = $%d", *f.Ledger)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	query := "SELECT " + invoiceColumns + " FROM invoice " + cb.where() + " " + orderLimit(cb, "created_at", f)

	var out []store.Invoice
	if err := r.conn.SelectContext(ctx, &out, query, cb.args...); err != nil {
		return nil, apperrors.Database("failed to list invoices", err)
	}
	return out, nil
}

// FindPendingLightning returns every Lightning invoice that has not been
// settled and has not yet expired, the candidate set InvoiceService.sync()
// re-checks against the node.
func (r *invoiceRepo) FindPendingLightning(ctx context.Context) ([]store.Invoice, error) {
	query := `
		SELECT ` + invoiceColumns + ` FROM invoice
		WHERE ledger = 'Lightning' AND payment_time IS NULL AND expires_at > $1
		ORDER BY created_at ASC`
	var out []store.Invoice
	if err := r.conn.SelectContext(ctx, &out, query, time.Now().UTC()); err != nil {
		return nil, apperrors.Database("failed to list pending invoices", err)
	}
	return out, nil
}

// LatestSettled returns the most recently settled invoice, ordered by
// payment_time.
func (r *invoiceRepo) LatestSettled(ctx context.Context) (*store.Invoice, error) {
	var inv store.Invoice
	query := `
		SELECT ` + invoiceColumns + ` FROM invoice
		WHERE payment_time IS NOT NULL
		ORDER BY payment_time DESC LIMIT 1`
	if err := r.conn.GetContext(ctx, &inv, query); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("no settled invoice")
		}
		return nil, apperrors.Database("failed to get latest settled invoice", err)
	}
	return &inv, nil
}

func (r *invoiceRepo) Update(ctx context.Context, t store.Transaction, inv *store.Invoice) error {
	query := `
		UPDATE invoice SET
			amount_received_msat = :amount_received_msat,
			fee_msat = :fee_msat,
			payment_time = :payment_time,
			updated_at = :updated_at,
			btc_txid = :btc_txid,
			output_index = :output_index
		WHERE id = :id`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, inv)
	if err != nil {
		return apperrors.Database("failed to update invoice", err)
	}
	return nil
}

func (r *invoiceRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM invoice WHERE id = $1`, id); err != nil {
		return apperrors.Database("failed to delete invoice", err)
	}
	return nil
}

func (r *invoiceRepo) DeleteMany(ctx context.Context, f store.Filter) (int64, error) {
	cb := &clauseBuilder{}
	if f.WalletID != nil {
		cb.add("wallet_id = $%d", *f.WalletID)
	}
	if f.IDs != nil {
		cb.add("id = ANY($%d)", pq.Array(idsArray(f.IDs)))
	}
	result, err := r.conn.ExecContext(ctx, "DELETE FROM invoice "+cb.where(), cb.args...)
	if err != nil {
		return 0, apperrors.Database("failed to delete invoices", err)
	}
	n, _ := result.RowsAffected()
	return n, nil
}

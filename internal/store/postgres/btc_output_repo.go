package postgres

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/store"
)

type btcOutputRepo struct {
	conn *sqlx.DB
}

const btcOutputColumns = `
	id, outpoint, txid, output_index, address, amount_sat, status, block_height,
	network, created_at, updated_at
`

// Upsert inserts or updates a BtcOutput keyed on its outpoint, the entry
// point eventsvc's on-chain deposit and withdrawal handlers use to record
// observed outputs and their confirmation state.
func (r *btcOutputRepo) Upsert(ctx context.Context, t store.Transaction, o *store.BtcOutput) error {
	query := `
		INSERT INTO btc_output (
			id, outpoint, txid, output_index, address, amount_sat, status, block_height,
			network, created_at, updated_at
		) VALUES (
			:id, :outpoint, :txid, :output_index, :address, :amount_sat, :status, :block_height,
			:network, :created_at, :updated_at
		)
		ON CONFLICT (outpoint) DO UPDATE SET
			status = EXCLUDED.status,
			block_height = EXCLUDED.block_height,
			updated_at = EXCLUDED.updated_at`
	_, err := sqlx.NamedExecContext(ctx, execerFor(r.conn, t), query, o)
	if err != nil {
		return apperrors.Database("failed to upsert btc output", err)
	}
	return nil
}

func (r *btcOutputRepo) FindByOutpoint(ctx context.Context, outpoint string) (*store.BtcOutput, error) {
	var o store.BtcOutput
	query := `SELECT ` + btcOutputColumns + ` FROM btc_output WHERE outpoint = $1`
	if err := r.conn.GetContext(ctx, &o, query, outpoint); err != nil {
		if isNoRows(err) {
			return nil, apperrors.NotFound("btc output not found")
		}
		return nil, apperrors.Database("failed to get btc output", err)
	}
	return &o, nil
}

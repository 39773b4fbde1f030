// Package postgres implements internal/store.Store against Postgres using
// sqlx + lib/pq, in a raw-SQL-with-named-params style.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/numeraire/swissknife-go/internal/config"
	"github.com/numeraire/swissknife-go/internal/store"
)

// DB wraps the shared connection pool and exposes one repo per aggregate.
type DB struct {
	conn *sqlx.DB

	accounts     *accountRepo
	wallets      *walletRepo
	lnAddresses  *lnAddressRepo
	invoices     *invoiceRepo
	payments     *paymentRepo
	btcAddresses *btcAddressRepo
	btcOutputs   *btcOutputRepo
	apiKeys      *apiKeyRepo
	configs      *configRepo
}

// Open connects to Postgres and configures the pool per cfg.
func Open(cfg config.DatabaseConfig) (*DB, error) {
	conn, err := sqlx.Connect(cfg.Driver, cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	conn.SetMaxOpenConns(cfg.MaxOpenConns)
	conn.SetMaxIdleConns(cfg.MaxIdleConns)
	conn.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	conn.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	return &DB{
		conn:         conn,
		accounts:     &accountRepo{conn: conn},
		wallets:      &walletRepo{conn: conn},
		lnAddresses:  &lnAddressRepo{conn: conn},
		invoices:     &invoiceRepo{conn: conn},
		payments:     &paymentRepo{conn: conn},
		btcAddresses: &btcAddressRepo{conn: conn},
		btcOutputs:   &btcOutputRepo{conn: conn},
		apiKeys:      &apiKeyRepo{conn: conn},
		configs:      &configRepo{conn: conn},
	}, nil
}

func (d *DB) Accounts() store.AccountRepo         { return d.accounts }
func (d *DB) Wallets() store.WalletRepo           { return d.wallets }
func (d *DB) LnAddresses() store.LnAddressRepo     { return d.lnAddresses }
func (d *DB) Invoices() store.InvoiceRepo         { return d.invoices }
func (d *DB) Payments() store.PaymentRepo         { return d.payments }
func (d *DB) BtcAddresses() store.BtcAddressRepo   { return d.btcAddresses }
func (d *DB) BtcOutputs() store.BtcOutputRepo     { return d.btcOutputs }
func (d *DB) ApiKeys() store.ApiKeyRepo           { return d.apiKeys }
func (d *DB) Config() store.ConfigRepo            { return d.configs }

// Close releases the underlying connection pool.
func (d *DB) Close() error { return d.conn.Close() }

// Ping verifies connectivity, used by SystemService.health_check.
func (d *DB) Ping(ctx context.Context) error {
	return d.conn.PingContext(ctx)
}

// tx wraps a *sqlx.Tx to satisfy store.Transaction.
type tx struct {
	inner *sqlx.Tx
}

func (t *tx) Commit() error   { return t.inner.Commit() }
func (t *tx) Rollback() error { return t.inner.Rollback() }

// Begin opens a new transaction; pass the returned handle into repo calls
// that accept a store.Transaction to compose mutations atomically.
func (d *DB) Begin(ctx context.Context) (store.Transaction, error) {
	sqlxTx, err := d.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	return &tx{inner: sqlxTx}, nil
}

// execer is satisfied by both *sqlx.DB and *sqlx.Tx.
type execer interface {
	sqlx.ExtContext
}

func execerFor(conn *sqlx.DB, t store.Transaction) execer {
	if t == nil {
		return conn
	}
	if pt, ok := t.(*tx); ok {
		return pt.inner
	}
	return conn
}

func isNoRows(err error) bool {
	return err == sql.ErrNoRows
}

// isUniqueViolation reports whether err is a Postgres unique_violation
// (SQLSTATE 23505), the signal for the Conflict domain error.
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}

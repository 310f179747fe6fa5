package main

import (
	"context"
	"database/sql"
	"time"

	dErrors "glint/pkg/domain-errors"
	txcontext "glint/pkg/platform/tx"
)

const defaultAuditTxTimeout = 5 * time.Second

// auditPostgresTx is the interceptor's transaction boundary. The open *sql.Tx
// rides the context so the business mutation and the audit append hit the
// same transaction without threading it through every signature.
type auditPostgresTx struct {
	db      *sql.DB
	timeout time.Duration
}

func newAuditPostgresTx(db *sql.DB) *auditPostgresTx {
	return &auditPostgresTx{db: db}
}

func (t *auditPostgresTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	timeout := t.timeout
	if timeout == 0 {
		timeout = defaultAuditTxTimeout
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := fn(txcontext.WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	return nil
}

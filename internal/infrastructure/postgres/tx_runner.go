package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/locking"
)

var _ inventory.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL con las ubicaciones bloqueadas.
type TxRunner struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
	locker      locking.Locker // opcional, p.ej. Redis cuando varias instancias comparten la base
}

// NewTxRunner construye el runner. lockTimeout <= 0 usa locking.DefaultTimeout; locker puede ser nil.
func NewTxRunner(pool *pgxpool.Pool, lockTimeout time.Duration, locker locking.Locker) *TxRunner {
	if lockTimeout <= 0 {
		lockTimeout = locking.DefaultTimeout
	}
	return &TxRunner{pool: pool, lockTimeout: lockTimeout, locker: locker}
}

// Run toma un advisory lock de transacción por clave, en orden, y hace Commit o Rollback.
// Si la espera supera lockTimeout devuelve domain.ErrConcurrencyConflict.
func (r *TxRunner) Run(ctx context.Context, keys []entity.StockKey, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
) error) error {
	names := entity.LockNames(keys)
	if r.locker != nil && len(names) > 0 {
		release, err := r.locker.Acquire(ctx, names)
		if err != nil {
			return err
		}
		defer release()
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if len(names) > 0 {
		timeout := fmt.Sprintf("%dms", r.lockTimeout.Milliseconds())
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, timeout); err != nil {
			return mapError("configurar lock_timeout", err)
		}
		for _, name := range names {
			if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtextextended($1, 0))`, name); err != nil {
				return mapError("bloquear "+name, err)
			}
		}
	}

	if err := fn(NewLedgerRepository(tx), NewBatchRepository(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

// Package sqlite guarda el libro mayor en un archivo SQLite, o en memoria con ":memory:".
// Las escrituras usan BEGIN IMMEDIATE; además cada ubicación se bloquea en proceso con
// locking.Local para dar el mismo contrato de espera que el resto de backends.
package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/locking"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schema string

const (
	dateLayout = "2006-01-02"
	tsLayout   = time.RFC3339Nano
)

var _ inventory.TxRunner = (*Store)(nil)

// querier es lo común entre *sql.DB y *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store abre la base, aplica el esquema y hace de TxRunner.
type Store struct {
	db     *sql.DB
	locker locking.Locker
	now    func() time.Time
}

// Open abre (o crea) la base en path. lockTimeout acota tanto la espera por ubicación como
// busy_timeout de SQLite. locker puede ser nil; en ese caso se usa uno local.
func Open(ctx context.Context, path string, lockTimeout time.Duration, locker locking.Locker) (*Store, error) {
	if lockTimeout <= 0 {
		lockTimeout = locking.DefaultTimeout
	}
	if locker == nil {
		locker = locking.NewLocal(lockTimeout)
	}
	dsn := fmt.Sprintf("file:%s?_txlock=immediate&_busy_timeout=%d&_foreign_keys=on", path, lockTimeout.Milliseconds())
	if path != ":memory:" {
		dsn += "&_journal_mode=WAL"
	}
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("abrir sqlite: %w", err)
	}
	if path == ":memory:" {
		// Cada conexión a :memory: es una base distinta.
		db.SetMaxOpenConns(1)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("aplicar esquema: %w", err)
	}
	return &Store{db: db, locker: locker, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) Ledger() repository.LedgerRepository { return &ledgerRepo{q: s.db, now: s.now} }

func (s *Store) Batches() repository.BatchRepository { return &batchRepo{q: s.db, now: s.now} }

func (s *Store) Resources() repository.ResourceRepository { return &resourceRepo{q: s.db, now: s.now} }

func (s *Store) Projects() repository.ProjectRepository { return &projectRepo{q: s.db, now: s.now} }

func (s *Store) GoodsReceipts() repository.GoodsReceiptRepository {
	return &receiptRepo{db: s.db, now: s.now}
}

// Run bloquea las claves, abre la transacción y confirma si fn no falla.
func (s *Store) Run(ctx context.Context, keys []entity.StockKey, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
) error) error {
	release, err := s.locker.Acquire(ctx, entity.LockNames(keys))
	if err != nil {
		return err
	}
	defer release()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return mapError("begin transaction", err)
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(&ledgerRepo{q: tx, now: s.now}, &batchRepo{q: tx, now: s.now}); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return mapError("commit transaction", err)
	}
	return nil
}

func parseDate(s string) (time.Time, error) {
	return time.ParseInLocation(dateLayout, s, time.UTC)
}

func parseTS(s string) time.Time {
	t, _ := time.Parse(tsLayout, s)
	return t
}

func locationArgs(l entity.Location) (string, *string) {
	if id, ok := l.ProjectID(); ok {
		return l.String(), &id
	}
	return l.String(), nil
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

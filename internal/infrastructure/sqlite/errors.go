package sqlite

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/mattn/go-sqlite3"
)

const (
	msgLedgerImmutable = "ledger_immutable"
	msgBatchFrozen     = "batch_frozen:"
)

// mapError traduce errores de go-sqlite3 a errores de dominio.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	var sqlErr sqlite3.Error
	if !errors.As(err, &sqlErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	msg := sqlErr.Error()
	switch {
	case sqlErr.Code == sqlite3.ErrBusy || sqlErr.Code == sqlite3.ErrLocked:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConcurrencyConflict, msg)
	case sqlErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqlErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, msg)
	case sqlErr.ExtendedCode == sqlite3.ErrConstraintForeignKey:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, msg)
	case sqlErr.ExtendedCode == sqlite3.ErrConstraintCheck || sqlErr.ExtendedCode == sqlite3.ErrConstraintNotNull:
		return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidArgument, msg)
	case strings.Contains(msg, msgLedgerImmutable):
		return fmt.Errorf("%s: %w", op, domain.ErrImmutable)
	case strings.Contains(msg, msgBatchFrozen):
		field := msg[strings.Index(msg, msgBatchFrozen)+len(msgBatchFrozen):]
		return &domain.ImmutableFieldError{Field: strings.TrimSpace(field)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

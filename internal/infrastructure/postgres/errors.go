package postgres

import (
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
)

// Mensajes que levantan los triggers de schema.sql.
const (
	msgLedgerImmutable = "ledger_immutable"
	msgBatchFrozen     = "batch_frozen:"
)

// mapError traduce errores del driver a errores de dominio. op da contexto al mensaje.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("%s: %w", op, domain.ErrNotFound)
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return fmt.Errorf("%s: %w", op, err)
	}
	switch pgErr.Code {
	case "23505": // unique_violation
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConflict, pgErr.ConstraintName)
	case "23503": // foreign_key_violation
		return fmt.Errorf("%s: %w: %s", op, domain.ErrNotFound, pgErr.ConstraintName)
	case "23514", "22P02": // check_violation, invalid_text_representation
		return fmt.Errorf("%s: %w: %s", op, domain.ErrInvalidArgument, pgErr.Message)
	case "55P03", "40001", "40P01": // lock_not_available, serialization_failure, deadlock_detected
		return fmt.Errorf("%s: %w: %s", op, domain.ErrConcurrencyConflict, pgErr.Message)
	case "P0001": // raise_exception
		switch {
		case pgErr.Message == msgLedgerImmutable:
			return fmt.Errorf("%s: %w", op, domain.ErrImmutable)
		case strings.HasPrefix(pgErr.Message, msgBatchFrozen):
			return &domain.ImmutableFieldError{Field: strings.TrimPrefix(pgErr.Message, msgBatchFrozen)}
		}
	}
	return fmt.Errorf("%s: %w", op, err)
}

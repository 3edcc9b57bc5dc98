package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio. Los adaptadores traducen los errores del driver a estos valores.
var (
	ErrNotFound            = errors.New("recurso no encontrado")
	ErrInvalidArgument     = errors.New("argumento inválido")
	ErrInsufficientStock   = errors.New("stock insuficiente")
	ErrImmutable           = errors.New("registro inmutable")
	ErrConcurrencyConflict = errors.New("conflicto de concurrencia, reintente")
	ErrConflict            = errors.New("conflicto con el estado actual")
	ErrUnauthorized        = errors.New("no autorizado")
)

// Invalid construye un ErrInvalidArgument con detalle.
func Invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InsufficientStockError indica cuánto había disponible frente a lo solicitado (unidades base).
type InsufficientStockError struct {
	Location  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente en %s: disponible %s, solicitado %s",
		e.Location, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ImmutableFieldError se devuelve al intentar modificar un campo congelado de un lote.
type ImmutableFieldError struct {
	Field string
}

func (e *ImmutableFieldError) Error() string {
	return fmt.Sprintf("no se puede modificar '%s' después de crear el lote", e.Field)
}

func (e *ImmutableFieldError) Unwrap() error { return ErrImmutable }

// IsRetryable reporta si la operación puede reintentarse sin cambios.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}

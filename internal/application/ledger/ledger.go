package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

// Ledger es el único punto de escritura del libro mayor. Solo agrega asientos.
type Ledger struct {
	repo repository.LedgerRepository
}

// New construye el Ledger sobre un repositorio (puede ser el de una transacción).
func New(repo repository.LedgerRepository) *Ledger {
	return &Ledger{repo: repo}
}

// Validate comprueba un asiento antes de escribirlo.
func Validate(e *entity.LedgerEntry) error {
	switch {
	case e == nil:
		return domain.Invalid("asiento nulo")
	case strings.TrimSpace(e.ResourceID) == "":
		return domain.Invalid("recurso requerido")
	case !e.Type.Valid():
		return domain.Invalid("tipo de movimiento desconocido %q", e.Type)
	case e.Quantity.IsZero():
		return domain.Invalid("la cantidad no puede ser cero")
	case e.UnitPrice.IsNegative():
		return domain.Invalid("precio unitario negativo")
	case e.TransactionDate.IsZero():
		return domain.Invalid("fecha de transacción requerida")
	case strings.TrimSpace(e.CreatedBy) == "":
		return domain.Invalid("actor requerido")
	}
	if err := e.Location.Validate(); err != nil {
		return domain.Invalid("%v", err)
	}
	return nil
}

// Append valida, recalcula TotalValue y persiste el asiento.
func (l *Ledger) Append(ctx context.Context, e *entity.LedgerEntry) (int64, error) {
	if err := Validate(e); err != nil {
		return 0, err
	}
	e.TransactionDate = entity.Day(e.TransactionDate)
	e.TotalValue = inventory.LineValue(e.Quantity, e.UnitPrice)
	id, err := l.repo.Append(ctx, e)
	if err != nil {
		return 0, fmt.Errorf("append ledger entry: %w", err)
	}
	return id, nil
}

// Update siempre falla: los asientos no se modifican; se corrigen con un ajuste.
func (l *Ledger) Update(ctx context.Context, e *entity.LedgerEntry) error {
	if e == nil {
		return domain.Invalid("asiento nulo")
	}
	return l.rejectWrite(ctx, e.ID)
}

// Delete siempre falla: los asientos no se borran.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	return l.rejectWrite(ctx, id)
}

func (l *Ledger) rejectWrite(ctx context.Context, id int64) error {
	existing, err := l.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if existing == nil {
		return domain.ErrNotFound
	}
	return fmt.Errorf("%w: asiento %d", domain.ErrImmutable, id)
}

// EntriesFor lista los asientos de un recurso, opcionalmente por ubicación y rango de fechas.
func (l *Ledger) EntriesFor(ctx context.Context, resourceID string, loc *entity.Location, rng *entity.DateRange) ([]*entity.LedgerEntry, error) {
	f := repository.EntryFilter{ResourceID: resourceID, Location: loc}
	if rng != nil {
		f.Range = *rng
	}
	return l.repo.List(ctx, f)
}

// ByMovement devuelve las patas de una operación.
func (l *Ledger) ByMovement(ctx context.Context, resourceID, movementID string) ([]*entity.LedgerEntry, error) {
	all, err := l.repo.List(ctx, repository.EntryFilter{ResourceID: resourceID})
	if err != nil {
		return nil, err
	}
	var out []*entity.LedgerEntry
	for _, e := range all {
		if e.MovementID == movementID {
			out = append(out, e)
		}
	}
	return out, nil
}

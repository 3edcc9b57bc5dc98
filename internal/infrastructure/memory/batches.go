package memory

import (
	"context"
	"fmt"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/inventory"
	"github.com/shopspring/decimal"
)

type batchRepo struct {
	s  *Store
	tx *txState
}

// autocommit ejecuta una escritura fuera de Run como su propia unidad de trabajo.
func (r *batchRepo) autocommit(fn func(v *batchRepo) error) error {
	tx := newTxState()
	if err := fn(&batchRepo{s: r.s, tx: tx}); err != nil {
		return err
	}
	return r.s.commit(tx)
}

func (r *batchRepo) overlay(b *entity.Batch) *entity.Batch {
	c := b.Clone()
	if r.tx == nil {
		return c
	}
	if rem, ok := r.tx.remaining[c.ID]; ok {
		c.QuantityRemaining = rem
	}
	if det, ok := r.tx.details[c.ID]; ok {
		c.Supplier, c.Notes = det.supplier, det.notes
	}
	return c
}

func (r *batchRepo) all() []*entity.Batch {
	r.s.mu.RLock()
	out := make([]*entity.Batch, 0, len(r.s.batches))
	for id, b := range r.s.batches {
		if r.tx != nil && r.tx.deleted[id] {
			continue
		}
		out = append(out, r.overlay(b))
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, b := range r.tx.created {
			out = append(out, b.Clone())
		}
	}
	return out
}

func (r *batchRepo) Create(ctx context.Context, b *entity.Batch) error {
	if r.tx == nil {
		return r.autocommit(func(v *batchRepo) error { return v.Create(ctx, b) })
	}
	if err := b.Validate(); err != nil {
		return domain.Invalid("%v", err)
	}
	for _, existing := range r.all() {
		if existing.BatchNumber == b.BatchNumber {
			return domain.ErrConflict
		}
	}
	c := b.Clone()
	c.ID = r.s.batchSeq.Add(1)
	c.CreatedAt = r.s.now()
	c.PurchaseDate = entity.Day(c.PurchaseDate)
	r.tx.created[c.ID] = c
	b.ID, b.CreatedAt, b.PurchaseDate = c.ID, c.CreatedAt, c.PurchaseDate
	return nil
}

func (r *batchRepo) GetByID(_ context.Context, id int64) (*entity.Batch, error) {
	if r.tx != nil {
		if r.tx.deleted[id] {
			return nil, nil
		}
		if b, ok := r.tx.created[id]; ok {
			return b.Clone(), nil
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	b, ok := r.s.batches[id]
	if !ok {
		return nil, nil
	}
	return r.overlay(b), nil
}

func (r *batchRepo) ListAvailable(_ context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.all() {
		if b.ResourceID == resourceID && b.Location.Equal(loc) && b.QuantityRemaining.IsPositive() {
			out = append(out, b)
		}
	}
	inventory.SortFIFO(out)
	return out, nil
}

// ListAvailableForUpdate no necesita bloqueo adicional: Run ya tiene la clave de la ubicación.
func (r *batchRepo) ListAvailableForUpdate(ctx context.Context, resourceID string, loc entity.Location) ([]*entity.Batch, error) {
	return r.ListAvailable(ctx, resourceID, loc)
}

func (r *batchRepo) ListByResource(_ context.Context, resourceID string) ([]*entity.Batch, error) {
	var out []*entity.Batch
	for _, b := range r.all() {
		if b.ResourceID == resourceID {
			out = append(out, b)
		}
	}
	inventory.SortFIFO(out)
	return out, nil
}

func (r *batchRepo) CountByResource(ctx context.Context, resourceID string) (int, error) {
	list, err := r.ListByResource(ctx, resourceID)
	return len(list), err
}

func (r *batchRepo) UpdateRemaining(ctx context.Context, id int64, remaining decimal.Decimal) error {
	if r.tx == nil {
		return r.autocommit(func(v *batchRepo) error { return v.UpdateRemaining(ctx, id, remaining) })
	}
	b, _ := r.GetByID(ctx, id)
	if b == nil {
		return domain.ErrNotFound
	}
	if remaining.IsNegative() || remaining.GreaterThan(b.QuantityPurchased) {
		return domain.Invalid("saldo %s fuera de rango para el lote %s", remaining.String(), b.BatchNumber)
	}
	if created, ok := r.tx.created[id]; ok {
		created.QuantityRemaining = remaining
		return nil
	}
	r.tx.remaining[id] = remaining
	return nil
}

func (r *batchRepo) UpdateDetails(ctx context.Context, id int64, supplier, notes string) error {
	if r.tx == nil {
		return r.autocommit(func(v *batchRepo) error { return v.UpdateDetails(ctx, id, supplier, notes) })
	}
	b, _ := r.GetByID(ctx, id)
	if b == nil {
		return domain.ErrNotFound
	}
	if created, ok := r.tx.created[id]; ok {
		created.Supplier, created.Notes = supplier, notes
		return nil
	}
	r.tx.details[id] = batchDetails{supplier: supplier, notes: notes}
	return nil
}

func (r *batchRepo) Delete(ctx context.Context, id int64) error {
	if r.tx == nil {
		return r.autocommit(func(v *batchRepo) error { return v.Delete(ctx, id) })
	}
	b, _ := r.GetByID(ctx, id)
	if b == nil {
		return domain.ErrNotFound
	}
	if _, ok := r.tx.created[id]; ok {
		delete(r.tx.created, id)
		return nil
	}
	delete(r.tx.remaining, id)
	delete(r.tx.details, id)
	r.tx.deleted[id] = true
	return nil
}

func (r *batchRepo) RecordDraws(ctx context.Context, draws []entity.BatchDraw) error {
	if r.tx == nil {
		return r.autocommit(func(v *batchRepo) error { return v.RecordDraws(ctx, draws) })
	}
	r.tx.draws = append(r.tx.draws, draws...)
	return nil
}

func (r *batchRepo) DrawsByMovement(_ context.Context, movementID string) ([]entity.BatchDraw, error) {
	r.s.mu.RLock()
	out := append([]entity.BatchDraw(nil), r.s.draws[movementID]...)
	r.s.mu.RUnlock()
	if r.tx == nil {
		return out, nil
	}
	for _, d := range r.tx.draws {
		if d.MovementID == movementID {
			out = append(out, d)
		}
	}
	if by, ok := r.tx.reversed[movementID]; ok {
		for i := range out {
			out[i].ReversedBy = by
		}
	}
	return out, nil
}

func (r *batchRepo) MarkDrawsReversed(ctx context.Context, movementID, reversalID string) error {
	if r.tx == nil {
		return r.autocommit(func(v *batchRepo) error { return v.MarkDrawsReversed(ctx, movementID, reversalID) })
	}
	draws, _ := r.DrawsByMovement(ctx, movementID)
	if len(draws) == 0 {
		return domain.ErrNotFound
	}
	if draws[0].ReversedBy != "" {
		return fmt.Errorf("%w: el movimiento %s ya fue revertido", domain.ErrImmutable, movementID)
	}
	r.tx.reversed[movementID] = reversalID
	return nil
}

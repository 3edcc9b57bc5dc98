package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

type ledgerRepo struct {
	s  *Store
	tx *txState
}

func (r *ledgerRepo) Append(_ context.Context, e *entity.LedgerEntry) (int64, error) {
	if e == nil {
		return 0, domain.Invalid("asiento nulo")
	}
	c := e.Clone()
	c.ID = r.s.entrySeq.Add(1)
	c.CreatedAt = r.s.now()
	c.TransactionDate = entity.Day(c.TransactionDate)

	if r.tx != nil {
		r.tx.entries = append(r.tx.entries, c)
	} else {
		r.s.mu.Lock()
		r.s.entries = append(r.s.entries, c)
		r.s.mu.Unlock()
	}
	e.ID, e.CreatedAt, e.TransactionDate = c.ID, c.CreatedAt, c.TransactionDate
	return c.ID, nil
}

func (r *ledgerRepo) GetByID(_ context.Context, id int64) (*entity.LedgerEntry, error) {
	if r.tx != nil {
		for _, e := range r.tx.entries {
			if e.ID == id {
				return e.Clone(), nil
			}
		}
	}
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, e := range r.s.entries {
		if e.ID == id {
			return e.Clone(), nil
		}
	}
	return nil, nil
}

func (r *ledgerRepo) List(_ context.Context, f repository.EntryFilter) ([]*entity.LedgerEntry, error) {
	var out []*entity.LedgerEntry
	r.s.mu.RLock()
	for _, e := range r.s.entries {
		if matches(e, f) {
			out = append(out, e.Clone())
		}
	}
	r.s.mu.RUnlock()
	if r.tx != nil {
		for _, e := range r.tx.entries {
			if matches(e, f) {
				out = append(out, e.Clone())
			}
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TransactionDate.Equal(out[j].TransactionDate) {
			return out[i].TransactionDate.Before(out[j].TransactionDate)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *ledgerRepo) CountByGoodsReceipt(ctx context.Context, goodsReceiptID string) (int, error) {
	entries, err := r.List(ctx, repository.EntryFilter{GoodsReceiptID: goodsReceiptID})
	return len(entries), err
}

func matches(e *entity.LedgerEntry, f repository.EntryFilter) bool {
	if f.ResourceID != "" && e.ResourceID != f.ResourceID {
		return false
	}
	if f.Location != nil && !e.Location.Equal(*f.Location) {
		return false
	}
	if f.GoodsReceiptID != "" && e.GoodsReceiptID != f.GoodsReceiptID {
		return false
	}
	if len(f.Types) > 0 {
		found := false
		for _, t := range f.Types {
			if t == e.Type {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return f.Range.Contains(e.TransactionDate)
}

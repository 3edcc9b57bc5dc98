package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
)

type resourceRepo struct{ s *Store }

func (r *resourceRepo) Create(_ context.Context, res *entity.Resource) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.resources {
		if existing.SKU == res.SKU {
			return domain.ErrConflict
		}
	}
	if res.ID == "" {
		res.ID = uuid.NewString()
	}
	if _, ok := r.s.resources[res.ID]; ok {
		return domain.ErrConflict
	}
	now := r.s.now()
	res.CreatedAt, res.UpdatedAt = now, now
	c := *res
	r.s.resources[res.ID] = &c
	return nil
}

func (r *resourceRepo) GetByID(_ context.Context, id string) (*entity.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	res, ok := r.s.resources[id]
	if !ok {
		return nil, nil
	}
	c := *res
	return &c, nil
}

func (r *resourceRepo) List(_ context.Context) ([]*entity.Resource, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.Resource, 0, len(r.s.resources))
	for _, res := range r.s.resources {
		c := *res
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SKU < out[j].SKU })
	return out, nil
}

func (r *resourceRepo) UpdateBaseUnit(_ context.Context, id, baseUnit string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	res, ok := r.s.resources[id]
	if !ok {
		return domain.ErrNotFound
	}
	for _, b := range r.s.batches {
		if b.ResourceID == id {
			return fmt.Errorf("%w: el recurso %s ya tiene lotes", domain.ErrImmutable, res.SKU)
		}
	}
	res.BaseUnit = baseUnit
	res.UpdatedAt = r.s.now()
	return nil
}

type projectRepo struct{ s *Store }

func (r *projectRepo) Create(_ context.Context, p *entity.ProjectInfo) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.projects {
		if existing.Code == p.Code {
			return domain.ErrConflict
		}
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, ok := r.s.projects[p.ID]; ok {
		return domain.ErrConflict
	}
	p.CreatedAt = r.s.now()
	c := *p
	r.s.projects[p.ID] = &c
	return nil
}

func (r *projectRepo) GetByID(_ context.Context, id string) (*entity.ProjectInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.projects[id]
	if !ok {
		return nil, nil
	}
	c := *p
	return &c, nil
}

func (r *projectRepo) List(_ context.Context) ([]*entity.ProjectInfo, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.ProjectInfo, 0, len(r.s.projects))
	for _, p := range r.s.projects {
		c := *p
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

type receiptRepo struct{ s *Store }

func cloneReceipt(g *entity.GoodsReceipt) *entity.GoodsReceipt {
	c := *g
	c.Lines = append([]entity.GoodsReceiptLine(nil), g.Lines...)
	return &c
}

func (r *receiptRepo) Create(_ context.Context, g *entity.GoodsReceipt) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.receipts {
		if existing.Number == g.Number {
			return domain.ErrConflict
		}
	}
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	g.CreatedAt = r.s.now()
	r.s.receipts[g.ID] = cloneReceipt(g)
	return nil
}

func (r *receiptRepo) GetByID(_ context.Context, id string) (*entity.GoodsReceipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	g, ok := r.s.receipts[id]
	if !ok {
		return nil, nil
	}
	return cloneReceipt(g), nil
}

func (r *receiptRepo) GetByNumber(_ context.Context, number string) (*entity.GoodsReceipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, g := range r.s.receipts {
		if g.Number == number {
			return cloneReceipt(g), nil
		}
	}
	return nil, nil
}

func (r *receiptRepo) List(_ context.Context) ([]*entity.GoodsReceipt, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make([]*entity.GoodsReceipt, 0, len(r.s.receipts))
	for _, g := range r.s.receipts {
		out = append(out, cloneReceipt(g))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func (r *receiptRepo) CountByYear(_ context.Context, year int) (int, error) {
	prefix := fmt.Sprintf("GRN-%d-", year)
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, g := range r.s.receipts {
		if strings.HasPrefix(g.Number, prefix) {
			n++
		}
	}
	return n, nil
}

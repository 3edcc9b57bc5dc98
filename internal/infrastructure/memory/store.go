// Package memory implementa los puertos de persistencia en memoria (tests y desarrollo).
package memory

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/locking"
	"github.com/shopspring/decimal"
)

var _ inventory.TxRunner = (*Store)(nil)

// Store guarda el libro mayor, los lotes y los datos maestros en memoria.
// Las escrituras dentro de Run se acumulan en un txState y se aplican juntas al confirmar.
type Store struct {
	mu        sync.RWMutex
	entries   []*entity.LedgerEntry
	batches   map[int64]*entity.Batch
	resources map[string]*entity.Resource
	projects  map[string]*entity.ProjectInfo
	receipts  map[string]*entity.GoodsReceipt
	draws     map[string][]entity.BatchDraw

	entrySeq atomic.Int64
	batchSeq atomic.Int64

	locker locking.Locker
	now    func() time.Time
}

// NewStore crea un store vacío. Con locker nil usa un locking.Local con la espera por defecto.
func NewStore(locker locking.Locker) *Store {
	if locker == nil {
		locker = locking.NewLocal(locking.DefaultTimeout)
	}
	return &Store{
		batches:   make(map[int64]*entity.Batch),
		resources: make(map[string]*entity.Resource),
		projects:  make(map[string]*entity.ProjectInfo),
		receipts:  make(map[string]*entity.GoodsReceipt),
		draws:     make(map[string][]entity.BatchDraw),
		locker:    locker,
		now:       time.Now,
	}
}

func (s *Store) Ledger() repository.LedgerRepository { return &ledgerRepo{s: s} }

func (s *Store) Batches() repository.BatchRepository { return &batchRepo{s: s} }

func (s *Store) Resources() repository.ResourceRepository { return &resourceRepo{s: s} }

func (s *Store) Projects() repository.ProjectRepository { return &projectRepo{s: s} }

func (s *Store) GoodsReceipts() repository.GoodsReceiptRepository { return &receiptRepo{s: s} }

// Run bloquea las claves, ejecuta fn sobre repos transaccionales y confirma si fn no falla.
func (s *Store) Run(ctx context.Context, keys []entity.StockKey, fn func(
	ledgerRepo repository.LedgerRepository,
	batchRepo repository.BatchRepository,
) error) error {
	release, err := s.locker.Acquire(ctx, entity.LockNames(keys))
	if err != nil {
		return err
	}
	defer release()

	tx := newTxState()
	if err := fn(&ledgerRepo{s: s, tx: tx}, &batchRepo{s: s, tx: tx}); err != nil {
		return err
	}
	return s.commit(tx)
}

// txState son las escrituras pendientes de una unidad de trabajo.
type txState struct {
	entries   []*entity.LedgerEntry
	created   map[int64]*entity.Batch
	remaining map[int64]decimal.Decimal
	details   map[int64]batchDetails
	deleted   map[int64]bool
	draws     []entity.BatchDraw
	reversed  map[string]string
}

type batchDetails struct {
	supplier string
	notes    string
}

func newTxState() *txState {
	return &txState{
		created:   make(map[int64]*entity.Batch),
		remaining: make(map[int64]decimal.Decimal),
		details:   make(map[int64]batchDetails),
		deleted:   make(map[int64]bool),
		reversed:  make(map[string]string),
	}
}

func (s *Store) commit(tx *txState) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range tx.created {
		for _, existing := range s.batches {
			if existing.BatchNumber == b.BatchNumber {
				return domain.ErrConflict
			}
		}
	}
	for id := range tx.remaining {
		if _, ok := s.batches[id]; !ok {
			return domain.ErrConflict
		}
	}

	for movementID := range tx.reversed {
		if d := s.draws[movementID]; len(d) > 0 && d[0].ReversedBy != "" {
			return domain.ErrImmutable
		}
	}

	s.entries = append(s.entries, tx.entries...)
	for id, b := range tx.created {
		s.batches[id] = b
	}
	for id, rem := range tx.remaining {
		s.batches[id].QuantityRemaining = rem
	}
	for id, det := range tx.details {
		if b, ok := s.batches[id]; ok {
			b.Supplier, b.Notes = det.supplier, det.notes
		}
	}
	for id := range tx.deleted {
		delete(s.batches, id)
	}
	for _, d := range tx.draws {
		s.draws[d.MovementID] = append(s.draws[d.MovementID], d)
	}
	for movementID, by := range tx.reversed {
		list := s.draws[movementID]
		for i := range list {
			list[i].ReversedBy = by
		}
	}
	return nil
}

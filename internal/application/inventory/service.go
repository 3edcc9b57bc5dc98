package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/fifo"
	"github.com/jhoicas/Inventario-ledger/internal/application/ledger"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/Inventario-ledger/pkg/logger"
	"github.com/shopspring/decimal"
)

// Service es el único punto de entrada para mover inventario. Cada operación valida,
// bloquea las ubicaciones afectadas y escribe asientos y lotes en una sola unidad de trabajo.
type Service struct {
	txRunner  TxRunner
	resources repository.ResourceRepository
	projects  repository.ProjectRepository
	receipts  repository.GoodsReceiptRepository
	engine    *fifo.Engine
	log       *logger.Logger
	now       func() time.Time
	newID     func() string
}

// NewService construye el servicio. log puede ser nil.
func NewService(
	txRunner TxRunner,
	resources repository.ResourceRepository,
	projects repository.ProjectRepository,
	receipts repository.GoodsReceiptRepository,
	log *logger.Logger,
) *Service {
	if log == nil {
		log = logger.Nop()
	}
	return &Service{
		txRunner:  txRunner,
		resources: resources,
		projects:  projects,
		receipts:  receipts,
		engine:    fifo.NewEngine(),
		log:       log.Component("inventory"),
		now:       time.Now,
		newID:     uuid.NewString,
	}
}

// MovementResult describe lo que una operación dejó escrito.
type MovementResult struct {
	MovementID string
	// UnitPrice es el precio por unidad base con que se registraron los asientos.
	UnitPrice decimal.Decimal
	Entries   []*entity.LedgerEntry
	Batches   []*entity.Batch
	// FIFO es el costo real de los lotes consumidos; nil si la operación no consumió lotes.
	FIFO *fifo.Result
}

// unit agrupa el estado de una operación dentro de la transacción.
type unit struct {
	ctx     context.Context
	entries repository.LedgerRepository
	ledger  *ledger.Ledger
	calc    *balance.Calculator
	batch   repository.BatchRepository
	result  *MovementResult
}

func (s *Service) run(ctx context.Context, keys []entity.StockKey, fn func(u *unit) error) (*MovementResult, error) {
	result := &MovementResult{MovementID: s.newID()}
	err := s.txRunner.Run(ctx, keys, func(ledgerRepo repository.LedgerRepository, batchRepo repository.BatchRepository) error {
		u := &unit{
			ctx:     ctx,
			entries: ledgerRepo,
			ledger:  ledger.New(ledgerRepo),
			calc:    balance.NewCalculator(ledgerRepo, batchRepo, nil),
			batch:   batchRepo,
			result:  result,
		}
		return fn(u)
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// post agrega un asiento de la operación en curso.
func (u *unit) post(e *entity.LedgerEntry) error {
	e.MovementID = u.result.MovementID
	if _, err := u.ledger.Append(u.ctx, e); err != nil {
		return err
	}
	u.result.Entries = append(u.result.Entries, e)
	return nil
}

// requireStock verifica el saldo del libro mayor y devuelve el precio promedio de la ubicación.
func (u *unit) requireStock(resourceID string, loc entity.Location, qty decimal.Decimal) (decimal.Decimal, error) {
	bal, err := u.calc.CurrentBalance(u.ctx, resourceID, loc)
	if err != nil {
		return decimal.Zero, err
	}
	if bal.LessThan(qty) {
		return decimal.Zero, &domain.InsufficientStockError{Location: loc.String(), Available: bal, Requested: qty}
	}
	return u.calc.WeightedAveragePrice(u.ctx, resourceID, loc)
}

func (s *Service) day(t time.Time) time.Time {
	if t.IsZero() {
		return entity.Day(s.now())
	}
	return entity.Day(t)
}

func requireActor(a entity.Actor) error {
	if strings.TrimSpace(a.UserID) == "" {
		return domain.Invalid("actor requerido")
	}
	return nil
}

func requirePositive(q decimal.Decimal, what string) error {
	if !q.IsPositive() {
		return domain.Invalid("%s debe ser mayor que cero", what)
	}
	return nil
}

func (s *Service) resource(ctx context.Context, id string) (*entity.Resource, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.Invalid("recurso requerido")
	}
	r, err := s.resources.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, fmt.Errorf("%w: recurso %s", domain.ErrNotFound, id)
	}
	return r, nil
}

func (s *Service) location(ctx context.Context, loc entity.Location) error {
	if err := loc.Validate(); err != nil {
		return domain.Invalid("%v", err)
	}
	id, ok := loc.ProjectID()
	if !ok {
		return nil
	}
	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if p == nil {
		return fmt.Errorf("%w: proyecto %s", domain.ErrNotFound, id)
	}
	return nil
}

// fail registra el rechazo en debug y devuelve el error sin tocarlo.
func (s *Service) fail(op string, actor entity.Actor, err error) error {
	s.log.Debug().Err(err).Str("op", op).Str("actor", actor.UserID).Msg("movimiento rechazado")
	return err
}

func (s *Service) committed(op string, actor entity.Actor, res *MovementResult) {
	ev := s.log.Info().
		Str("op", op).
		Str("actor", actor.UserID).
		Str("movement_id", res.MovementID).
		Str("unit_price", res.UnitPrice.String()).
		Int("entries", len(res.Entries))
	if len(res.Entries) > 0 {
		first := res.Entries[0]
		ev = ev.Str("resource_id", first.ResourceID).
			Str("type", string(first.Type)).
			Str("location", first.Location.String()).
			Str("quantity", first.Quantity.String())
	}
	if res.FIFO != nil {
		ev = ev.Str("fifo_cost", res.FIFO.Cost.String())
	}
	ev.Msg("movimiento registrado")
}

func joinNote(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " | ")
}

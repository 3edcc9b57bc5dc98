// Package storage elige el backend de persistencia según DB_DRIVER y arma el servicio sobre él.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/application/balance"
	"github.com/jhoicas/Inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/locking"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/memory"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/postgres"
	"github.com/jhoicas/Inventario-ledger/internal/infrastructure/sqlite"
	"github.com/jhoicas/Inventario-ledger/pkg/config"
	"github.com/jhoicas/Inventario-ledger/pkg/logger"
)

// Backend reúne el TxRunner y los repositorios de lectura de un mismo almacenamiento.
type Backend struct {
	Driver        string
	TxRunner      inventory.TxRunner
	Ledger        repository.LedgerRepository
	Batches       repository.BatchRepository
	Resources     repository.ResourceRepository
	Projects      repository.ProjectRepository
	GoodsReceipts repository.GoodsReceiptRepository

	closers []func()
}

// Open conecta el backend configurado y aplica el esquema. Close libera todo lo abierto.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger) (*Backend, error) {
	if log == nil {
		log = logger.Nop()
	}
	log = log.Component("storage")
	b := &Backend{Driver: cfg.DB.Driver}

	locker, err := b.openLocker(ctx, cfg, log)
	if err != nil {
		return nil, err
	}

	switch cfg.DB.Driver {
	case config.DriverPostgres:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			b.Close()
			return nil, fmt.Errorf("conexión a PostgreSQL: %w", err)
		}
		b.closers = append(b.closers, pool.Close)
		start := time.Now()
		if err := postgres.Migrate(ctx, pool); err != nil {
			b.Close()
			return nil, err
		}
		log.Info().Dur("took", time.Since(start)).Msg("esquema PostgreSQL aplicado")
		b.TxRunner = postgres.NewTxRunner(pool, cfg.Ledger.LockTimeout, locker)
		b.Ledger = postgres.NewLedgerRepository(pool)
		b.Batches = postgres.NewBatchRepository(pool)
		b.Resources = postgres.NewResourceRepository(pool)
		b.Projects = postgres.NewProjectRepository(pool)
		b.GoodsReceipts = postgres.NewGoodsReceiptRepository(pool)

	case config.DriverSQLite:
		store, err := sqlite.Open(ctx, cfg.DB.SQLitePath, cfg.Ledger.LockTimeout, locker)
		if err != nil {
			b.Close()
			return nil, err
		}
		b.closers = append(b.closers, func() { _ = store.Close() })
		log.Info().Str("path", cfg.DB.SQLitePath).Msg("esquema SQLite aplicado")
		b.TxRunner = store
		b.Ledger, b.Batches = store.Ledger(), store.Batches()
		b.Resources, b.Projects, b.GoodsReceipts = store.Resources(), store.Projects(), store.GoodsReceipts()

	case config.DriverMemory:
		if locker == nil {
			locker = locking.NewLocal(cfg.Ledger.LockTimeout)
		}
		store := memory.NewStore(locker)
		log.Warn().Msg("almacenamiento en memoria: los datos se pierden al reiniciar")
		b.TxRunner = store
		b.Ledger, b.Batches = store.Ledger(), store.Batches()
		b.Resources, b.Projects, b.GoodsReceipts = store.Resources(), store.Projects(), store.GoodsReceipts()

	default:
		b.Close()
		return nil, fmt.Errorf("DB_DRIVER desconocido: %q", cfg.DB.Driver)
	}

	log.Info().Str("driver", cfg.DB.Driver).Str("lock_backend", cfg.Ledger.LockBackend).Msg("almacenamiento listo")
	return b, nil
}

// openLocker devuelve nil con el backend local; cada store construye el suyo.
func (b *Backend) openLocker(ctx context.Context, cfg *config.Config, log *logger.Logger) (locking.Locker, error) {
	if cfg.Ledger.LockBackend != config.LockBackendRedis {
		return nil, nil
	}
	client, err := locking.NewRedisClient(ctx, cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}
	b.closers = append(b.closers, func() { _ = client.Close() })
	log.Info().Str("addr", cfg.Redis.Addr()).Msg("bloqueos por ubicación en Redis")
	return locking.NewRedis(client, cfg.Ledger.LockTimeout, 0), nil
}

// Service construye el servicio de inventario sobre el backend.
func (b *Backend) Service(log *logger.Logger) *inventory.Service {
	return inventory.NewService(b.TxRunner, b.Resources, b.Projects, b.GoodsReceipts, log)
}

// Calculator construye la calculadora de saldos; sus lecturas no toman locks.
func (b *Backend) Calculator() *balance.Calculator {
	return balance.NewCalculator(b.Ledger, b.Batches, b.Resources)
}

// Close libera conexiones en orden inverso a su apertura.
func (b *Backend) Close() {
	for i := len(b.closers) - 1; i >= 0; i-- {
		b.closers[i]()
	}
	b.closers = nil
}

package inventory

import (
	"context"

	"github.com/jhoicas/Inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/Inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta fn dentro de una unidad de trabajo atómica, pasando repositorios atados a ella.
// Antes de llamar a fn bloquea las claves de ubicación indicadas (en orden, con espera acotada);
// si fn devuelve error no queda ningún efecto persistido.
type TxRunner interface {
	Run(ctx context.Context, keys []entity.StockKey, fn func(
		ledgerRepo repository.LedgerRepository,
		batchRepo repository.BatchRepository,
	) error) error
}

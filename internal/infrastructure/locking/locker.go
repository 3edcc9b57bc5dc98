package locking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/jhoicas/Inventario-ledger/internal/domain"
	"golang.org/x/sync/semaphore"
)

// DefaultTimeout es la espera máxima por defecto para adquirir todas las claves.
const DefaultTimeout = 5 * time.Second

// Locker adquiere un conjunto de claves de ubicación de forma exclusiva.
// Agotar la espera devuelve domain.ErrConcurrencyConflict.
type Locker interface {
	Acquire(ctx context.Context, keys []string) (release func(), err error)
}

// Local bloquea claves dentro del proceso con un semáforo de peso 1 por clave.
type Local struct {
	timeout time.Duration

	mu   sync.Mutex
	sems map[string]*semaphore.Weighted
}

// NewLocal construye un Local; timeout <= 0 usa DefaultTimeout.
func NewLocal(timeout time.Duration) *Local {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Local{timeout: timeout, sems: make(map[string]*semaphore.Weighted)}
}

func (l *Local) sem(key string) *semaphore.Weighted {
	l.mu.Lock()
	defer l.mu.Unlock()
	s, ok := l.sems[key]
	if !ok {
		s = semaphore.NewWeighted(1)
		l.sems[key] = s
	}
	return s
}

// Acquire toma las claves en orden lexicográfico para evitar interbloqueos.
func (l *Local) Acquire(ctx context.Context, keys []string) (func(), error) {
	ordered := sortedUnique(keys)
	waitCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	held := make([]*semaphore.Weighted, 0, len(ordered))
	release := func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Release(1)
		}
	}
	for _, k := range ordered {
		s := l.sem(k)
		if err := s.Acquire(waitCtx, 1); err != nil {
			release()
			return nil, fmt.Errorf("%w: clave %s: %v", domain.ErrConcurrencyConflict, k, err)
		}
		held = append(held, s)
	}
	var once sync.Once
	return func() { once.Do(release) }, nil
}

func sortedUnique(keys []string) []string {
	out := make([]string, 0, len(keys))
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

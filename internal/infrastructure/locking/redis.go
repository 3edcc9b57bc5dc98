package locking

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/jhoicas/Inventario-ledger/internal/domain"
)

const redisKeyPrefix = "ledger:lock:"

// Solo borra la clave si sigue siendo nuestra.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// Redis bloquea claves entre procesos con SET NX PX; sirve cuando varias instancias comparten la base.
type Redis struct {
	client  redis.UniversalClient
	timeout time.Duration
	ttl     time.Duration
	retry   time.Duration
}

// NewRedis construye el locker. ttl acota cuánto puede retener una clave un proceso caído.
func NewRedis(client redis.UniversalClient, timeout, ttl time.Duration) *Redis {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &Redis{client: client, timeout: timeout, ttl: ttl, retry: 25 * time.Millisecond}
}

func (r *Redis) Acquire(ctx context.Context, keys []string) (func(), error) {
	ordered := sortedUnique(keys)
	token := uuid.NewString()
	deadline := time.Now().Add(r.timeout)

	held := make([]string, 0, len(ordered))
	release := func() {
		// Liberar aunque el contexto del llamador ya esté cancelado.
		relCtx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		for i := len(held) - 1; i >= 0; i-- {
			_ = releaseScript.Run(relCtx, r.client, []string{held[i]}, token).Err()
		}
	}

	for _, k := range ordered {
		key := redisKeyPrefix + k
		for {
			ok, err := r.client.SetNX(ctx, key, token, r.ttl).Result()
			if err != nil {
				release()
				return nil, fmt.Errorf("redis setnx %s: %w", key, err)
			}
			if ok {
				held = append(held, key)
				break
			}
			if time.Now().Add(r.retry).After(deadline) {
				release()
				return nil, fmt.Errorf("%w: clave %s ocupada", domain.ErrConcurrencyConflict, k)
			}
			select {
			case <-ctx.Done():
				release()
				return nil, fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, ctx.Err())
			case <-time.After(r.retry):
			}
		}
	}
	return release, nil
}

// NewRedisClient abre el cliente y verifica la conexión.
func NewRedisClient(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return client, nil
}

package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/rental-core/internal/application/transaction"
)

var (
	_ transaction.IdempotencyStore = (*Store)(nil)
	_ transaction.JobLocker        = (*Store)(nil)
)

const (
	idempotencyKeyPrefix = "idem:"
	lockKeyPrefix        = "lock:"
)

// releaseLockScript borra el lock solo si sigue siendo del dueño que lo tomó.
var releaseLockScript = goredis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

// Store llaves de idempotencia de pagos y lock distribuido de jobs sobre Redis.
type Store struct {
	client *goredis.Client
}

func NewStore(client *goredis.Client) *Store {
	return &Store{client: client}
}

// Claim reserva key durante ttl. false si ya estaba tomada.
func (s *Store) Claim(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, idempotencyKeyPrefix+key, 1, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("claim %s: %w", key, err)
	}
	return ok, nil
}

// Forget libera una llave reclamada, para que un reintento pueda volver a usarla.
func (s *Store) Forget(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, idempotencyKeyPrefix+key).Err(); err != nil {
		return fmt.Errorf("forget %s: %w", key, err)
	}
	return nil
}

func (s *Store) Acquire(ctx context.Context, name, owner string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKeyPrefix+name, owner, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("acquire lock %s: %w", name, err)
	}
	return ok, nil
}

// Release no toca un lock que expiró y tomó otro proceso.
func (s *Store) Release(ctx context.Context, name, owner string) error {
	if err := releaseLockScript.Run(ctx, s.client, []string{lockKeyPrefix + name}, owner).Err(); err != nil {
		return fmt.Errorf("release lock %s: %w", name, err)
	}
	return nil
}

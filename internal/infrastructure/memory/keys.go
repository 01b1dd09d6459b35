package memory

import (
	"context"
	"sync"
	"time"
)

// Keys llaves con expiración: idempotencia y locks de jobs en un solo proceso.
type Keys struct {
	mu   sync.Mutex
	keys map[string]entry
	now  func() time.Time
}

type entry struct {
	owner   string
	expires time.Time
}

func NewKeys() *Keys {
	return &Keys{keys: map[string]entry{}, now: time.Now}
}

func (k *Keys) setNX(key, owner string, ttl time.Duration) bool {
	k.mu.Lock()
	defer k.mu.Unlock()
	now := k.now()
	if e, ok := k.keys[key]; ok && now.Before(e.expires) {
		return false
	}
	k.keys[key] = entry{owner: owner, expires: now.Add(ttl)}
	return true
}

// Claim reserva la llave de idempotencia; false si ya fue usada dentro del TTL.
func (k *Keys) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	return k.setNX("idem:"+key, "", ttl), nil
}

// Forget libera una llave reclamada cuya operación falló.
func (k *Keys) Forget(_ context.Context, key string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	delete(k.keys, "idem:"+key)
	return nil
}

// Acquire toma el lock name para owner.
func (k *Keys) Acquire(_ context.Context, name, owner string, ttl time.Duration) (bool, error) {
	return k.setNX("lock:"+name, owner, ttl), nil
}

// Release suelta el lock solo si owner lo tiene.
func (k *Keys) Release(_ context.Context, name, owner string) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if e, ok := k.keys["lock:"+name]; ok && e.owner == owner {
		delete(k.keys, "lock:"+name)
	}
	return nil
}

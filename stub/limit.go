package stub

import (
	"context"
	"strings"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"

	gocacheStore "github.com/eko/gocache/store/go_cache/v4"
	gocache "github.com/patrickmn/go-cache"
)

// Manager wraps a typed in-memory cache.
type Manager[T any] struct {
	cache *cache.Cache[T]
}

func NewManager[T any]() *Manager[T] {
	client := gocache.New(5*time.Minute, 5*time.Minute)
	cacheStore := gocacheStore.NewGoCache(client)
	return &Manager[T]{cache.New[T](cacheStore)}
}

func (cacheManager *Manager[T]) SetWithExpiration(key string, value T, expiration time.Duration) error {
	timeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return cacheManager.cache.Set(timeout, key, value, store.WithExpiration(expiration))
}

func (cacheManager *Manager[T]) GetValue(key string) (value T, err error) {
	timeout, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	const errorMessage = "value not found"
	value, err = cacheManager.cache.Get(timeout, key)
	if err != nil && strings.Contains(err.Error(), errorMessage) {
		err = nil
		return
	}
	return
}

// limiter counts requests per key over a minute window.
type limiter struct {
	rpm     int
	manager *Manager[int]
}

func newLimiter(rpm int) *limiter {
	return &limiter{
		rpm:     rpm,
		manager: NewManager[int](),
	}
}

func (l *limiter) permit(key string) bool {
	count, err := l.manager.GetValue(key)
	if err != nil {
		// cache trouble should not block the stub
		return true
	}
	if count >= l.rpm {
		return false
	}
	_ = l.manager.SetWithExpiration(key, count+1, time.Minute)
	return true
}

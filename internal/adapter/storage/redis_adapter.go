package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/rl1809/event-pos/internal/core/domain"
)

const (
	cartKeyPrefix       = "cart:"
	commitLockKeyPrefix = "cart:lock:"
	summaryKey          = "dashboard:summary"

	defaultCartTTL       = 12 * time.Hour
	defaultCommitLockTTL = 30 * time.Second
	defaultSummaryTTL    = 30 * time.Second

	maxCartUpdateRetries = 100
)

// releaseLockScript deletes the lock only while it still holds the caller's token,
// so an expired lock taken over by another commit is left alone.
var releaseLockScript = redis.NewScript(`
if redis.call('GET', KEYS[1]) == ARGV[1] then
	return redis.call('DEL', KEYS[1])
end
return 0
`)

type RedisTTLs struct {
	Cart       time.Duration
	CommitLock time.Duration
	Summary    time.Duration
}

type RedisAdapter struct {
	client *redis.Client
	ttl    RedisTTLs
}

func NewRedisAdapter(client *redis.Client, ttl RedisTTLs) *RedisAdapter {
	if ttl.Cart <= 0 {
		ttl.Cart = defaultCartTTL
	}
	if ttl.CommitLock <= 0 {
		ttl.CommitLock = defaultCommitLockTTL
	}
	if ttl.Summary <= 0 {
		ttl.Summary = defaultSummaryTTL
	}
	return &RedisAdapter{client: client, ttl: ttl}
}

func (r *RedisAdapter) LoadCart(ctx context.Context, sessionID string) (*domain.Cart, error) {
	return getCart(ctx, r.client, cartKeyPrefix+sessionID)
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func getCart(ctx context.Context, c getter, key string) (*domain.Cart, error) {
	data, err := c.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var cart domain.Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return nil, err
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartItem{}
	}
	return &cart, nil
}

// SaveCart stores the cart and refreshes its TTL.
func (r *RedisAdapter) SaveCart(ctx context.Context, sessionID string, cart *domain.Cart) error {
	data, err := json.Marshal(cart)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, cartKeyPrefix+sessionID, data, r.ttl.Cart).Err()
}

// UpdateCart runs fn as an optimistic transaction over the cart and the commit
// lock. A concurrent write to either key aborts the EXEC and the update is
// retried from a fresh read, so a commit can never be overwritten by a cart
// that was loaded before it.
func (r *RedisAdapter) UpdateCart(ctx context.Context, sessionID string, fn func(*domain.Cart) error) (*domain.Cart, error) {
	cartKey := cartKeyPrefix + sessionID
	lockKey := commitLockKeyPrefix + sessionID

	var cart *domain.Cart
	txf := func(tx *redis.Tx) error {
		locked, err := tx.Exists(ctx, lockKey).Result()
		if err != nil {
			return err
		}
		if locked > 0 {
			return domain.ErrCommitInProgress
		}

		cart, err = getCart(ctx, tx, cartKey)
		if err != nil {
			return err
		}
		if cart == nil {
			cart = domain.NewCart()
		}
		if err := fn(cart); err != nil {
			return err
		}

		data, err := json.Marshal(cart)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, cartKey, data, r.ttl.Cart)
			return nil
		})
		return err
	}

	for i := 0; i < maxCartUpdateRetries; i++ {
		err := r.client.Watch(ctx, txf, cartKey, lockKey)
		if err == nil {
			return cart, nil
		}
		if !errors.Is(err, redis.TxFailedErr) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("update cart %s: %w", sessionID, redis.TxFailedErr)
}

func (r *RedisAdapter) AcquireCommitLock(ctx context.Context, sessionID, token string) (bool, error) {
	return r.client.SetNX(ctx, commitLockKeyPrefix+sessionID, token, r.ttl.CommitLock).Result()
}

func (r *RedisAdapter) ReleaseCommitLock(ctx context.Context, sessionID, token string) error {
	return releaseLockScript.Run(ctx, r.client, []string{commitLockKeyPrefix + sessionID}, token).Err()
}

func (r *RedisAdapter) CommitInProgress(ctx context.Context, sessionID string) (bool, error) {
	n, err := r.client.Exists(ctx, commitLockKeyPrefix+sessionID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func (r *RedisAdapter) GetSummary(ctx context.Context) (*domain.SalesSummary, error) {
	data, err := r.client.Get(ctx, summaryKey).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var summary domain.SalesSummary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, err
	}
	return &summary, nil
}

func (r *RedisAdapter) SetSummary(ctx context.Context, summary *domain.SalesSummary) error {
	data, err := json.Marshal(summary)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, summaryKey, data, r.ttl.Summary).Err()
}

func (r *RedisAdapter) InvalidateSummary(ctx context.Context) error {
	return r.client.Del(ctx, summaryKey).Err()
}

// redis - общее хранилище сессии в Redis (driver=redis): сессию видят
// все экземпляры клиента, подключённые к одному серверу.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix = "leiturista:"
	lockPoll      = 50 * time.Millisecond
)

// Снимает блокировку, только если она всё ещё наша.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store хранит слоты полями одного Redis Hash <prefix>session.
type Store struct {
	rdb    *redis.Client
	prefix string
	owned  bool
}

// New создаёт клиент из URL (например, redis://:pass@host:6379/0).
// Если prefix пустой - используется "leiturista:".
func New(ctx context.Context, redisURL, prefix string) (*Store, error) {
	const op = "tokenstore.redis.New"

	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	rdb := redis.NewClient(opt)

	// Fail-fast на старте.
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("%s: ping: %w", op, err)
	}

	s := NewFromClient(rdb, prefix)
	s.owned = true

	return s, nil
}

// NewFromClient оборачивает готовый клиент; Close его не закрывает.
func NewFromClient(rdb *redis.Client, prefix string) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}

	return &Store{rdb: rdb, prefix: prefix}
}

func (s *Store) key() string { return s.prefix + "session" }

func (s *Store) Get(ctx context.Context, key string) (string, bool, error) {
	const op = "tokenstore.redis.Get"

	v, err := s.rdb.HGet(ctx, s.key(), key).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("%s: %w", op, err)
	}

	return v, true, nil
}

// Set - один HSET со всеми полями, Redis применяет его атомарно.
func (s *Store) Set(ctx context.Context, kv map[string]string) error {
	const op = "tokenstore.redis.Set"

	if len(kv) == 0 {
		return nil
	}

	if err := s.rdb.HSet(ctx, s.key(), kv).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

func (s *Store) Delete(ctx context.Context, keys ...string) error {
	const op = "tokenstore.redis.Delete"

	if len(keys) == 0 {
		return nil
	}

	if err := s.rdb.HDel(ctx, s.key(), keys...).Err(); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// Lock - SET NX PX на <prefix>lock:<name>. Занятая блокировка опрашивается,
// пока жив ctx; по истечении ttl Redis снимает её сам.
func (s *Store) Lock(ctx context.Context, name string, ttl time.Duration) (func(), error) {
	const op = "tokenstore.redis.Lock"

	key := s.prefix + "lock:" + name
	val := uuid.NewString()

	tick := time.NewTicker(lockPoll)
	defer tick.Stop()

	for {
		ok, err := s.rdb.SetNX(ctx, key, val, ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if ok {
			return func() {
				_ = unlockScript.Run(context.WithoutCancel(ctx), s.rdb, []string{key}, val).Err()
			}, nil
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%s: %w", op, ctx.Err())
		case <-tick.C:
		}
	}
}

func (s *Store) Close() error {
	if !s.owned {
		return nil
	}

	return s.rdb.Close()
}

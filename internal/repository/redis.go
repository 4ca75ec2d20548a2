package repository

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/darkodi/shorturl/internal/model"
)

// insertScript sets both directions of a mapping only if neither key exists.
// Returns 1 on insert, 0 on conflict.
var insertScript = redis.NewScript(`
if redis.call("EXISTS", KEYS[1]) == 1 or redis.call("EXISTS", KEYS[2]) == 1 then
	return 0
end
redis.call("SET", KEYS[1], ARGV[1])
redis.call("SET", KEYS[2], ARGV[2])
return 1
`)

// RedisStore keeps counters as INCR keys and each mapping as a pair of
// string keys (url -> id, id -> url).
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to the redis:// or rediss:// uri and pings it.
func NewRedisStore(ctx context.Context, uri string) (*RedisStore, error) {
	opts, err := redis.ParseURL(uri)
	if err != nil {
		return nil, storeErr("open", err)
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, storeErr("ping", err)
	}

	return &RedisStore{client: client}, nil
}

func counterKey(name string) string { return "counter:" + name }
func urlKey(originalURL string) string { return "shorturl:url:" + originalURL }
func idKey(shortID int64) string { return "shorturl:id:" + strconv.FormatInt(shortID, 10) }

func (s *RedisStore) Allocate(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, ErrEmptyCounter
	}

	value, err := s.client.Incr(ctx, counterKey(name)).Result()
	if err != nil {
		return 0, storeErr("allocate", err)
	}
	return value, nil
}

func (s *RedisStore) FindByURL(ctx context.Context, originalURL string) (*model.URLMapping, error) {
	shortID, err := s.client.Get(ctx, urlKey(originalURL)).Int64()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find", err)
	}
	return &model.URLMapping{ShortID: shortID, OriginalURL: originalURL}, nil
}

func (s *RedisStore) FindByID(ctx context.Context, shortID int64) (*model.URLMapping, error) {
	originalURL, err := s.client.Get(ctx, idKey(shortID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find", err)
	}
	return &model.URLMapping{ShortID: shortID, OriginalURL: originalURL}, nil
}

func (s *RedisStore) Insert(ctx context.Context, originalURL string, shortID int64) (*model.URLMapping, error) {
	keys := []string{urlKey(originalURL), idKey(shortID)}
	inserted, err := insertScript.Run(ctx, s.client, keys, shortID, originalURL).Int()
	if err != nil {
		return nil, storeErr("insert", err)
	}
	if inserted == 0 {
		return nil, ErrDuplicateKey
	}
	return &model.URLMapping{ShortID: shortID, OriginalURL: originalURL}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

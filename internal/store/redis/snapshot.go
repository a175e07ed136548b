// Package redis persists the cost-basis book so a restart does not lose
// the entry prices that stop-loss and take-profit checks depend on.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"rotorbot/internal/model"
)

const bookKey = "rotorbot:book"

// Config configures the snapshot store.
type Config struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// commands is the slice of the Redis API the store uses. *goredis.Client
// satisfies it.
type commands interface {
	Ping(ctx context.Context) *goredis.StatusCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *goredis.StatusCmd
	Get(ctx context.Context, key string) *goredis.StringCmd
}

// Store saves and restores book snapshots.
type Store struct {
	client commands
	rdb    *goredis.Client
}

// Client returns the underlying Redis client for health checks. Nil when the
// store was built over a fake.
func (s *Store) Client() *goredis.Client { return s.rdb }

// New connects to Redis and pings the server.
func New(cfg Config) (*Store, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Store{client: client, rdb: client}, nil
}

// SaveBook overwrites the stored snapshot. Snapshots do not expire.
func (s *Store) SaveBook(ctx context.Context, book model.Book) error {
	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}
	if err := s.client.Set(ctx, bookKey, data, 0).Err(); err != nil {
		return fmt.Errorf("save book: %w", err)
	}
	return nil
}

// LoadBook restores the last snapshot. The second return is false when no
// snapshot exists.
func (s *Store) LoadBook(ctx context.Context) (model.Book, bool, error) {
	data, err := s.client.Get(ctx, bookKey).Bytes()
	if err == goredis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("load book: %w", err)
	}

	var book model.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, false, fmt.Errorf("decode book: %w", err)
	}
	return book, true, nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	HBooks       string = "books"
	KBooksSeqKey string = "books:seq"
)

// Ensure *redisBookStore implements BookStore.
var _ BookStore = (*redisBookStore)(nil)

type redisBookStore struct {
	logger *zap.Logger
	client *redis.Client
}

// NewRedisBookStore provides an instance of redis-based book store.
func NewRedisBookStore(logger *zap.Logger, client *redis.Client) BookStore {
	return &redisBookStore{
		logger: logger,
		client: client,
	}
}

// GetRedisClient provides a ready to use redis client.
func GetRedisClient(config *Config) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", config.Redis.Host, config.Redis.Port),
		DialTimeout:  config.Redis.DialTimeout,
		ReadTimeout:  config.Redis.ReadTimeout,
		WriteTimeout: config.Redis.WriteTimeout,
		PoolSize:     config.Redis.PoolSize,
		PoolTimeout:  config.Redis.PoolTimeout,
		Password:     config.Redis.Password,
		Username:     config.Redis.Username,
		DB:           config.Redis.DatabaseIndex,
	})

	// test connection.
	if pong, err := client.Ping(context.Background()).Result(); pong != "PONG" || err != nil {
		return client, fmt.Errorf("test connection failed: %v", err)
	}
	return client, nil
}

// FindAll retrieves all books stored in the redis hash ordered by id.
func (rs *redisBookStore) FindAll(ctx context.Context) ([]Book, error) {
	values, err := rs.client.HVals(ctx, HBooks).Result()
	if err != nil {
		return nil, fmt.Errorf("repo: redis hvals: %w", err)
	}
	books := make([]Book, 0, len(values))
	for _, bookJSONString := range values {
		var book Book
		if err = codec.Unmarshal([]byte(bookJSONString), &book); err != nil {
			return nil, fmt.Errorf("repo: redis decode book: %w", err)
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool {
		return books[i].BookID() < books[j].BookID()
	})
	return books, nil
}

// FindByID retrieves a book record based on its ID.
func (rs *redisBookStore) FindByID(ctx context.Context, id int64) (Book, error) {
	var book Book
	bookJSONString, err := rs.client.HGet(ctx, HBooks, strconv.FormatInt(id, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return book, ErrBookNotFound
	}
	if err != nil {
		return book, fmt.Errorf("repo: redis hget: %w", err)
	}
	err = codec.Unmarshal([]byte(bookJSONString), &book)
	return book, err
}

// Save inserts a new book with an id taken from the redis counter when
// the book has no id. Otherwise it replaces the record under its id.
func (rs *redisBookStore) Save(ctx context.Context, book Book) (Book, error) {
	if book.ID == nil {
		id, err := rs.client.Incr(ctx, KBooksSeqKey).Result()
		if err != nil {
			return book, fmt.Errorf("repo: redis next id: %w", err)
		}
		book.ID = Int64Ptr(id)
	}
	bookBytes, err := codec.Marshal(book)
	if err != nil {
		return book, err
	}
	if err = rs.client.HSet(ctx, HBooks, strconv.FormatInt(*book.ID, 10), bookBytes).Err(); err != nil {
		return book, fmt.Errorf("repo: redis hset: %w", err)
	}
	return book, nil
}

// DeleteByID removes a book record based on its ID.
func (rs *redisBookStore) DeleteByID(ctx context.Context, id int64) error {
	n, err := rs.client.HDel(ctx, HBooks, strconv.FormatInt(id, 10)).Result()
	if err != nil {
		return fmt.Errorf("repo: redis hdel: %w", err)
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

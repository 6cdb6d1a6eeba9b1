package main

import (
	"context"
	"net"
	"testing"

	"github.com/ory/dockertest/v3"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// startRedisDockerContainer runs a disposable redis server. The test
// is skipped when no docker daemon can be reached.
func startRedisDockerContainer(t *testing.T) (string, func()) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	pool, err := dockertest.NewPool("")
	if err != nil {
		t.Skipf("Failed to start Dockertest: %+v", err)
	}

	err = pool.Client.Ping()
	if err != nil {
		t.Skipf("Could not connect to Docker: %+v", err)
	}

	resource, err := pool.Run("redis", "7.0.10-alpine", nil)
	if err != nil {
		t.Fatalf("Failed to start redis: %+v", err)
	}

	// build address the container is listening on
	addr := net.JoinHostPort("localhost", resource.GetPort("6379/tcp"))

	// ensure to wait for the container to be ready
	err = pool.Retry(func() error {
		client := redis.NewClient(&redis.Options{Addr: addr})
		defer client.Close()
		return client.Ping(context.Background()).Err()
	})
	if err != nil {
		t.Fatalf("Failed to ping Redis: %+v", err)
	}

	destroyFunc := func() {
		if err := pool.Purge(resource); err != nil {
			t.Logf("Failed to purge resource: %+v", err)
		}
	}

	return addr, destroyFunc
}

func TestRedisStore(t *testing.T) {
	addr, destroyFunc := startRedisDockerContainer(t)
	defer destroyFunc()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()
	rs := NewRedisBookStore(zap.NewNop(), client)
	ctx := context.Background()

	var habits Book

	t.Run("Save New Book", func(t *testing.T) {
		book, err := rs.Save(ctx, Book{Name: "Habits", Summary: "how to build better habits", Rating: IntPtr(5)})
		require.NoError(t, err)
		require.NotNil(t, book.ID)
		assert.Equal(t, int64(1), *book.ID)
		habits = book
	})

	t.Run("Find Existent Book", func(t *testing.T) {
		book, err := rs.FindByID(ctx, 1)
		assert.NoError(t, err)
		assert.Equal(t, habits, book)
	})

	t.Run("Find NonExistent Book", func(t *testing.T) {
		book, err := rs.FindByID(ctx, 999)
		assert.Equal(t, ErrBookNotFound, err)
		assert.Equal(t, Book{}, book)
	})

	t.Run("Save Existent Book", func(t *testing.T) {
		habits.Rating = IntPtr(2)
		book, err := rs.Save(ctx, habits)
		assert.NoError(t, err)
		assert.Equal(t, habits, book)
		book, err = rs.FindByID(ctx, *habits.ID)
		assert.NoError(t, err)
		assert.Equal(t, 2, *book.Rating)
	})

	t.Run("Find All Books In Id Order", func(t *testing.T) {
		for _, name := range []string{"Thinking", "algorithms"} {
			_, err := rs.Save(ctx, Book{Name: name, Rating: IntPtr(4)})
			require.NoError(t, err)
		}
		books, err := rs.FindAll(ctx)
		assert.NoError(t, err)
		require.Len(t, books, 3)
		assert.Equal(t, "algorithms", books[2].Name)
		assert.Equal(t, int64(3), *books[2].ID)
	})

	t.Run("Delete Existent Book", func(t *testing.T) {
		err := rs.DeleteByID(ctx, *habits.ID)
		assert.NoError(t, err)
		_, err = rs.FindByID(ctx, *habits.ID)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("Delete NonExistent Book", func(t *testing.T) {
		err := rs.DeleteByID(ctx, *habits.ID)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("Queue Push And Pop", func(t *testing.T) {
		q := NewRedisQueue(client)
		require.NoError(t, q.Push(ctx, UpdateQueue, habits))
		qid, book, err := q.Pop(ctx, CreateQueue, UpdateQueue, DeleteQueue)
		assert.NoError(t, err)
		assert.Equal(t, UpdateQueue, qid)
		assert.Equal(t, habits, book)
	})
}

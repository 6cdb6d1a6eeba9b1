package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// newTestBoltStore returns a new bolt store in a temporary file
// which is closed and removed at the end of the test.
func newTestBoltStore(t *testing.T) *boltBookStore {
	t.Helper()
	f, err := os.CreateTemp(t.TempDir(), "tmp.bolt.db-")
	require.NoError(t, err)
	f.Close()
	config := &BoltDBConfig{
		FilePath:   f.Name(),
		Timeout:    5 * time.Second,
		BucketName: "test.books",
	}

	client, err := GetBoltDBClient(config)
	require.NoError(t, err, "failed in creating a test bolt store")

	bs := &boltBookStore{
		logger: zap.NewNop(),
		client: client,
		config: config,
	}
	t.Cleanup(func() {
		bs.Close()
	})
	return bs
}

// Ensure bolt store assigns increasing ids and keeps the fields.
func TestBoltStore_SaveNewBook(t *testing.T) {
	bs := newTestBoltStore(t)

	book, err := bs.Save(context.TODO(), Book{Name: "Habits", Summary: "how to build better habits", Rating: IntPtr(5)})
	require.NoError(t, err)
	require.NotNil(t, book.ID)
	assert.Equal(t, int64(1), *book.ID)

	second, err := bs.Save(context.TODO(), Book{Name: "Thinking", Rating: IntPtr(4)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), *second.ID)

	got, err := bs.FindByID(context.TODO(), 1)
	assert.NoError(t, err)
	assert.Equal(t, book, got)
}

// Ensure saving a book with an id replaces the stored record.
func TestBoltStore_SaveExistingBook(t *testing.T) {
	bs := newTestBoltStore(t)

	book, err := bs.Save(context.TODO(), Book{Name: "Habits", Rating: IntPtr(5)})
	require.NoError(t, err)

	book.Name = "updated"
	book.Rating = IntPtr(1)
	_, err = bs.Save(context.TODO(), book)
	require.NoError(t, err)

	got, err := bs.FindByID(context.TODO(), *book.ID)
	assert.NoError(t, err)
	assert.Equal(t, "updated", got.Name)
	assert.Equal(t, 1, *got.Rating)

	books, err := bs.FindAll(context.TODO())
	assert.NoError(t, err)
	assert.Len(t, books, 1)
}

// Ensure an explicit id ahead of the bucket sequence does not collide with later inserts.
func TestBoltStore_SaveWithExplicitID(t *testing.T) {
	bs := newTestBoltStore(t)

	_, err := bs.Save(context.TODO(), Book{ID: Int64Ptr(10), Name: "replicated", Rating: IntPtr(3)})
	require.NoError(t, err)

	book, err := bs.Save(context.TODO(), Book{Name: "fresh", Rating: IntPtr(3)})
	require.NoError(t, err)
	assert.Equal(t, int64(11), *book.ID)
}

func TestBoltStore_FindAll(t *testing.T) {
	bs := newTestBoltStore(t)

	books, err := bs.FindAll(context.TODO())
	assert.NoError(t, err)
	assert.NotNil(t, books)
	assert.Empty(t, books)

	for _, name := range []string{"Habits", "Thinking", "algorithms"} {
		_, err = bs.Save(context.TODO(), Book{Name: name, Rating: IntPtr(5)})
		require.NoError(t, err)
	}

	books, err = bs.FindAll(context.TODO())
	assert.NoError(t, err)
	require.Len(t, books, 3)
	assert.Equal(t, "Habits", books[0].Name)
	assert.Equal(t, "algorithms", books[2].Name)
	assert.Equal(t, int64(3), *books[2].ID)
}

func TestBoltStore_FindByID_NotFound(t *testing.T) {
	bs := newTestBoltStore(t)

	book, err := bs.FindByID(context.TODO(), 999)
	assert.Equal(t, ErrBookNotFound, err)
	assert.Equal(t, Book{}, book)
}

func TestBoltStore_DeleteByID(t *testing.T) {
	bs := newTestBoltStore(t)

	book, err := bs.Save(context.TODO(), Book{Name: "Habits", Rating: IntPtr(5)})
	require.NoError(t, err)

	t.Run("existent book", func(t *testing.T) {
		assert.NoError(t, bs.DeleteByID(context.TODO(), *book.ID))
		_, err := bs.FindByID(context.TODO(), *book.ID)
		assert.Equal(t, ErrBookNotFound, err)
	})

	t.Run("nonexistent book", func(t *testing.T) {
		assert.Equal(t, ErrBookNotFound, bs.DeleteByID(context.TODO(), *book.ID))
	})
}

// Ensure the database folder is created when it does not exist yet.
func TestGetBoltDBClient_CreatesFolder(t *testing.T) {
	config := &BoltDBConfig{
		FilePath:   filepath.Join(t.TempDir(), "data", "nested", "books.db"),
		Timeout:    time.Second,
		BucketName: "books",
	}

	client, err := GetBoltDBClient(config)
	require.NoError(t, err)
	defer client.Close()

	_, err = os.Stat(config.FilePath)
	assert.NoError(t, err)

	bs := NewBoltBookStore(zap.NewNop(), config, client)
	book, err := bs.Save(context.TODO(), Book{Name: "Habits", Rating: IntPtr(5)})
	assert.NoError(t, err)
	assert.Equal(t, int64(1), *book.ID)
}

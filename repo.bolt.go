package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"

	"github.com/boltdb/bolt"
	"go.uber.org/zap"
)

// Ensure *boltBookStore implements BookStore.
var _ BookStore = (*boltBookStore)(nil)

type boltBookStore struct {
	logger *zap.Logger
	client *bolt.DB
	config *BoltDBConfig
}

// GetBoltDBClient setup the database folder, file and bucket then provides a ready to use client.
func GetBoltDBClient(config *BoltDBConfig) (*bolt.DB, error) {
	if err := os.MkdirAll(filepath.Dir(config.FilePath), 0o700); err != nil {
		return nil, fmt.Errorf("failed to create the database folder, %v", err)
	}
	db, err := bolt.Open(config.FilePath, 0o600, &bolt.Options{Timeout: config.Timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open the database, %v", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		if _, errB := tx.CreateBucketIfNotExists([]byte(config.BucketName)); errB != nil {
			return fmt.Errorf("failed to create %s bucket: %v", config.BucketName, errB)
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up bucket: %v", err)
	}
	return db, nil
}

// NewBoltBookStore provides an instance of bolt-based book store.
func NewBoltBookStore(logger *zap.Logger, boltConfig *BoltDBConfig, client *bolt.DB) BookStore {
	return &boltBookStore{
		logger: logger,
		client: client,
		config: boltConfig,
	}
}

// Close shuts down the bolt-based book store.
func (bs *boltBookStore) Close() error {
	return bs.client.Close()
}

// itob returns an 8-byte big endian representation of v.
// Keys sort in the bucket in the same order as the ids.
func itob(v int64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, uint64(v))
	return b
}

// FindAll retrieves all books stored in the bucket in ids order.
func (bs *boltBookStore) FindAll(_ context.Context) ([]Book, error) {
	tx, err := bs.client.Begin(false)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	c := tx.Bucket([]byte(bs.config.BucketName)).Cursor()

	books := []Book{}
	for k, v := c.First(); k != nil; k, v = c.Next() {
		var book Book
		if err = codec.Unmarshal(v, &book); err != nil {
			return nil, fmt.Errorf("repo: bolt decode book: %w", err)
		}
		books = append(books, book)
	}
	return books, nil
}

// FindByID retrieves a book record based on its ID.
func (bs *boltBookStore) FindByID(_ context.Context, id int64) (Book, error) {
	var book Book
	tx, err := bs.client.Begin(false)
	if err != nil {
		return book, err
	}
	defer tx.Rollback()

	result := tx.Bucket([]byte(bs.config.BucketName)).Get(itob(id))
	if result == nil {
		return book, ErrBookNotFound
	}
	err = codec.Unmarshal(result, &book)
	return book, err
}

// Save inserts the book with the next bucket sequence as id when the book
// has none, else it writes the record under its own id. An explicit id
// larger than the bucket sequence moves the sequence forward.
func (bs *boltBookStore) Save(_ context.Context, book Book) (Book, error) {
	err := bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if book.ID == nil {
			seq, err := b.NextSequence()
			if err != nil {
				return err
			}
			book.ID = Int64Ptr(int64(seq))
		} else if uint64(*book.ID) > b.Sequence() {
			if err := b.SetSequence(uint64(*book.ID)); err != nil {
				return err
			}
		}
		bookBytes, err := codec.Marshal(book)
		if err != nil {
			return err
		}
		return b.Put(itob(*book.ID), bookBytes)
	})
	return book, err
}

// DeleteByID removes a book record based on its ID.
func (bs *boltBookStore) DeleteByID(_ context.Context, id int64) error {
	return bs.client.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bs.config.BucketName))
		if b.Get(itob(id)) == nil {
			return ErrBookNotFound
		}
		return b.Delete(itob(id))
	})
}

package main

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// BookServiceProvider exposes the book records operations used by the api handlers.
type BookServiceProvider interface {
	ListBooks(ctx context.Context) ([]Book, error)
	GetBook(ctx context.Context, id int64) (Book, error)
	CreateBook(ctx context.Context, input Book) (Book, error)
	UpdateBook(ctx context.Context, input Book) (Book, error)
	DeleteBook(ctx context.Context, id int64) error
}

// BookService holds no records. It validates inputs and forwards reads
// and writes to the store. When a queue is set, successful writes are
// published so a consumer can replicate them.
type BookService struct {
	logger *zap.Logger
	config *Config
	store  BookStore
	queue  Queuer
}

func NewBookService(logger *zap.Logger, config *Config, store BookStore, queue Queuer) BookServiceProvider {
	return &BookService{
		logger: logger,
		config: config,
		store:  store,
		queue:  queue,
	}
}

// ListBooks returns all books in the store iteration order.
func (bs *BookService) ListBooks(ctx context.Context) ([]Book, error) {
	books, err := bs.store.FindAll(ctx)
	if err != nil {
		return nil, err
	}
	if books == nil {
		books = []Book{}
	}
	return books, nil
}

func (bs *BookService) GetBook(ctx context.Context, id int64) (Book, error) {
	return bs.store.FindByID(ctx, id)
}

// CreateBook validates the input then lets the store assign a fresh id.
func (bs *BookService) CreateBook(ctx context.Context, input Book) (Book, error) {
	if err := ValidateBook(&input); err != nil {
		return Book{}, err
	}
	input.ID = nil
	book, err := bs.store.Save(ctx, input)
	if err != nil {
		return Book{}, err
	}
	bs.publish(ctx, CreateQueue, book)
	return book, nil
}

// UpdateBook overwrites name, summary and rating of an existing book.
func (bs *BookService) UpdateBook(ctx context.Context, input Book) (Book, error) {
	if input.ID == nil {
		return Book{}, ErrBookIDRequired
	}
	if err := ValidateBook(&input); err != nil {
		return Book{}, err
	}

	existing, err := bs.store.FindByID(ctx, *input.ID)
	if err != nil {
		return Book{}, err
	}

	existing.Name = input.Name
	existing.Summary = input.Summary
	existing.Rating = input.Rating

	book, err := bs.store.Save(ctx, existing)
	if err != nil {
		return Book{}, err
	}
	bs.publish(ctx, UpdateQueue, book)
	return book, nil
}

// DeleteBook removes an existing book. The existence check and the
// removal are two separate store calls.
func (bs *BookService) DeleteBook(ctx context.Context, id int64) error {
	if _, err := bs.store.FindByID(ctx, id); err != nil {
		return err
	}
	if err := bs.store.DeleteByID(ctx, id); err != nil {
		if errors.Is(err, ErrBookNotFound) {
			return err
		}
		return fmt.Errorf("service: delete book %d: %w", id, err)
	}
	bs.publish(ctx, DeleteQueue, Book{ID: Int64Ptr(id)})
	return nil
}

func (bs *BookService) publish(ctx context.Context, qid string, book Book) {
	if bs.queue == nil {
		return
	}
	if err := bs.queue.Push(ctx, qid, book); err != nil {
		bs.logger.Error("service: failed to push book to queue", zap.String("qid", qid), zap.Int64("book.id", book.BookID()), zap.Error(err))
	}
}

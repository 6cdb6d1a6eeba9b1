package main

import (
	"context"
	"errors"
)

var (
	ErrBookNotFound   = errors.New("book not found")
	ErrBookIDRequired = errors.New("book id is required")
	ErrInvalidBookID  = errors.New("book id must be a positive integer")
)

// Book represents a book record. The ID is assigned by the
// store on creation and never changes afterwards.
type Book struct {
	ID      *int64 `json:"bookId" db:"book_id"`
	Name    string `json:"name" db:"name" validate:"required"`
	Summary string `json:"summary" db:"summary"`
	Rating  *int   `json:"rating" db:"rating" validate:"required"`
}

// BookStore defines the persistence operations needed on book records.
// Save inserts the book and assigns a fresh id when the ID is nil, else it
// replaces (or creates) the record under that id.
type BookStore interface {
	FindAll(ctx context.Context) ([]Book, error)
	FindByID(ctx context.Context, id int64) (Book, error)
	Save(ctx context.Context, book Book) (Book, error)
	DeleteByID(ctx context.Context, id int64) error
}

// BookID returns the id value or zero when unset.
func (b Book) BookID() int64 {
	if b.ID == nil {
		return 0
	}
	return *b.ID
}

// Int64Ptr and IntPtr are small helpers to build books.
func Int64Ptr(v int64) *int64 { return &v }

func IntPtr(v int) *int { return &v }

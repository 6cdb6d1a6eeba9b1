package main

import (
	"context"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookStore struct {
	FindAllFunc    func(ctx context.Context) ([]Book, error)
	FindByIDFunc   func(ctx context.Context, id int64) (Book, error)
	SaveFunc       func(ctx context.Context, book Book) (Book, error)
	DeleteByIDFunc func(ctx context.Context, id int64) error
}

// FindAll mocks the behavior of retrieving all books by the store.
func (m *MockBookStore) FindAll(ctx context.Context) ([]Book, error) {
	return m.FindAllFunc(ctx)
}

// FindByID mocks the behavior of retrieving a book by the store.
func (m *MockBookStore) FindByID(ctx context.Context, id int64) (Book, error) {
	return m.FindByIDFunc(ctx, id)
}

// Save mocks the behavior of inserting or updating a book by the store.
func (m *MockBookStore) Save(ctx context.Context, book Book) (Book, error) {
	return m.SaveFunc(ctx, book)
}

// DeleteByID mocks the behavior of deleting a book by the store.
func (m *MockBookStore) DeleteByID(ctx context.Context, id int64) error {
	return m.DeleteByIDFunc(ctx, id)
}

type pushed struct {
	qid  string
	book Book
}

// MockQueue records pushed books and serves popped ones from a channel.
type MockQueue struct {
	PushFunc func(ctx context.Context, qid string, book Book) error
	Pushed   []pushed
	Events   chan pushed
}

func (mq *MockQueue) Push(ctx context.Context, qid string, book Book) error {
	mq.Pushed = append(mq.Pushed, pushed{qid, book})
	if mq.PushFunc != nil {
		return mq.PushFunc(ctx, qid, book)
	}
	return nil
}

func (mq *MockQueue) Pop(ctx context.Context, _ ...string) (string, Book, error) {
	select {
	case <-ctx.Done():
		return "", Book{}, ctx.Err()
	case e := <-mq.Events:
		return e.qid, e.book, nil
	}
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDHandler.
type MockUIDHandler struct {
	MockedUID string
	Valid     bool
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string, valid bool) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id, Valid: valid}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}

// IsValid mocks IsValid behavior by providing configured status.
func (muid *MockUIDHandler) IsValid(_, _ string) bool {
	return muid.Valid
}

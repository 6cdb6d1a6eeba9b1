package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres" // dialect registration
	"github.com/jackc/pgx/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // database/sql driver
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

const (
	dialectPostgres = "postgres"

	colBookID  = "book_id"
	colName    = "name"
	colSummary = "summary"
	colRating  = "rating"
)

// Ensure *postgresBookStore implements BookStore.
var _ BookStore = (*postgresBookStore)(nil)

type postgresBookStore struct {
	logger  *zap.Logger
	db      *sqlx.DB
	table   string
	builder goqu.DialectWrapper
}

// GetPostgresClient opens a pool of connections to the database
// and checks it is reachable before handing it over.
func GetPostgresClient(config *PostgresConfig) (*sqlx.DB, error) {
	db, err := sqlx.Open("pgx", config.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open the database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err = db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("test connection failed: %v", err)
	}

	db.SetMaxOpenConns(config.MaxOpenConns)
	db.SetMaxIdleConns(config.MaxIdleConns)
	db.SetConnMaxIdleTime(config.ConnMaxIdleTime)
	db.SetConnMaxLifetime(config.ConnMaxLifetime)
	return db, nil
}

// NewPostgresBookStore provides an instance of postgres-based book store.
func NewPostgresBookStore(logger *zap.Logger, db *sqlx.DB, table string) BookStore {
	return &postgresBookStore{
		logger:  logger,
		db:      db,
		table:   table,
		builder: goqu.Dialect(dialectPostgres),
	}
}

// Migrate creates the books table when it does not exist yet.
func (ps *postgresBookStore) Migrate(ctx context.Context) error {
	table := pgx.Identifier{ps.table}.Sanitize()
	query := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	book_id BIGSERIAL PRIMARY KEY,
	name TEXT NOT NULL,
	summary TEXT NOT NULL DEFAULT '',
	rating INT NOT NULL
)`, table)
	if _, err := ps.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("repo: postgres migrate %s: %w", ps.table, err)
	}
	return nil
}

// Close releases the underlying connections pool.
func (ps *postgresBookStore) Close() error {
	return ps.db.Close()
}

// FindAll retrieves all books ordered by id.
func (ps *postgresBookStore) FindAll(ctx context.Context) ([]Book, error) {
	query, _, err := ps.builder.
		From(ps.table).
		Select(colBookID, colName, colSummary, colRating).
		Order(goqu.I(colBookID).Asc()).
		ToSQL()
	if err != nil {
		return nil, fmt.Errorf("repo: postgres build select: %w", err)
	}

	books := []Book{}
	if err = ps.db.SelectContext(ctx, &books, query); err != nil {
		return nil, fmt.Errorf("repo: postgres select books: %w", err)
	}
	return books, nil
}

// FindByID retrieves a book record based on its ID.
func (ps *postgresBookStore) FindByID(ctx context.Context, id int64) (Book, error) {
	var book Book
	query, _, err := ps.builder.
		From(ps.table).
		Select(colBookID, colName, colSummary, colRating).
		Where(goqu.C(colBookID).Eq(id)).
		ToSQL()
	if err != nil {
		return book, fmt.Errorf("repo: postgres build select: %w", err)
	}

	err = ps.db.GetContext(ctx, &book, query)
	if errors.Is(err, sql.ErrNoRows) {
		return Book{}, ErrBookNotFound
	}
	if err != nil {
		return Book{}, fmt.Errorf("repo: postgres select book %d: %w", id, err)
	}
	return book, nil
}

// Save inserts a book and reads back the id generated by the database
// when the book has no id. Otherwise it upserts the row under its id.
func (ps *postgresBookStore) Save(ctx context.Context, book Book) (Book, error) {
	record := goqu.Record{
		colName:    book.Name,
		colSummary: book.Summary,
		colRating:  nil,
	}
	if book.Rating != nil {
		record[colRating] = *book.Rating
	}

	if book.ID == nil {
		query, _, err := ps.builder.
			Insert(ps.table).
			Rows(record).
			Returning(colBookID).
			ToSQL()
		if err != nil {
			return book, fmt.Errorf("repo: postgres build insert: %w", err)
		}
		var id int64
		if err = ps.db.QueryRowxContext(ctx, query).Scan(&id); err != nil {
			return book, fmt.Errorf("repo: postgres insert book: %w", err)
		}
		book.ID = Int64Ptr(id)
		return book, nil
	}

	record[colBookID] = *book.ID
	query, _, err := ps.builder.
		Insert(ps.table).
		Rows(record).
		OnConflict(goqu.DoUpdate(colBookID, goqu.Record{
			colName:    goqu.L("EXCLUDED." + colName),
			colSummary: goqu.L("EXCLUDED." + colSummary),
			colRating:  goqu.L("EXCLUDED." + colRating),
		})).
		ToSQL()
	if err != nil {
		return book, fmt.Errorf("repo: postgres build upsert: %w", err)
	}
	if _, err = ps.db.ExecContext(ctx, query); err != nil {
		return book, fmt.Errorf("repo: postgres upsert book %d: %w", *book.ID, err)
	}
	return book, nil
}

// DeleteByID removes a book record based on its ID.
func (ps *postgresBookStore) DeleteByID(ctx context.Context, id int64) error {
	query, _, err := ps.builder.
		Delete(ps.table).
		Where(goqu.C(colBookID).Eq(id)).
		ToSQL()
	if err != nil {
		return fmt.Errorf("repo: postgres build delete: %w", err)
	}

	res, err := ps.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("repo: postgres delete book %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("repo: postgres delete book %d: %w", id, err)
	}
	if n == 0 {
		return ErrBookNotFound
	}
	return nil
}

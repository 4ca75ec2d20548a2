package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/darkodi/shorturl/internal/model"
)

var sqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS counters (
		name  TEXT PRIMARY KEY,
		value BIGINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS urls (
		short_id     BIGINT PRIMARY KEY,
		original_url TEXT NOT NULL UNIQUE
	)`,
}

// SQLStore keeps counters and mappings in SQLite or PostgreSQL.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore opens driver ("sqlite3" or "postgres") at dsn and creates the
// tables if they do not exist yet.
func NewSQLStore(ctx context.Context, driver, dsn string) (*SQLStore, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, storeErr("open", err)
	}

	if driver == "sqlite3" {
		// every connection to :memory: is a separate database
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeErr("ping", err)
	}

	for _, stmt := range sqlSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, storeErr("migrate", err)
		}
	}

	return &SQLStore{db: db}, nil
}

// Allocate upserts the counter row and returns the incremented value. The
// single statement is atomic under concurrent callers on both drivers.
func (s *SQLStore) Allocate(ctx context.Context, name string) (int64, error) {
	if name == "" {
		return 0, ErrEmptyCounter
	}

	query := s.db.Rebind(`
		INSERT INTO counters (name, value) VALUES (?, 1)
		ON CONFLICT (name) DO UPDATE SET value = counters.value + 1
		RETURNING value`)

	var value int64
	if err := s.db.GetContext(ctx, &value, query, name); err != nil {
		return 0, storeErr("allocate", err)
	}
	return value, nil
}

func (s *SQLStore) FindByURL(ctx context.Context, originalURL string) (*model.URLMapping, error) {
	return s.findOne(ctx, "SELECT short_id, original_url FROM urls WHERE original_url = ?", originalURL)
}

func (s *SQLStore) FindByID(ctx context.Context, shortID int64) (*model.URLMapping, error) {
	return s.findOne(ctx, "SELECT short_id, original_url FROM urls WHERE short_id = ?", shortID)
}

func (s *SQLStore) Insert(ctx context.Context, originalURL string, shortID int64) (*model.URLMapping, error) {
	_, err := s.db.ExecContext(ctx,
		s.db.Rebind("INSERT INTO urls (short_id, original_url) VALUES (?, ?)"),
		shortID, originalURL,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateKey
		}
		return nil, storeErr("insert", err)
	}

	return &model.URLMapping{ShortID: shortID, OriginalURL: originalURL}, nil
}

func (s *SQLStore) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return storeErr("ping", err)
	}
	return nil
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) findOne(ctx context.Context, query string, arg any) (*model.URLMapping, error) {
	m := &model.URLMapping{}
	err := s.db.GetContext(ctx, m, s.db.Rebind(query), arg)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, storeErr("find", err)
	}
	return m, nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == pgerrcode.UniqueViolation
	}

	return false
}

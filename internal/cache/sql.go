package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect selects placeholder style and upsert syntax.
type Dialect int

const (
	DialectSQLite Dialect = iota
	DialectPostgres
)

// SQLKV is a KV stored in a single kv_cache table.
type SQLKV struct {
	DB      *sql.DB
	dialect Dialect
}

func NewSQLKV(db *sql.DB, dialect Dialect) *SQLKV {
	return &SQLKV{DB: db, dialect: dialect}
}

// OpenSQLite opens (or creates) the database at path and applies the schema.
func OpenSQLite(path string) (*SQLKV, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("open sqlite kv: path is required")
	}

	db, err := sql.Open("sqlite", filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("open sqlite kv %q: %w", path, err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL;"); err != nil {
		log.Println("cache: could not set WAL mode:", err)
	}

	kv := NewSQLKV(db, DialectSQLite)
	if err := kv.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

// OpenPostgres connects through the pgx stdlib driver and applies the schema.
func OpenPostgres(databaseURL string) (*SQLKV, error) {
	db, err := sql.Open("pgx", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open postgres kv: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("open postgres kv: verify connection: %w", err)
	}

	kv := NewSQLKV(db, DialectPostgres)
	if err := kv.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return kv, nil
}

func (s *SQLKV) InitSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("kv cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, `
	CREATE TABLE IF NOT EXISTS kv_cache (
		key        TEXT PRIMARY KEY,
		value      TEXT NOT NULL,
		updated_at BIGINT NOT NULL
	);
	`); err != nil {
		return fmt.Errorf("init kv cache schema: %w", err)
	}
	return nil
}

func (s *SQLKV) Get(ctx context.Context, key string) (string, bool, error) {
	if s.DB == nil {
		return "", false, errors.New("kv cache: db is nil")
	}

	var value string
	err := s.DB.QueryRowContext(ctx, s.bind(`SELECT value FROM kv_cache WHERE key = ?`), key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("get kv cache key=%q: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLKV) Set(ctx context.Context, key, value string) error {
	if s.DB == nil {
		return errors.New("kv cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, s.upsert(), key, value, time.Now().UTC().UnixMilli()); err != nil {
		return fmt.Errorf("set kv cache key=%q: %w", key, err)
	}
	return nil
}

func (s *SQLKV) Remove(ctx context.Context, key string) error {
	if s.DB == nil {
		return errors.New("kv cache: db is nil")
	}

	if _, err := s.DB.ExecContext(ctx, s.bind(`DELETE FROM kv_cache WHERE key = ?`), key); err != nil {
		return fmt.Errorf("remove kv cache key=%q: %w", key, err)
	}
	return nil
}

func (s *SQLKV) RemoveMany(ctx context.Context, keys []string) error {
	if s.DB == nil {
		return errors.New("kv cache: db is nil")
	}
	if len(keys) == 0 {
		return nil
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("remove kv cache: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.PrepareContext(ctx, s.bind(`DELETE FROM kv_cache WHERE key = ?`))
	if err != nil {
		return fmt.Errorf("remove kv cache: db prepare: %w", err)
	}
	defer stmt.Close()

	for _, k := range keys {
		if _, err := stmt.ExecContext(ctx, k); err != nil {
			return fmt.Errorf("remove kv cache key=%q: %w", k, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("remove kv cache commit: %w", err)
	}
	return nil
}

func (s *SQLKV) ListKeys(ctx context.Context) ([]string, error) {
	if s.DB == nil {
		return nil, errors.New("kv cache: db is nil")
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT key FROM kv_cache ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list kv cache keys: %w", err)
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, fmt.Errorf("list kv cache keys: scan rows: %w", err)
		}
		keys = append(keys, k)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list kv cache keys: row iteration: %w", err)
	}
	return keys, nil
}

func (s *SQLKV) Close() error {
	if s == nil || s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

func (s *SQLKV) upsert() string {
	if s.dialect == DialectPostgres {
		return `
	INSERT INTO kv_cache (key, value, updated_at)
	VALUES ($1, $2, $3)
	ON CONFLICT (key) DO UPDATE
	SET value = EXCLUDED.value,
		updated_at = EXCLUDED.updated_at;
	`
	}
	return `
	INSERT OR REPLACE INTO kv_cache (key, value, updated_at)
	VALUES (?, ?, ?);
	`
}

// bind rewrites ? placeholders to $n for postgres.
func (s *SQLKV) bind(q string) string {
	if s.dialect != DialectPostgres {
		return q
	}

	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

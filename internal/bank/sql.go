package bank

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dgallion1/docquiz/internal/question"
	_ "github.com/jackc/pgx/v5/stdlib" // driver: pgx
	_ "modernc.org/sqlite"             // driver: sqlite
)

// SQLStore keeps one row per question, ordered by an auto-increment
// sequence. Appends run in a single transaction.
type SQLStore struct {
	db     *sql.DB
	driver Driver
}

// OpenSQL connects to SQLite (modernc) or Postgres (pgx) and ensures the
// schema exists.
func OpenSQL(ctx context.Context, driver Driver, dsn string) (*SQLStore, error) {
	var drvName string
	switch driver {
	case DriverSQLite:
		drvName = "sqlite"
		if dsn == "" {
			dsn = "file:docquiz.db?mode=rwc&_pragma=busy_timeout(5000)"
		}
	case DriverPostgres:
		drvName = "pgx"
		if dsn == "" {
			dsn = "postgres://localhost:5432/docquiz?sslmode=disable"
		}
	default:
		return nil, fmt.Errorf("unsupported sql driver %q", driver)
	}

	db, err := sql.Open(drvName, dsn)
	if err != nil {
		return nil, storeErr("open", err)
	}
	if driver == DriverSQLite {
		// One writer at a time; avoids SQLITE_BUSY under concurrent appends.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, storeErr("open", err)
	}
	schema := schemaSQLite
	if driver == DriverPostgres {
		schema = schemaPostgres
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, storeErr("migrate", err)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

const schemaSQLite = `
CREATE TABLE IF NOT EXISTS questions (
  seq INTEGER PRIMARY KEY AUTOINCREMENT,
  id TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL DEFAULT '',
  record_json TEXT NOT NULL,
  created_at INTEGER NOT NULL
);
`

const schemaPostgres = `
CREATE TABLE IF NOT EXISTS questions (
  seq BIGSERIAL PRIMARY KEY,
  id TEXT NOT NULL UNIQUE,
  source TEXT NOT NULL DEFAULT '',
  record_json TEXT NOT NULL,
  created_at BIGINT NOT NULL
);
`

func (s *SQLStore) Load(ctx context.Context) (question.Bank, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT record_json FROM questions ORDER BY seq`)
	if err != nil {
		return nil, storeErr("load", err)
	}
	defer rows.Close()

	bank := question.Bank{}
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, storeErr("load", err)
		}
		var q question.Question
		if err := json.Unmarshal([]byte(raw), &q); err != nil {
			return nil, storeErr("load", fmt.Errorf("decode record: %w", err))
		}
		bank = append(bank, q)
	}
	return bank, storeErr("load", rows.Err())
}

func (s *SQLStore) Append(ctx context.Context, records []question.Question) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storeErr("append", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := time.Now().Unix()
	for _, q := range records {
		raw, err := json.Marshal(q)
		if err != nil {
			return storeErr("append", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO questions (id, source, record_json, created_at) VALUES ($1, $2, $3, $4)`,
			q.ID, q.Source, string(raw), now,
		); err != nil {
			return storeErr("append", err)
		}
	}
	return storeErr("append", tx.Commit())
}

func (s *SQLStore) Reset(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM questions`)
	return storeErr("reset", err)
}

func (s *SQLStore) Close() error {
	return s.db.Close()
}

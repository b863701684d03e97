package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/ppiankov/clientscore/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS clients (
	id              INTEGER PRIMARY KEY,
	dt              TEXT,
	age             INTEGER,
	gender          TEXT,
	adminarea       TEXT,
	city_smart_name TEXT,
	income_value    TEXT,
	income_category TEXT,
	features        TEXT
);`

const upsertClient = `
INSERT INTO clients (id, dt, age, gender, adminarea, city_smart_name, income_value, income_category, features)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
	dt = excluded.dt,
	age = excluded.age,
	gender = excluded.gender,
	adminarea = excluded.adminarea,
	city_smart_name = excluded.city_smart_name,
	income_value = excluded.income_value,
	income_category = excluded.income_category,
	features = excluded.features`

const selectColumns = `id, dt, age, gender, adminarea, city_smart_name, income_value, income_category, features`

// SQLiteStore persists records in a SQLite database. The natural order is the primary key.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (creating if needed) the database at path.
// The special path ":memory:" opens a private in-memory database.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("create database directory: %w", err)
			}
		}
		dsn = path + "?_pragma=busy_timeout(5000)"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if path == ":memory:" {
		// every connection would otherwise get its own empty database
		db.SetMaxOpenConns(1)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) FindByID(ctx context.Context, id int64) (*model.ClientRecord, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+selectColumns+` FROM clients WHERE id = ?`, id)
	record, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query client %d: %w", id, err)
	}
	return record, nil
}

func (s *SQLiteStore) FindAll(ctx context.Context, page, size int) ([]model.ClientRecord, error) {
	if err := checkPage(page, size); err != nil {
		return nil, err
	}

	if int64(page) > math.MaxInt64/int64(size) {
		return []model.ClientRecord{}, nil
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+selectColumns+` FROM clients ORDER BY id LIMIT ? OFFSET ?`,
		size, int64(page)*int64(size))
	if err != nil {
		return nil, fmt.Errorf("query clients: %w", err)
	}
	defer func() { _ = rows.Close() }()

	out := make([]model.ClientRecord, 0, size)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan client: %w", err)
		}
		out = append(out, *record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate clients: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) SaveAll(ctx context.Context, records []model.ClientRecord) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	stmt, err := tx.PrepareContext(ctx, upsertClient)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for _, r := range records {
		if _, err = stmt.ExecContext(ctx,
			r.ID, nullString(r.Dt), nullInt(r.Age), nullString(r.Gender),
			nullString(r.AdminArea), nullString(r.CitySmartName),
			r.IncomeValue, nullString(r.IncomeCategory), nullString(nonEmpty(r.Features)),
		); err != nil {
			return fmt.Errorf("insert client %d: %w", r.ID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return n, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*model.ClientRecord, error) {
	var (
		r        model.ClientRecord
		features sql.NullString
	)
	if err := row.Scan(
		&r.ID, &r.Dt, &r.Age, &r.Gender, &r.AdminArea, &r.CitySmartName,
		&r.IncomeValue, &r.IncomeCategory, &features,
	); err != nil {
		return nil, err
	}
	r.Features = features.String
	return &r, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func nullInt(i *int) sql.NullInt64 {
	if i == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*i), Valid: true}
}

func nonEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

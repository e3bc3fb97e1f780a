package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(ctx context.Context, path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// SQLite permits one writer at a time; a second connection would see
	// "database is locked" under concurrent mutations.
	db.SetMaxOpenConns(1)

	s := &SQLite{db: db}
	if err := s.ensureSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLite) ensureSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
    CREATE TABLE IF NOT EXISTS documents (
      collection TEXT NOT NULL,
      id TEXT NOT NULL,
      doc TEXT NOT NULL,
      PRIMARY KEY (collection, id)
    )
  `)
	return err
}

func (s *SQLite) ListAll(ctx context.Context, collection string) ([]Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id, doc FROM documents WHERE collection = ? ORDER BY rowid`, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var raw string
		if err := rows.Scan(&rec.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(raw), &rec.Doc); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, collection, id string) (*Record, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT doc FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := Record{ID: id}
	if err := json.Unmarshal([]byte(raw), &rec.Doc); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLite) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx, `INSERT INTO documents (collection, id, doc) VALUES (?, ?, ?)`, collection, id, string(raw)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *SQLite) Update(ctx context.Context, collection, id string, partial Document) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var raw string
	err = tx.QueryRowContext(ctx, `SELECT doc FROM documents WHERE collection = ? AND id = ?`, collection, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	if err != nil {
		return err
	}

	var doc Document
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return err
	}
	for field, value := range partial {
		doc[field] = value
	}
	merged, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `UPDATE documents SET doc = ? WHERE collection = ? AND id = ?`, string(merged), collection, id); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE collection = ? AND id = ?`, collection, id)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLite) FindOne(ctx context.Context, collection, field, value string) (*Record, error) {
	var rec Record
	var raw string
	err := s.db.QueryRowContext(ctx, `
    SELECT id, doc
    FROM documents
    WHERE collection = ? AND json_extract(doc, '$.' || ?) = ?
    ORDER BY rowid
    LIMIT 1
  `, collection, field, value).Scan(&rec.ID, &raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(raw), &rec.Doc); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

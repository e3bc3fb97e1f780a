package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Postgres struct {
	pool *pgxpool.Pool
}

func NewPostgres(ctx context.Context, databaseURL string) (*Postgres, error) {
	poolCfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, err
	}
	poolCfg.MaxConnLifetime = time.Hour
	poolCfg.MaxConns = 10
	poolCfg.MinConns = 2

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, err
	}

	p := &Postgres{pool: pool}
	if err := p.ensureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return p, nil
}

func (p *Postgres) ensureSchema(ctx context.Context) error {
	// seq gives an exact insertion order; created_at ties under rapid inserts
	// and uuid ids do not break the tie deterministically.
	_, err := p.pool.Exec(ctx, `
    CREATE TABLE IF NOT EXISTS documents (
      seq BIGSERIAL,
      collection TEXT NOT NULL,
      id TEXT NOT NULL,
      doc JSONB NOT NULL,
      created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
      PRIMARY KEY (collection, id)
    )
  `)
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, "CREATE INDEX IF NOT EXISTS documents_collection_idx ON documents (collection, seq)")
	return err
}

func (p *Postgres) ListAll(ctx context.Context, collection string) ([]Record, error) {
	rows, err := p.pool.Query(ctx, `
    SELECT id, doc
    FROM documents
    WHERE collection = $1
    ORDER BY seq
  `, collection)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		var rec Record
		var raw []byte
		if err := rows.Scan(&rec.ID, &raw); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &rec.Doc); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (p *Postgres) Get(ctx context.Context, collection, id string) (*Record, error) {
	var raw []byte
	err := p.pool.QueryRow(ctx, "SELECT doc FROM documents WHERE collection = $1 AND id = $2", collection, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := Record{ID: id}
	if err := json.Unmarshal(raw, &rec.Doc); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) Insert(ctx context.Context, collection string, doc Document) (string, error) {
	raw, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	if _, err := p.pool.Exec(ctx, `
    INSERT INTO documents (collection, id, doc)
    VALUES ($1, $2, $3)
  `, collection, id, raw); err != nil {
		return "", err
	}
	return id, nil
}

func (p *Postgres) Update(ctx context.Context, collection, id string, partial Document) error {
	raw, err := json.Marshal(partial)
	if err != nil {
		return err
	}
	cmd, err := p.pool.Exec(ctx, `
    UPDATE documents
    SET doc = doc || $3::jsonb
    WHERE collection = $1 AND id = $2
  `, collection, id, raw)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, collection, id string) error {
	cmd, err := p.pool.Exec(ctx, "DELETE FROM documents WHERE collection = $1 AND id = $2", collection, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) FindOne(ctx context.Context, collection, field, value string) (*Record, error) {
	var rec Record
	var raw []byte
	err := p.pool.QueryRow(ctx, `
    SELECT id, doc
    FROM documents
    WHERE collection = $1 AND doc->>$2 = $3
    ORDER BY seq
    LIMIT 1
  `, collection, field, value).Scan(&rec.ID, &raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &rec.Doc); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (p *Postgres) Ping(ctx context.Context) error {
	return p.pool.Ping(ctx)
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

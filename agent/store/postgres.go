package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

const defaultQueryTimeout = 10 * time.Second

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	QueryTimeout time.Duration `envconfig:"QUERY_TIMEOUT" split_words:"true" default:"10s"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.DSN) == "" {
		return errors.New("postgres dsn is required")
	}
	return nil
}

// PostgresOption customizes Postgres.
type PostgresOption func(*Postgres)

// WithDB swaps in an already-constructed bun.DB, bypassing the DSN.
func WithDB(db *bun.DB) PostgresOption {
	return func(p *Postgres) {
		if db != nil {
			p.db = db
		}
	}
}

func WithQueryTimeout(d time.Duration) PostgresOption {
	return func(p *Postgres) {
		p.timeout = d
	}
}

// Postgres serves domain records from a Postgres database through bun.
type Postgres struct {
	db      *bun.DB
	timeout time.Duration
}

func NewPostgres(cfg Config, opts ...PostgresOption) (*Postgres, error) {
	store := &Postgres{timeout: cfg.QueryTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(store)
		}
	}
	if store.timeout <= 0 {
		store.timeout = defaultQueryTimeout
	}

	if store.db == nil {
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(strings.TrimSpace(cfg.DSN))))
		store.db = bun.NewDB(sqldb, pgdialect.New())
	}

	return store, nil
}

// Close releases the underlying database connections.
func (p *Postgres) Close() error {
	return p.db.Close()
}

func (p *Postgres) Query(ctx context.Context, kind Kind, filter *Filter) ([]Record, error) {
	table, ok := tableFor(kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	q := p.db.NewSelect().TableExpr(table).ColumnExpr("*")
	if filter != nil {
		if strings.TrimSpace(filter.Field) == "" {
			return nil, fmt.Errorf("%w: empty field", ErrInvalidFilter)
		}
		switch filter.Op {
		case FilterEq:
			q = q.Where("? = ?", bun.Ident(filter.Field), filter.Value)
		case FilterSince:
			q = q.Where("? >= ?", bun.Ident(filter.Field), filter.Value)
		default:
			return nil, fmt.Errorf("%w: op %d", ErrInvalidFilter, filter.Op)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	var rows []map[string]any
	if err := q.Scan(ctx, &rows); err != nil {
		return nil, fmt.Errorf("query %s: %w", table, err)
	}

	records := make([]Record, len(rows))
	for i, row := range rows {
		records[i] = Record(row)
	}
	return records, nil
}

func (p *Postgres) Insert(ctx context.Context, kind Kind, rec Record) error {
	table, ok := tableFor(kind)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
	if len(rec) == 0 {
		return ErrEmptyRecord
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	row := map[string]any(rec)
	if _, err := p.db.NewInsert().Model(&row).TableExpr(table).Exec(ctx); err != nil {
		return fmt.Errorf("insert %s: %w", table, err)
	}
	return nil
}

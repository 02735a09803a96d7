package pg

//go:generate go run go.uber.org/mock/mockgen --source=pg.go --destination=mock_pg_test.go -package=pg

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"time"

	"github.com/go-kit/log"
	"github.com/nrfta/go-pipetest"

	"github.com/lib/pq"
	"github.com/rs/xid"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

type Logger log.Logger

// Sink writes each pipeline record to a Postgres table as a gob-encoded
// payload row. The production counterpart of pipetest.QueueSink for
// pipelines that terminate in a database.
type Sink[T any] struct {
	db        execer
	tableName string
	logger    Logger
}

type option[T any] func(s *Sink[T])

func WithTableName[T any](tn string) option[T] {
	return func(s *Sink[T]) {
		s.tableName = tn
	}
}

// NewSink creates the destination table if absent and returns the sink.
func NewSink[T any](db execer, logger Logger, opts ...option[T]) (*Sink[T], error) {
	s := &Sink[T]{db: db, tableName: "pipeline_output", logger: logger}

	for _, o := range opts {
		o(s)
	}

	if err := s.init(); err != nil {
		return nil, err
	}

	s.logger.Log("msg", "pg sink ready", "table", s.tableName)

	return s, nil
}

func (s *Sink[T]) init() error {
	query := fmt.Sprintf(`
	CREATE TABLE IF NOT EXISTS %s (
		id CHAR(20) PRIMARY KEY,
		payload BYTEA NOT NULL,
		created_at TIMESTAMPTZ NOT NULL
	);
	`, pq.QuoteIdentifier(s.tableName))

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if _, err := s.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("unable to create table %s: %v", s.tableName, err)
	}

	return nil
}

func (s *Sink[T]) Consume(ctx context.Context, v T) error {
	raw, err := encode(v)
	if err != nil {
		return fmt.Errorf("unable to encode record: %v", err)
	}

	query := fmt.Sprintf(`
	INSERT INTO %s VALUES ($1, $2, $3);
	`, pq.QuoteIdentifier(s.tableName))

	if _, err := s.db.ExecContext(ctx, query, xid.New().String(), raw, time.Now()); err != nil {
		if ctx.Err() != nil {
			return fmt.Errorf("pg sink: %w: %v", pipetest.ErrInterrupted, err)
		}
		return fmt.Errorf("pg sink: %v", err)
	}

	return nil
}

func encode[T any](v T) ([]byte, error) {
	var b bytes.Buffer
	if err := gob.NewEncoder(&b).Encode(v); err != nil {
		return nil, err
	}

	return b.Bytes(), nil
}

var _ pipetest.Sink[any] = (*Sink[any])(nil)

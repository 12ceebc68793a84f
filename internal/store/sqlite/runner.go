package sqlite

import (
	"context"
	"database/sql"

	"github.com/rs/zerolog"

	"donationledger/internal/sqlinline"
)

// querier is satisfied by *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// runner strips audit markers and logs statements by marker.
type runner struct {
	q      querier
	logger zerolog.Logger
}

func (s *Store) runner(q querier) runner {
	return runner{q: q, logger: s.logger}
}

func (r runner) exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	marker, body, err := sqlinline.Split(query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Msgf("sql[%s] exec", marker)
	res, err := r.q.ExecContext(ctx, body, args...)
	if err != nil {
		r.logger.Error().Err(err).Msgf("sql[%s] error", marker)
	}
	return res, err
}

func (r runner) query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	marker, body, err := sqlinline.Split(query)
	if err != nil {
		return nil, err
	}
	r.logger.Debug().Msgf("sql[%s] query", marker)
	rows, err := r.q.QueryContext(ctx, body, args...)
	if err != nil {
		r.logger.Error().Err(err).Msgf("sql[%s] error", marker)
	}
	return rows, err
}

func (r runner) queryRow(ctx context.Context, query string, args ...any) *sql.Row {
	marker, body, err := sqlinline.Split(query)
	if err != nil {
		// The marker line is an SQL comment, so the raw statement still runs.
		r.logger.Warn().Err(err).Msg("sql query_row without marker")
		return r.q.QueryRowContext(ctx, query, args...)
	}
	r.logger.Debug().Msgf("sql[%s] query_row", marker)
	return r.q.QueryRowContext(ctx, body, args...)
}

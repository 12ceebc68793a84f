package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"donationledger/internal/infra"
)

// Conn is a pooled connection. It must be released exactly once.
type Conn interface {
	infra.SQLExecutor
	Begin(ctx context.Context) (pgx.Tx, error)
	Release()
}

// Pool hands out connections from a bounded set. Callers beyond its capacity
// wait in Acquire.
type Pool interface {
	Acquire(ctx context.Context) (Conn, error)
	Ping(ctx context.Context) error
	Close()
}

type pgxPool struct {
	*pgxpool.Pool
}

// NewPool adapts a pgx connection pool to Pool.
func NewPool(p *pgxpool.Pool) Pool {
	return pgxPool{Pool: p}
}

func (p pgxPool) Acquire(ctx context.Context) (Conn, error) {
	c, err := p.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return c, nil
}

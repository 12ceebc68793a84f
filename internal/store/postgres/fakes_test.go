package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"donationledger/internal/sqlinline"
)

// body returns q as the runner hands it to the connection.
func body(q string) string {
	_, b, err := sqlinline.Split(q)
	if err != nil {
		panic(err)
	}
	return b
}

type call struct {
	sql  string
	args []any
}

type response struct {
	rows [][]any
	tag  string
	err  error
}

type fakeDB struct {
	responses map[string]response
	calls     []call
	commits   int
	rollbacks int
}

func newFakeDB() *fakeDB {
	return &fakeDB{responses: map[string]response{}}
}

func (db *fakeDB) on(query string, r response) {
	db.responses[body(query)] = r
}

func (db *fakeDB) callsTo(query string) []call {
	var out []call
	for _, c := range db.calls {
		if c.sql == body(query) {
			out = append(out, c)
		}
	}
	return out
}

func (db *fakeDB) Exec(_ context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	db.calls = append(db.calls, call{sql: sql, args: args})
	r := db.responses[sql]
	return pgconn.NewCommandTag(r.tag), r.err
}

func (db *fakeDB) Query(_ context.Context, sql string, args ...any) (pgx.Rows, error) {
	db.calls = append(db.calls, call{sql: sql, args: args})
	r, ok := db.responses[sql]
	if !ok {
		return nil, fmt.Errorf("unexpected query %q", sql)
	}
	if r.err != nil {
		return nil, r.err
	}
	return &fakeRows{rows: r.rows}, nil
}

func (db *fakeDB) QueryRow(_ context.Context, sql string, args ...any) pgx.Row {
	db.calls = append(db.calls, call{sql: sql, args: args})
	r, ok := db.responses[sql]
	switch {
	case !ok:
		return fakeRow{err: fmt.Errorf("unexpected query %q", sql)}
	case r.err != nil:
		return fakeRow{err: r.err}
	case len(r.rows) == 0:
		return fakeRow{err: pgx.ErrNoRows}
	}
	return fakeRow{values: r.rows[0]}
}

type fakePool struct {
	db         *fakeDB
	acquireErr error
	acquired   int
	released   int
}

func newFakePool() *fakePool {
	return &fakePool{db: newFakeDB()}
}

func (p *fakePool) Acquire(context.Context) (Conn, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.acquired++
	return &fakeConn{fakeDB: p.db, pool: p}, nil
}

func (p *fakePool) Ping(context.Context) error { return p.acquireErr }

func (p *fakePool) Close() {}

type fakeConn struct {
	*fakeDB
	pool *fakePool
}

func (c *fakeConn) Begin(context.Context) (pgx.Tx, error) {
	return &fakeTx{db: c.fakeDB}, nil
}

func (c *fakeConn) Release() { c.pool.released++ }

// fakeTx overrides the statement methods of pgx.Tx. Anything else panics.
type fakeTx struct {
	pgx.Tx
	db *fakeDB
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Commit(context.Context) error {
	t.db.commits++
	return nil
}

func (t *fakeTx) Rollback(context.Context) error {
	t.db.rollbacks++
	return nil
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return assign(dest, r.values)
}

type rowsBase struct{}

func (rowsBase) CommandTag() pgconn.CommandTag { return pgconn.CommandTag{} }

func (rowsBase) Conn() *pgx.Conn { return nil }

func (rowsBase) FieldDescriptions() []pgconn.FieldDescription { return nil }

func (rowsBase) Values() ([]any, error) {
	return nil, fmt.Errorf("values not supported in test rows")
}

func (rowsBase) RawValues() [][]byte { return nil }

type fakeRows struct {
	rowsBase
	rows   [][]any
	idx    int
	closed bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	return assign(dest, r.rows[r.idx-1])
}

func (r *fakeRows) Err() error { return nil }

func (r *fakeRows) Close() { r.closed = true }

func assign(dest, values []any) error {
	if len(dest) != len(values) {
		return fmt.Errorf("scan: %d targets for %d values", len(dest), len(values))
	}
	for i, d := range dest {
		switch p := d.(type) {
		case *int64:
			*p = values[i].(int64)
		case *int:
			*p = values[i].(int)
		case *string:
			*p = values[i].(string)
		case **string:
			if values[i] == nil {
				*p = nil
				continue
			}
			v := values[i].(string)
			*p = &v
		case *[]byte:
			*p = values[i].([]byte)
		case *time.Time:
			*p = values[i].(time.Time)
		default:
			return fmt.Errorf("unsupported scan target %T", d)
		}
	}
	return nil
}

var stamp = time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)

func donationRow(id int64, amount, date string, note any) []any {
	return []any{id, amount, date, note, stamp, stamp}
}

func totalRow(id int64, date, start, current string, final any, obs, status string) []any {
	return []any{id, date, start, current, final, []byte(obs), status, stamp, stamp}
}

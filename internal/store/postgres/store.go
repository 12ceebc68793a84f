// Package postgres is the networked backend built on a pgx connection pool.
// Every operation acquires its own connection and checks the schema before
// touching the tables.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"

	"donationledger/internal/domain"
	"donationledger/internal/infra"
	"donationledger/internal/sqlinline"
)

// Postgres error codes raised when concurrent callers create the schema.
const (
	codeUniqueViolation = "23505"
	codeDuplicateTable  = "42P07"
)

// Config holds Postgres store configuration.
type Config struct {
	Pool         Pool
	Narrator     domain.Narrator
	Logger       zerolog.Logger
	QueryTimeout time.Duration
	Now          func() time.Time
}

// Store implements domain.Store and domain.DonationDeleter on Postgres.
type Store struct {
	pool         Pool
	narrator     domain.Narrator
	logger       zerolog.Logger
	queryTimeout time.Duration
	now          func() time.Time
}

var (
	_ domain.Store           = (*Store)(nil)
	_ domain.DonationDeleter = (*Store)(nil)
)

func New(cfg Config) (*Store, error) {
	if cfg.Pool == nil {
		return nil, fmt.Errorf("connection pool is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Store{
		pool:         cfg.Pool,
		narrator:     cfg.Narrator,
		logger:       infra.ForBackend(cfg.Logger, domain.BackendPostgres),
		queryTimeout: cfg.QueryTimeout,
		now:          cfg.Now,
	}, nil
}

func (s *Store) Kind() domain.BackendKind { return domain.BackendPostgres }

// Close closes the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

func (s *Store) fail(op string, err error) error {
	return domain.Wrap(domain.BackendPostgres, op, err)
}

// do acquires a connection, ensures the schema and runs fn. The connection is
// released on every path.
func (s *Store) do(ctx context.Context, op string, fn func(context.Context, Conn) error) error {
	if s.queryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.queryTimeout)
		defer cancel()
	}
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return s.fail(op, domain.Unavailable(fmt.Errorf("acquire connection: %w", err)))
	}
	defer conn.Release()

	if err := s.ensureSchema(ctx, infra.NewSQLRunner(conn, s.logger)); err != nil {
		return s.fail(op, classify(err))
	}
	if err := fn(ctx, conn); err != nil {
		return s.fail(op, classify(err))
	}
	return nil
}

func (s *Store) withConn(ctx context.Context, op string, fn func(context.Context, *infra.SQLRunner) error) error {
	return s.do(ctx, op, func(ctx context.Context, conn Conn) error {
		return fn(ctx, infra.NewSQLRunner(conn, s.logger))
	})
}

func (s *Store) withTx(ctx context.Context, op string, fn func(context.Context, *infra.SQLRunner) error) error {
	return s.do(ctx, op, func(ctx context.Context, conn Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		if err := fn(ctx, infra.NewSQLRunner(tx, s.logger)); err != nil {
			_ = tx.Rollback(ctx)
			return err
		}
		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

func (s *Store) ensureSchema(ctx context.Context, run *infra.SQLRunner) error {
	for _, q := range []string{sqlinline.QPgCreateDonationsTable, sqlinline.QPgCreateDailyTotalsTable} {
		if _, err := run.Exec(ctx, q); err != nil && !alreadyExists(err) {
			return fmt.Errorf("create schema: %w", err)
		}
	}
	return nil
}

func alreadyExists(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == codeDuplicateTable || pgErr.Code == codeUniqueViolation
}

// classify marks transport failures as unavailable. Errors reported by the
// server itself are returned as is.
func classify(err error) error {
	if errors.Is(err, domain.ErrBackendUnavailable) {
		return err
	}
	var (
		pgErr   *pgconn.PgError
		connErr *pgconn.ConnectError
		netErr  net.Error
	)
	switch {
	case errors.As(err, &pgErr):
		return err
	case errors.As(err, &connErr), errors.As(err, &netErr), pgconn.Timeout(err):
		return domain.Unavailable(err)
	}
	return err
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.pool.Ping(ctx); err != nil {
		return s.fail("ping", domain.Unavailable(err))
	}
	return s.withConn(ctx, "ping", func(ctx context.Context, run *infra.SQLRunner) error {
		var one int
		return run.QueryRow(ctx, sqlinline.QPgPing).Scan(&one)
	})
}

func (s *Store) ListDonations(ctx context.Context) ([]domain.Donation, error) {
	items := []domain.Donation{}
	err := s.withConn(ctx, "list donations", func(ctx context.Context, run *infra.SQLRunner) error {
		rows, err := run.Query(ctx, sqlinline.QPgListDonations)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			d, err := scanDonation(rows)
			if err != nil {
				return err
			}
			items = append(items, d)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) InsertDonation(ctx context.Context, in domain.NewDonation) (domain.Donation, error) {
	const op = "insert donation"
	amount, err := domain.NormalizeAmount(in.Amount)
	if err != nil {
		return domain.Donation{}, s.fail(op, err)
	}
	in.Amount = amount
	if in.Date == "" {
		in.Date = domain.DateOf(s.now().UTC())
	}
	var out domain.Donation
	err = s.withConn(ctx, op, func(ctx context.Context, run *infra.SQLRunner) error {
		d, err := scanDonation(run.QueryRow(ctx, sqlinline.QPgInsertDonation, numericArg(in.Amount), in.Note, string(in.Date)))
		out = d
		return err
	})
	if err != nil {
		return domain.Donation{}, err
	}
	return out, nil
}

func (s *Store) DeleteDonation(ctx context.Context, id int64) error {
	return s.withConn(ctx, "delete donation", func(ctx context.Context, run *infra.SQLRunner) error {
		tag, err := run.Exec(ctx, sqlinline.QPgDeleteDonation, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("%w: donation %d", domain.ErrNotFound, id)
		}
		return nil
	})
}

func (s *Store) GetDailyTotal(ctx context.Context, date domain.Date) (domain.DailyTotal, error) {
	var out domain.DailyTotal
	err := s.withConn(ctx, "get daily total", func(ctx context.Context, run *infra.SQLRunner) error {
		t, err := getTotal(ctx, run, sqlinline.QPgGetDailyTotal, date)
		out = t
		return err
	})
	if err != nil {
		return domain.DailyTotal{}, err
	}
	return out, nil
}

func getTotal(ctx context.Context, run *infra.SQLRunner, query string, date domain.Date) (domain.DailyTotal, error) {
	t, err := scanTotal(run.QueryRow(ctx, query, string(date)))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.DailyTotal{}, fmt.Errorf("%w: daily total %s", domain.ErrNotFound, date)
	}
	return t, err
}

func (s *Store) ListDailyTotals(ctx context.Context) ([]domain.DailyTotal, error) {
	items := []domain.DailyTotal{}
	err := s.withConn(ctx, "list daily totals", func(ctx context.Context, run *infra.SQLRunner) error {
		rows, err := run.Query(ctx, sqlinline.QPgListDailyTotals)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			t, err := scanTotal(rows)
			if err != nil {
				return err
			}
			items = append(items, t)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

// CreateDailyTotal upserts the day. A repeated creation of an open day takes
// the new starting value and appends its note; a closed day is a conflict.
func (s *Store) CreateDailyTotal(ctx context.Context, in domain.NewDailyTotal) (domain.DailyTotal, error) {
	const op = "create daily total"
	start, err := domain.NormalizeValue("starting value", in.StartingValue)
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	in.StartingValue = start
	var out domain.DailyTotal
	err = s.withConn(ctx, op, func(ctx context.Context, run *infra.SQLRunner) error {
		t, err := scanTotal(run.QueryRow(ctx, sqlinline.QPgUpsertDailyTotal,
			string(in.Date), numericArg(in.StartingValue), s.narrator.Opened(in.StartingValue, in.Note)))
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: daily total %s is closed", domain.ErrConflict, in.Date)
		}
		out = t
		return err
	})
	if err != nil {
		return domain.DailyTotal{}, err
	}
	return out, nil
}

func (s *Store) UpdateDailyValue(ctx context.Context, date domain.Date, newValue float64, note string) (domain.DailyTotal, error) {
	const op = "update daily value"
	newValue, err := domain.NormalizeValue("new value", newValue)
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	var out domain.DailyTotal
	err = s.withTx(ctx, op, func(ctx context.Context, run *infra.SQLRunner) error {
		cur, err := lockOpenDay(ctx, run, date)
		if err != nil {
			return err
		}
		out, err = scanTotal(run.QueryRow(ctx, sqlinline.QPgUpdateDailyValue,
			string(date), numericArg(newValue), s.narrator.ValueChanged(cur.CurrentValue, newValue, note)))
		return err
	})
	if err != nil {
		return domain.DailyTotal{}, err
	}
	return out, nil
}

func (s *Store) CloseDailyTotal(ctx context.Context, date domain.Date, finalValue *float64, note string) (domain.DailyTotal, error) {
	const op = "close daily total"
	if finalValue != nil {
		final, err := domain.NormalizeValue("final value", *finalValue)
		if err != nil {
			return domain.DailyTotal{}, s.fail(op, err)
		}
		finalValue = &final
	}
	var out domain.DailyTotal
	err := s.withTx(ctx, op, func(ctx context.Context, run *infra.SQLRunner) error {
		cur, err := lockOpenDay(ctx, run, date)
		if err != nil {
			return err
		}
		final := cur.CurrentValue
		if finalValue != nil {
			final = *finalValue
		}
		out, err = scanTotal(run.QueryRow(ctx, sqlinline.QPgCloseDailyTotal,
			string(date), numericArg(final), s.narrator.Closed(final, note)))
		return err
	})
	if err != nil {
		return domain.DailyTotal{}, err
	}
	return out, nil
}

// lockOpenDay locks the row of date for the rest of the transaction.
func lockOpenDay(ctx context.Context, run *infra.SQLRunner, date domain.Date) (domain.DailyTotal, error) {
	t, err := getTotal(ctx, run, sqlinline.QPgLockDailyTotal, date)
	if err != nil {
		return domain.DailyTotal{}, err
	}
	if t.Closed() {
		return domain.DailyTotal{}, fmt.Errorf("%w: daily total %s is closed", domain.ErrConflict, date)
	}
	return t, nil
}

func (s *Store) ClearDonations(ctx context.Context) error {
	return s.withConn(ctx, "clear donations", func(ctx context.Context, run *infra.SQLRunner) error {
		_, err := run.Exec(ctx, sqlinline.QPgClearDonations)
		return err
	})
}

func (s *Store) ClearAll(ctx context.Context) error {
	err := s.withTx(ctx, "clear all", func(ctx context.Context, run *infra.SQLRunner) error {
		if _, err := run.Exec(ctx, sqlinline.QPgClearDonations); err != nil {
			return err
		}
		_, err := run.Exec(ctx, sqlinline.QPgClearDailyTotals)
		return err
	})
	if err != nil {
		return err
	}
	s.logger.Info().Msg("all records cleared")
	return nil
}

func (s *Store) Export(ctx context.Context) (domain.Snapshot, error) {
	donations, err := s.ListDonations(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	totals, err := s.ListDailyTotals(ctx)
	if err != nil {
		return domain.Snapshot{}, err
	}
	return domain.Snapshot{Donations: donations, DailyTotals: totals, ExportedAt: s.now().UTC()}, nil
}

// Import replaces every record with the contents of snap and moves the id
// sequences past the imported ids.
func (s *Store) Import(ctx context.Context, snap domain.Snapshot) error {
	const op = "import"
	snap, err := domain.NormalizeSnapshot(snap)
	if err != nil {
		return s.fail(op, err)
	}
	err = s.withTx(ctx, op, func(ctx context.Context, run *infra.SQLRunner) error {
		if _, err := run.Exec(ctx, sqlinline.QPgClearDonations); err != nil {
			return err
		}
		if _, err := run.Exec(ctx, sqlinline.QPgClearDailyTotals); err != nil {
			return err
		}
		for _, d := range snap.Donations {
			if _, err := run.Exec(ctx, sqlinline.QPgImportDonation,
				d.ID, numericArg(d.Amount), d.Note, string(d.Date), d.CreatedAt, d.UpdatedAt); err != nil {
				return fmt.Errorf("donation %d: %w", d.ID, err)
			}
		}
		for _, t := range snap.DailyTotals {
			obs := t.Observations
			if obs == nil {
				obs = []string{}
			}
			raw, err := json.Marshal(obs)
			if err != nil {
				return err
			}
			if _, err := run.Exec(ctx, sqlinline.QPgImportDailyTotal,
				t.ID, string(t.Date), numericArg(t.StartingValue), numericArg(t.CurrentValue), numericArgPtr(t.FinalValue),
				string(raw), string(t.Status), t.CreatedAt, t.UpdatedAt); err != nil {
				return fmt.Errorf("daily total %s: %w", t.Date, err)
			}
		}
		for _, q := range []string{sqlinline.QPgResetDonationSeq, sqlinline.QPgResetDailyTotalSeq} {
			if _, err := run.Exec(ctx, q); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.logger.Info().Int("donations", len(snap.Donations)).Int("daily_totals", len(snap.DailyTotals)).Msg("snapshot imported")
	return nil
}

// Package sqlite is the embedded single-file backend. The schema is created
// lazily on first use and the database is held through a single connection,
// so every call is serialized.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"

	"donationledger/internal/domain"
	"donationledger/internal/infra"
	"donationledger/internal/sqlinline"
)

const timeLayout = time.RFC3339Nano

// Config holds SQLite store configuration.
type Config struct {
	Path     string
	Narrator domain.Narrator
	Logger   zerolog.Logger
	Now      func() time.Time
}

// Store implements domain.Store on top of modernc.org/sqlite.
type Store struct {
	db       *sql.DB
	path     string
	narrator domain.Narrator
	logger   zerolog.Logger
	now      func() time.Time

	mu    sync.Mutex
	ready bool
}

var _ domain.Store = (*Store)(nil)

// New opens the database handle. No I/O happens until the first operation.
func New(cfg Config) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	db, err := sql.Open("sqlite", dsn(cfg.Path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	return &Store{
		db:       db,
		path:     cfg.Path,
		narrator: cfg.Narrator,
		logger:   infra.ForBackend(cfg.Logger, domain.BackendSQLite),
		now:      cfg.Now,
	}, nil
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + "_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)"
}

func (s *Store) Kind() domain.BackendKind { return domain.BackendSQLite }

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) fail(op string, err error) error {
	return domain.Wrap(domain.BackendSQLite, op, err)
}

// ensureSchema creates the tables on first use. A failed attempt is retried
// on the next call.
func (s *Store) ensureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ready {
		return nil
	}
	run := s.runner(s.db)
	for _, q := range []string{
		sqlinline.QLiteCreateDonationsTable,
		sqlinline.QLiteCreateDonationsIndex,
		sqlinline.QLiteCreateDailyTotalsTable,
	} {
		if _, err := run.exec(ctx, q); err != nil {
			return domain.Unavailable(fmt.Errorf("create schema in %s: %w", s.path, err))
		}
	}
	s.ready = true
	s.logger.Debug().Str("path", s.path).Msg("sqlite schema ready")
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.ensureSchema(ctx); err != nil {
		return s.fail("ping", err)
	}
	var one int
	if err := s.runner(s.db).queryRow(ctx, sqlinline.QLitePing).Scan(&one); err != nil {
		return s.fail("ping", domain.Unavailable(err))
	}
	return nil
}

func (s *Store) ListDonations(ctx context.Context) ([]domain.Donation, error) {
	const op = "list donations"
	if err := s.ensureSchema(ctx); err != nil {
		return nil, s.fail(op, err)
	}
	rows, err := s.runner(s.db).query(ctx, sqlinline.QLiteListDonations)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	items := []domain.Donation{}
	for rows.Next() {
		d, err := scanDonation(rows)
		if err != nil {
			return nil, s.fail(op, err)
		}
		items = append(items, d)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
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
	if err := s.ensureSchema(ctx); err != nil {
		return domain.Donation{}, s.fail(op, err)
	}
	now := s.now().UTC()
	if in.Date == "" {
		in.Date = domain.DateOf(now)
	}

	res, err := s.runner(s.db).exec(ctx, sqlinline.QLiteInsertDonation,
		in.Amount, string(in.Date), nullable(in.Note), now.Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return domain.Donation{}, s.fail(op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Donation{}, s.fail(op, err)
	}
	return domain.Donation{
		ID:        id,
		Amount:    in.Amount,
		Date:      in.Date,
		Note:      in.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

func (s *Store) GetDailyTotal(ctx context.Context, date domain.Date) (domain.DailyTotal, error) {
	const op = "get daily total"
	if err := s.ensureSchema(ctx); err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	t, err := s.getTotal(ctx, s.runner(s.db), date)
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	return t, nil
}

func (s *Store) getTotal(ctx context.Context, run runner, date domain.Date) (domain.DailyTotal, error) {
	t, err := scanTotal(run.queryRow(ctx, sqlinline.QLiteGetDailyTotal, string(date)))
	if errors.Is(err, sql.ErrNoRows) {
		return domain.DailyTotal{}, fmt.Errorf("%w: daily total %s", domain.ErrNotFound, date)
	}
	return t, err
}

func (s *Store) ListDailyTotals(ctx context.Context) ([]domain.DailyTotal, error) {
	const op = "list daily totals"
	if err := s.ensureSchema(ctx); err != nil {
		return nil, s.fail(op, err)
	}
	rows, err := s.runner(s.db).query(ctx, sqlinline.QLiteListDailyTotals)
	if err != nil {
		return nil, s.fail(op, err)
	}
	defer rows.Close()

	items := []domain.DailyTotal{}
	for rows.Next() {
		t, err := scanTotal(rows)
		if err != nil {
			return nil, s.fail(op, err)
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, s.fail(op, err)
	}
	return items, nil
}

func (s *Store) CreateDailyTotal(ctx context.Context, in domain.NewDailyTotal) (domain.DailyTotal, error) {
	const op = "create daily total"
	start, err := domain.NormalizeValue("starting value", in.StartingValue)
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	in.StartingValue = start
	if err := s.ensureSchema(ctx); err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}

	var created domain.DailyTotal
	err = s.inTx(ctx, func(run runner) error {
		_, err := s.getTotal(ctx, run, in.Date)
		switch {
		case err == nil:
			return fmt.Errorf("%w: daily total %s already exists", domain.ErrConflict, in.Date)
		case !errors.Is(err, domain.ErrNotFound):
			return err
		}
		obs, err := json.Marshal([]string{s.narrator.Opened(in.StartingValue, in.Note)})
		if err != nil {
			return err
		}
		now := s.now().UTC().Format(timeLayout)
		if _, err := run.exec(ctx, sqlinline.QLiteInsertDailyTotal,
			string(in.Date), in.StartingValue, in.StartingValue, string(obs), now, now); err != nil {
			return err
		}
		created, err = s.getTotal(ctx, run, in.Date)
		return err
	})
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	return created, nil
}

func (s *Store) UpdateDailyValue(ctx context.Context, date domain.Date, newValue float64, note string) (domain.DailyTotal, error) {
	const op = "update daily value"
	newValue, err := domain.NormalizeValue("new value", newValue)
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	t, err := s.mutateOpenDay(ctx, date, func(t *domain.DailyTotal) {
		t.Observations = append(t.Observations, s.narrator.ValueChanged(t.CurrentValue, newValue, note))
		t.CurrentValue = newValue
	})
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	return t, nil
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
	t, err := s.mutateOpenDay(ctx, date, func(t *domain.DailyTotal) {
		final := t.CurrentValue
		if finalValue != nil {
			final = *finalValue
		}
		t.Observations = append(t.Observations, s.narrator.Closed(final, note))
		t.CurrentValue = final
		t.FinalValue = &final
		t.Status = domain.StatusClosed
	})
	if err != nil {
		return domain.DailyTotal{}, s.fail(op, err)
	}
	return t, nil
}

// mutateOpenDay loads an open day, applies change and writes it back in one
// transaction.
func (s *Store) mutateOpenDay(ctx context.Context, date domain.Date, change func(*domain.DailyTotal)) (domain.DailyTotal, error) {
	if err := s.ensureSchema(ctx); err != nil {
		return domain.DailyTotal{}, err
	}
	var out domain.DailyTotal
	err := s.inTx(ctx, func(run runner) error {
		t, err := s.getTotal(ctx, run, date)
		if err != nil {
			return err
		}
		if t.Closed() {
			return fmt.Errorf("%w: daily total %s is closed", domain.ErrConflict, date)
		}
		change(&t)
		t.UpdatedAt = s.now().UTC()
		obs, err := json.Marshal(t.Observations)
		if err != nil {
			return err
		}
		if _, err := run.exec(ctx, sqlinline.QLiteUpdateDailyTotal,
			t.CurrentValue, t.FinalValue, string(obs), string(t.Status), t.UpdatedAt.Format(timeLayout), string(date)); err != nil {
			return err
		}
		out = t
		return nil
	})
	return out, err
}

func (s *Store) ClearDonations(ctx context.Context) error {
	if err := s.ensureSchema(ctx); err != nil {
		return s.fail("clear donations", err)
	}
	if _, err := s.runner(s.db).exec(ctx, sqlinline.QLiteClearDonations); err != nil {
		return s.fail("clear donations", err)
	}
	return nil
}

func (s *Store) ClearAll(ctx context.Context) error {
	if err := s.ensureSchema(ctx); err != nil {
		return s.fail("clear all", err)
	}
	err := s.inTx(ctx, func(run runner) error {
		if _, err := run.exec(ctx, sqlinline.QLiteClearDonations); err != nil {
			return err
		}
		_, err := run.exec(ctx, sqlinline.QLiteClearDailyTotals)
		return err
	})
	if err != nil {
		return s.fail("clear all", err)
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

// Import replaces every record with the contents of snap in one transaction.
func (s *Store) Import(ctx context.Context, snap domain.Snapshot) error {
	const op = "import"
	snap, err := domain.NormalizeSnapshot(snap)
	if err != nil {
		return s.fail(op, err)
	}
	if err := s.ensureSchema(ctx); err != nil {
		return s.fail(op, err)
	}
	err = s.inTx(ctx, func(run runner) error {
		if _, err := run.exec(ctx, sqlinline.QLiteClearDonations); err != nil {
			return err
		}
		if _, err := run.exec(ctx, sqlinline.QLiteClearDailyTotals); err != nil {
			return err
		}
		for _, d := range snap.Donations {
			if _, err := run.exec(ctx, sqlinline.QLiteImportDonation,
				d.ID, d.Amount, string(d.Date), nullable(d.Note),
				d.CreatedAt.UTC().Format(timeLayout), d.UpdatedAt.UTC().Format(timeLayout)); err != nil {
				return fmt.Errorf("donation %d: %w", d.ID, err)
			}
		}
		for _, t := range snap.DailyTotals {
			obs, err := json.Marshal(nonNil(t.Observations))
			if err != nil {
				return err
			}
			if _, err := run.exec(ctx, sqlinline.QLiteImportDailyTotal,
				t.ID, string(t.Date), t.StartingValue, t.CurrentValue, t.FinalValue, string(obs), string(t.Status),
				t.CreatedAt.UTC().Format(timeLayout), t.UpdatedAt.UTC().Format(timeLayout)); err != nil {
				return fmt.Errorf("daily total %s: %w", t.Date, err)
			}
		}
		return nil
	})
	if err != nil {
		return s.fail(op, err)
	}
	s.logger.Info().Int("donations", len(snap.Donations)).Int("daily_totals", len(snap.DailyTotals)).Msg("snapshot imported")
	return nil
}

func (s *Store) inTx(ctx context.Context, fn func(runner) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	if err := fn(s.runner(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nonNil(obs []string) []string {
	if obs == nil {
		return []string{}
	}
	return obs
}

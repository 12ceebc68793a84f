// Package ledger is the single entry point over the selected backend. It
// normalizes dates, derives the aggregate totals and decides when the
// in-memory cache may answer in place of a failed backend.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"donationledger/internal/domain"
	"donationledger/internal/infra"
)

// AutoOpenNote is recorded on the day created by Overview on an empty ledger.
const AutoOpenNote = "ledger initialized automatically"

// Overview is the daily-total listing together with its aggregates.
type Overview struct {
	Records []domain.DailyTotal `json:"records"`
	Totals  domain.Totals       `json:"totals"`
}

// Info describes the active backend.
type Info struct {
	Backend         domain.BackendKind `json:"backend"`
	Name            string             `json:"name"`
	Environment     string             `json:"environment"`
	FallbackEnabled bool               `json:"fallback_enabled"`
	FallbackServed  bool               `json:"fallback_served"`
}

// Ledger dispatches to the backend chosen at startup.
type Ledger struct {
	primary     domain.Store
	fallback    domain.Store
	logger      zerolog.Logger
	now         func() time.Time
	loc         *time.Location
	environment string
	degraded    atomic.Bool
}

// Option configures a Ledger.
type Option func(*Ledger)

// WithFallback lets cache answer donation reads and creates when the primary
// backend is unavailable.
func WithFallback(cache domain.Store) Option {
	return func(l *Ledger) { l.fallback = cache }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(l *Ledger) { l.logger = logger }
}

func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// WithLocation sets the zone whose calendar date is "today".
func WithLocation(loc *time.Location) Option {
	return func(l *Ledger) { l.loc = loc }
}

func WithEnvironment(env string) Option {
	return func(l *Ledger) { l.environment = env }
}

// New returns a Ledger over primary.
func New(primary domain.Store, opts ...Option) *Ledger {
	l := &Ledger{
		primary: primary,
		logger:  zerolog.Nop(),
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.fallback != nil && l.fallback.Kind() == primary.Kind() {
		l.fallback = nil
	}
	return l
}

// Today returns the current calendar date in the configured zone.
func (l *Ledger) Today() domain.Date {
	return domain.DateOf(l.now().In(l.loc))
}

func (l *Ledger) Backend() domain.BackendKind { return l.primary.Kind() }

// Close releases the primary backend.
func (l *Ledger) Close() error {
	return l.primary.Close()
}

func (l *Ledger) observe(op string, fn func() error) error {
	started := time.Now()
	err := fn()
	infra.ObserveOp(l.primary.Kind(), op, started, err)
	return err
}

func (l *Ledger) canFallback(err error) bool {
	return l.fallback != nil && errors.Is(err, domain.ErrBackendUnavailable)
}

func (l *Ledger) degrade(op string, err error) {
	l.degraded.Store(true)
	infra.FallbackServed.WithLabelValues(op).Inc()
	logger := infra.ForBackend(l.logger, l.primary.Kind())
	logger.Warn().Err(err).
		Str("op", op).
		Msg("backend unavailable, serving from memory cache")
}

func (l *Ledger) GetDonations(ctx context.Context) ([]domain.Donation, error) {
	const op = "list_donations"
	var out []domain.Donation
	err := l.observe(op, func() (err error) {
		out, err = l.primary.ListDonations(ctx)
		return err
	})
	if l.canFallback(err) {
		l.degrade(op, err)
		return l.fallback.ListDonations(ctx)
	}
	return out, err
}

// CreateDonation records a donation. An empty date means today.
func (l *Ledger) CreateDonation(ctx context.Context, in domain.NewDonation) (domain.Donation, error) {
	const op = "create_donation"
	amount, err := domain.NormalizeAmount(in.Amount)
	if err != nil {
		return domain.Donation{}, err
	}
	in.Amount = amount
	if in.Date == "" {
		in.Date = l.Today()
	} else {
		d, err := domain.ParseDate(string(in.Date))
		if err != nil {
			return domain.Donation{}, err
		}
		in.Date = d
	}

	var out domain.Donation
	err = l.observe(op, func() (err error) {
		out, err = l.primary.InsertDonation(ctx, in)
		return err
	})
	if l.canFallback(err) {
		l.degrade(op, err)
		return l.fallback.InsertDonation(ctx, in)
	}
	return out, err
}

// DeleteDonation removes one donation on backends that support it.
func (l *Ledger) DeleteDonation(ctx context.Context, id int64) error {
	deleter, ok := l.primary.(domain.DonationDeleter)
	if !ok {
		return domain.Wrap(l.primary.Kind(), "delete donation", domain.ErrUnsupported)
	}
	return l.observe("delete_donation", func() error {
		return deleter.DeleteDonation(ctx, id)
	})
}

func (l *Ledger) GetDailyTotals(ctx context.Context) ([]domain.DailyTotal, error) {
	var out []domain.DailyTotal
	err := l.observe("list_daily_totals", func() (err error) {
		out, err = l.primary.ListDailyTotals(ctx)
		return err
	})
	return out, err
}

func (l *Ledger) GetDailyTotal(ctx context.Context, date domain.Date) (domain.DailyTotal, error) {
	d, err := domain.ParseDate(string(date))
	if err != nil {
		return domain.DailyTotal{}, err
	}
	var out domain.DailyTotal
	err = l.observe("get_daily_total", func() (err error) {
		out, err = l.primary.GetDailyTotal(ctx, d)
		return err
	})
	return out, err
}

func (l *Ledger) CreateDailyTotal(ctx context.Context, in domain.NewDailyTotal) (domain.DailyTotal, error) {
	d, err := domain.ParseDate(string(in.Date))
	if err != nil {
		return domain.DailyTotal{}, err
	}
	in.Date = d
	var out domain.DailyTotal
	err = l.observe("create_daily_total", func() (err error) {
		out, err = l.primary.CreateDailyTotal(ctx, in)
		return err
	})
	return out, err
}

func (l *Ledger) UpdateDailyValue(ctx context.Context, date domain.Date, newValue float64, note string) (domain.DailyTotal, error) {
	d, err := domain.ParseDate(string(date))
	if err != nil {
		return domain.DailyTotal{}, err
	}
	var out domain.DailyTotal
	err = l.observe("update_daily_value", func() (err error) {
		out, err = l.primary.UpdateDailyValue(ctx, d, newValue, note)
		return err
	})
	return out, err
}

// CloseDailyTotal closes the day at finalValue, or at its current value when
// finalValue is nil.
func (l *Ledger) CloseDailyTotal(ctx context.Context, date domain.Date, finalValue *float64, note string) (domain.DailyTotal, error) {
	d, err := domain.ParseDate(string(date))
	if err != nil {
		return domain.DailyTotal{}, err
	}
	var out domain.DailyTotal
	err = l.observe("close_daily_total", func() (err error) {
		out, err = l.primary.CloseDailyTotal(ctx, d, finalValue, note)
		return err
	})
	return out, err
}

// ComputeTotals derives the aggregates from the daily-total records.
func (l *Ledger) ComputeTotals(ctx context.Context) (domain.Totals, error) {
	records, err := l.GetDailyTotals(ctx)
	if err != nil {
		return domain.Totals{}, err
	}
	return Summarize(records, l.Today()), nil
}

// Summarize sums the current value of every record and reports today's.
func Summarize(records []domain.DailyTotal, today domain.Date) domain.Totals {
	totals := domain.Totals{StatusToday: domain.StatusNoRecord}
	for _, r := range records {
		totals.TotalGeneral += r.CurrentValue
		if r.Date == today {
			totals.TotalToday = r.CurrentValue
			totals.StatusToday = string(r.Status)
		}
	}
	return totals
}

// Overview lists the daily totals with their aggregates. An empty ledger gets
// today's record opened at zero first.
func (l *Ledger) Overview(ctx context.Context) (Overview, error) {
	records, err := l.GetDailyTotals(ctx)
	if err != nil {
		return Overview{}, err
	}
	if len(records) == 0 {
		_, err := l.CreateDailyTotal(ctx, domain.NewDailyTotal{Date: l.Today(), Note: AutoOpenNote})
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return Overview{}, err
		}
		if records, err = l.GetDailyTotals(ctx); err != nil {
			return Overview{}, err
		}
	}
	return Overview{Records: records, Totals: Summarize(records, l.Today())}, nil
}

func (l *Ledger) ClearAll(ctx context.Context) error {
	return l.observe("clear_all", func() error { return l.primary.ClearAll(ctx) })
}

func (l *Ledger) ClearDonations(ctx context.Context) error {
	return l.observe("clear_donations", func() error { return l.primary.ClearDonations(ctx) })
}

func (l *Ledger) Export(ctx context.Context) (domain.Snapshot, error) {
	var out domain.Snapshot
	err := l.observe("export", func() (err error) {
		out, err = l.primary.Export(ctx)
		return err
	})
	return out, err
}

func (l *Ledger) Import(ctx context.Context, snap domain.Snapshot) error {
	return l.observe("import", func() error { return l.primary.Import(ctx, snap) })
}

// Stats counts the records held by the primary backend.
func (l *Ledger) Stats(ctx context.Context) (domain.Stats, error) {
	var stats domain.Stats
	err := l.observe("stats", func() error {
		donations, err := l.primary.ListDonations(ctx)
		if err != nil {
			return err
		}
		totals, err := l.primary.ListDailyTotals(ctx)
		if err != nil {
			return err
		}
		stats = domain.Stats{Donations: len(donations), DailyTotals: len(totals)}
		return nil
	})
	return stats, err
}

func (l *Ledger) Ping(ctx context.Context) error {
	return l.observe("ping", func() error { return l.primary.Ping(ctx) })
}

func (l *Ledger) Info() Info {
	return Info{
		Backend:         l.primary.Kind(),
		Name:            backendName(l.primary.Kind()),
		Environment:     l.environment,
		FallbackEnabled: l.fallback != nil,
		FallbackServed:  l.degraded.Load(),
	}
}

func backendName(kind domain.BackendKind) string {
	switch kind {
	case domain.BackendSQLite:
		return "SQLite (embedded file)"
	case domain.BackendPostgres:
		return "PostgreSQL (connection pool)"
	case domain.BackendMemory:
		return "in-memory cache"
	}
	return fmt.Sprintf("unknown backend %q", kind)
}

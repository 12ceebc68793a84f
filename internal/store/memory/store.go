// Package memory implements the process-scoped fallback cache. It honours the
// same contract as the persistent stores and loses everything on restart.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"donationledger/internal/domain"
)

// Store is a mutex guarded in-memory ledger.
type Store struct {
	mu             sync.Mutex
	donations      []domain.Donation
	totals         []domain.DailyTotal
	nextDonationID int64
	nextTotalID    int64
	narrator       domain.Narrator
	now            func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithNarrator sets how observation strings are rendered.
func WithNarrator(n domain.Narrator) Option {
	return func(s *Store) { s.narrator = n }
}

// New returns an empty Store.
func New(opts ...Option) *Store {
	s := &Store{nextDonationID: 1, nextTotalID: 1, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

var _ domain.Store = (*Store)(nil)
var _ domain.DonationDeleter = (*Store)(nil)

func (s *Store) Kind() domain.BackendKind { return domain.BackendMemory }

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) fail(op string, err error) error {
	return domain.Wrap(domain.BackendMemory, op, err)
}

func (s *Store) ListDonations(context.Context) ([]domain.Donation, error) {
	s.mu.Lock()
	out := append(make([]domain.Donation, 0, len(s.donations)), s.donations...)
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date > out[j].Date
		}
		return out[i].ID > out[j].ID
	})
	return out, nil
}

func (s *Store) InsertDonation(_ context.Context, in domain.NewDonation) (domain.Donation, error) {
	amount, err := domain.NormalizeAmount(in.Amount)
	if err != nil {
		return domain.Donation{}, s.fail("insert donation", err)
	}
	in.Amount = amount
	now := s.now().UTC()
	if in.Date == "" {
		in.Date = domain.DateOf(now)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Donation{
		ID:        s.nextDonationID,
		Amount:    in.Amount,
		Date:      in.Date,
		Note:      in.Note,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.nextDonationID++
	s.donations = append(s.donations, d)
	return d, nil
}

func (s *Store) DeleteDonation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, d := range s.donations {
		if d.ID == id {
			s.donations = append(s.donations[:i], s.donations[i+1:]...)
			return nil
		}
	}
	return s.fail("delete donation", fmt.Errorf("%w: donation %d", domain.ErrNotFound, id))
}

// indexOf returns the position of date in s.totals or -1. Callers hold s.mu.
func (s *Store) indexOf(date domain.Date) int {
	for i, t := range s.totals {
		if t.Date == date {
			return i
		}
	}
	return -1
}

func (s *Store) GetDailyTotal(_ context.Context, date domain.Date) (domain.DailyTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(date)
	if i < 0 {
		return domain.DailyTotal{}, s.fail("get daily total", fmt.Errorf("%w: daily total %s", domain.ErrNotFound, date))
	}
	return cloneTotal(s.totals[i]), nil
}

func (s *Store) ListDailyTotals(context.Context) ([]domain.DailyTotal, error) {
	s.mu.Lock()
	out := make([]domain.DailyTotal, 0, len(s.totals))
	for _, t := range s.totals {
		out = append(out, cloneTotal(t))
	}
	s.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool { return out[i].Date > out[j].Date })
	return out, nil
}

func (s *Store) CreateDailyTotal(_ context.Context, in domain.NewDailyTotal) (domain.DailyTotal, error) {
	start, err := domain.NormalizeValue("starting value", in.StartingValue)
	if err != nil {
		return domain.DailyTotal{}, s.fail("create daily total", err)
	}
	in.StartingValue = start
	now := s.now().UTC()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(in.Date) >= 0 {
		return domain.DailyTotal{}, s.fail("create daily total", fmt.Errorf("%w: daily total %s already exists", domain.ErrConflict, in.Date))
	}
	t := domain.DailyTotal{
		ID:            s.nextTotalID,
		Date:          in.Date,
		StartingValue: in.StartingValue,
		CurrentValue:  in.StartingValue,
		Observations:  []string{s.narrator.Opened(in.StartingValue, in.Note)},
		Status:        domain.StatusOpen,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	s.nextTotalID++
	s.totals = append(s.totals, t)
	return cloneTotal(t), nil
}

// openDay returns the index of an open daily total. Callers hold s.mu.
func (s *Store) openDay(op string, date domain.Date) (int, error) {
	i := s.indexOf(date)
	if i < 0 {
		return -1, s.fail(op, fmt.Errorf("%w: daily total %s", domain.ErrNotFound, date))
	}
	if s.totals[i].Closed() {
		return -1, s.fail(op, fmt.Errorf("%w: daily total %s is closed", domain.ErrConflict, date))
	}
	return i, nil
}

func (s *Store) UpdateDailyValue(_ context.Context, date domain.Date, newValue float64, note string) (domain.DailyTotal, error) {
	newValue, err := domain.NormalizeValue("new value", newValue)
	if err != nil {
		return domain.DailyTotal{}, s.fail("update daily value", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.openDay("update daily value", date)
	if err != nil {
		return domain.DailyTotal{}, err
	}
	t := &s.totals[i]
	t.Observations = append(t.Observations, s.narrator.ValueChanged(t.CurrentValue, newValue, note))
	t.CurrentValue = newValue
	t.UpdatedAt = s.now().UTC()
	return cloneTotal(*t), nil
}

func (s *Store) CloseDailyTotal(_ context.Context, date domain.Date, finalValue *float64, note string) (domain.DailyTotal, error) {
	if finalValue != nil {
		final, err := domain.NormalizeValue("final value", *finalValue)
		if err != nil {
			return domain.DailyTotal{}, s.fail("close daily total", err)
		}
		finalValue = &final
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	i, err := s.openDay("close daily total", date)
	if err != nil {
		return domain.DailyTotal{}, err
	}
	t := &s.totals[i]
	final := t.CurrentValue
	if finalValue != nil {
		final = *finalValue
	}
	t.Observations = append(t.Observations, s.narrator.Closed(final, note))
	t.CurrentValue = final
	t.FinalValue = &final
	t.Status = domain.StatusClosed
	t.UpdatedAt = s.now().UTC()
	return cloneTotal(*t), nil
}

func (s *Store) ClearDonations(context.Context) error {
	s.mu.Lock()
	s.donations = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) ClearAll(context.Context) error {
	s.mu.Lock()
	s.donations = nil
	s.totals = nil
	s.mu.Unlock()
	return nil
}

func (s *Store) Export(context.Context) (domain.Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := domain.Snapshot{
		Donations:   append([]domain.Donation{}, s.donations...),
		DailyTotals: make([]domain.DailyTotal, 0, len(s.totals)),
		ExportedAt:  s.now().UTC(),
	}
	for _, t := range s.totals {
		snap.DailyTotals = append(snap.DailyTotals, cloneTotal(t))
	}
	return snap, nil
}

// Import replaces every record with the contents of snap.
func (s *Store) Import(_ context.Context, snap domain.Snapshot) error {
	snap, err := domain.NormalizeSnapshot(snap)
	if err != nil {
		return s.fail("import", err)
	}

	donations := append([]domain.Donation(nil), snap.Donations...)
	totals := make([]domain.DailyTotal, 0, len(snap.DailyTotals))
	var maxDonation, maxTotal int64
	for _, d := range donations {
		maxDonation = max(maxDonation, d.ID)
	}
	for _, t := range snap.DailyTotals {
		totals = append(totals, cloneTotal(t))
		maxTotal = max(maxTotal, t.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.donations = donations
	s.totals = totals
	s.nextDonationID = maxDonation + 1
	s.nextTotalID = maxTotal + 1
	return nil
}

func cloneTotal(t domain.DailyTotal) domain.DailyTotal {
	t.Observations = append([]string{}, t.Observations...)
	if t.FinalValue != nil {
		v := *t.FinalValue
		t.FinalValue = &v
	}
	return t
}

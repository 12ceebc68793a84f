package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"golang.org/x/text/language"

	"donationledger/internal/domain"
	"donationledger/internal/sqlinline"
)

func newTestStore(t *testing.T, pool *fakePool) *Store {
	t.Helper()
	s, err := New(Config{
		Pool:         pool,
		Narrator:     domain.NewNarrator(language.English),
		Logger:       zerolog.Nop(),
		QueryTimeout: time.Second,
		Now:          func() time.Time { return stamp },
	})
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	return s
}

func assertReleased(t *testing.T, pool *fakePool, want int) {
	t.Helper()
	if pool.acquired != want || pool.released != want {
		t.Fatalf("acquired %d released %d, want %d each", pool.acquired, pool.released, want)
	}
}

func TestNewRequiresPool(t *testing.T) {
	if _, err := New(Config{}); err == nil {
		t.Fatal("expected error without pool")
	}
}

func TestListDonationsParsesNumericText(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgListDonations, response{rows: [][]any{
		donationRow(2, "12.50", "2024-03-10", nil),
		donationRow(1, "1000.05", "2024-03-09", "gift"),
	}})
	s := newTestStore(t, pool)

	got, err := s.ListDonations(context.Background())
	if err != nil {
		t.Fatalf("ListDonations() error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2", len(got))
	}
	if got[0].Amount != 12.5 || got[0].Note != "" || got[1].Amount != 1000.05 || got[1].Note != "gift" {
		t.Errorf("unexpected donations: %#v", got)
	}
	if len(pool.db.callsTo(sqlinline.QPgCreateDonationsTable)) != 1 {
		t.Errorf("schema was not checked before listing")
	}
	assertReleased(t, pool, 1)
}

func TestListEmptyReturnsEmptySlice(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgListDailyTotals, response{})
	s := newTestStore(t, pool)

	got, err := s.ListDailyTotals(context.Background())
	if err != nil {
		t.Fatalf("ListDailyTotals() error: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("got %#v, want empty slice", got)
	}
}

func TestInsertDonationSendsFixedPointAmount(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgInsertDonation, response{rows: [][]any{donationRow(7, "12.50", "2024-03-10", "cash")}})
	s := newTestStore(t, pool)

	d, err := s.InsertDonation(context.Background(), domain.NewDonation{Amount: 12.5, Note: "cash"})
	if err != nil {
		t.Fatalf("InsertDonation() error: %v", err)
	}
	if d.ID != 7 || d.Amount != 12.5 {
		t.Errorf("unexpected donation: %#v", d)
	}
	calls := pool.db.callsTo(sqlinline.QPgInsertDonation)
	if len(calls) != 1 {
		t.Fatalf("insert calls = %d, want 1", len(calls))
	}
	if calls[0].args[0] != "12.50" || calls[0].args[2] != "2024-03-10" {
		t.Errorf("args = %v", calls[0].args)
	}
	assertReleased(t, pool, 1)
}

func TestInsertDonationValidationDoesNotAcquire(t *testing.T) {
	pool := newFakePool()
	s := newTestStore(t, pool)

	_, err := s.InsertDonation(context.Background(), domain.NewDonation{Amount: -5})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	assertReleased(t, pool, 0)
}

func TestInsertDonationRoundsToCents(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgInsertDonation, response{rows: [][]any{donationRow(8, "10.01", "2024-03-10", nil)}})
	s := newTestStore(t, pool)

	d, err := s.InsertDonation(context.Background(), domain.NewDonation{Amount: 10.005})
	if err != nil {
		t.Fatalf("InsertDonation() error: %v", err)
	}
	if d.Amount != 10.01 {
		t.Errorf("amount = %v, want 10.01", d.Amount)
	}
	if got := pool.db.callsTo(sqlinline.QPgInsertDonation)[0].args[0]; got != "10.01" {
		t.Errorf("amount arg = %v, want 10.01", got)
	}

	_, err = s.InsertDonation(context.Background(), domain.NewDonation{Amount: 0.004})
	if !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	assertReleased(t, pool, 1)
}

func TestQueryFailureReleasesConnection(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgListDonations, response{err: &pgconn.PgError{Code: "42501", Message: "permission denied"}})
	s := newTestStore(t, pool)

	_, err := s.ListDonations(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}
	if errors.Is(err, domain.ErrBackendUnavailable) {
		t.Errorf("server error reported as unavailable: %v", err)
	}
	var be *domain.BackendError
	if !errors.As(err, &be) || be.Backend != domain.BackendPostgres {
		t.Errorf("err = %v, want postgres annotation", err)
	}
	assertReleased(t, pool, 1)
}

func TestScanFailureReleasesConnection(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgListDonations, response{rows: [][]any{donationRow(1, "not-a-number", "2024-03-10", nil)}})
	s := newTestStore(t, pool)

	if _, err := s.ListDonations(context.Background()); err == nil {
		t.Fatal("expected parse error")
	}
	assertReleased(t, pool, 1)
}

func TestAcquireFailureIsUnavailable(t *testing.T) {
	pool := newFakePool()
	pool.acquireErr = errors.New("dial tcp: connection refused")
	s := newTestStore(t, pool)

	if _, err := s.ListDonations(context.Background()); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("err = %v, want ErrBackendUnavailable", err)
	}
	if err := s.Ping(context.Background()); !errors.Is(err, domain.ErrBackendUnavailable) {
		t.Fatalf("ping err = %v, want ErrBackendUnavailable", err)
	}
	assertReleased(t, pool, 0)
}

func TestConcurrentSchemaCreationIsTolerated(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgCreateDonationsTable, response{err: &pgconn.PgError{Code: codeDuplicateTable}})
	pool.db.on(sqlinline.QPgCreateDailyTotalsTable, response{err: &pgconn.PgError{Code: codeUniqueViolation}})
	pool.db.on(sqlinline.QPgListDonations, response{})
	s := newTestStore(t, pool)

	if _, err := s.ListDonations(context.Background()); err != nil {
		t.Fatalf("ListDonations() error: %v", err)
	}
}

func TestSchemaFailureReleasesConnection(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgCreateDonationsTable, response{err: &pgconn.PgError{Code: "42501"}})
	s := newTestStore(t, pool)

	if _, err := s.ListDonations(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if len(pool.db.callsTo(sqlinline.QPgListDonations)) != 0 {
		t.Errorf("listed despite schema failure")
	}
	assertReleased(t, pool, 1)
}

func TestCreateDailyTotalUpserts(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgUpsertDailyTotal, response{rows: [][]any{
		totalRow(3, "2024-03-10", "50.00", "50.00", nil, `["opened at 10.00","opened at 50.00: second"]`, "open"),
	}})
	s := newTestStore(t, pool)

	got, err := s.CreateDailyTotal(context.Background(), domain.NewDailyTotal{Date: "2024-03-10", StartingValue: 50, Note: "second"})
	if err != nil {
		t.Fatalf("CreateDailyTotal() error: %v", err)
	}
	if got.CurrentValue != 50 || len(got.Observations) != 2 || got.FinalValue != nil || got.Status != domain.StatusOpen {
		t.Errorf("unexpected record: %#v", got)
	}
	args := pool.db.callsTo(sqlinline.QPgUpsertDailyTotal)[0].args
	if args[1] != "50.00" || args[2] != "opened at 50.00: second" {
		t.Errorf("args = %v", args)
	}
	assertReleased(t, pool, 1)
}

func TestCreateDailyTotalOnClosedDayConflicts(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgUpsertDailyTotal, response{})
	s := newTestStore(t, pool)

	_, err := s.CreateDailyTotal(context.Background(), domain.NewDailyTotal{Date: "2024-03-10", StartingValue: 5})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	assertReleased(t, pool, 1)
}

func TestGetDailyTotalMissingIsNotFound(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgGetDailyTotal, response{})
	s := newTestStore(t, pool)

	if _, err := s.GetDailyTotal(context.Background(), "2024-01-01"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	assertReleased(t, pool, 1)
}

func TestUpdateDailyValueNarratesLockedValue(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgLockDailyTotal, response{rows: [][]any{
		totalRow(1, "2024-03-10", "100.00", "100.00", nil, `["opened at 100.00"]`, "open"),
	}})
	pool.db.on(sqlinline.QPgUpdateDailyValue, response{rows: [][]any{
		totalRow(1, "2024-03-10", "100.00", "150.00", nil, `["opened at 100.00","100.00 → 150.00: note"]`, "open"),
	}})
	s := newTestStore(t, pool)

	got, err := s.UpdateDailyValue(context.Background(), "2024-03-10", 150, "note")
	if err != nil {
		t.Fatalf("UpdateDailyValue() error: %v", err)
	}
	if got.CurrentValue != 150 {
		t.Errorf("CurrentValue = %v, want 150", got.CurrentValue)
	}
	args := pool.db.callsTo(sqlinline.QPgUpdateDailyValue)[0].args
	if args[1] != "150.00" || args[2] != "100.00 → 150.00: note" {
		t.Errorf("args = %v", args)
	}
	if pool.db.commits != 1 || pool.db.rollbacks != 0 {
		t.Errorf("commits %d rollbacks %d", pool.db.commits, pool.db.rollbacks)
	}
	assertReleased(t, pool, 1)
}

func TestUpdateClosedDayRollsBack(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgLockDailyTotal, response{rows: [][]any{
		totalRow(1, "2024-03-10", "100.00", "120.00", "120.00", `[]`, "closed"),
	}})
	s := newTestStore(t, pool)

	_, err := s.UpdateDailyValue(context.Background(), "2024-03-10", 150, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}
	if len(pool.db.callsTo(sqlinline.QPgUpdateDailyValue)) != 0 {
		t.Errorf("closed day was updated")
	}
	if pool.db.commits != 0 || pool.db.rollbacks != 1 {
		t.Errorf("commits %d rollbacks %d", pool.db.commits, pool.db.rollbacks)
	}
	assertReleased(t, pool, 1)
}

func TestUpdateMissingDayIsNotFound(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgLockDailyTotal, response{})
	s := newTestStore(t, pool)

	if _, err := s.UpdateDailyValue(context.Background(), "2024-03-10", 1, ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	assertReleased(t, pool, 1)
}

func TestCloseDefaultsToCurrentValue(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgLockDailyTotal, response{rows: [][]any{
		totalRow(1, "2024-03-10", "10.00", "42.00", nil, `[]`, "open"),
	}})
	pool.db.on(sqlinline.QPgCloseDailyTotal, response{rows: [][]any{
		totalRow(1, "2024-03-10", "10.00", "42.00", "42.00", `["closed at 42.00"]`, "closed"),
	}})
	s := newTestStore(t, pool)

	got, err := s.CloseDailyTotal(context.Background(), "2024-03-10", nil, "")
	if err != nil {
		t.Fatalf("CloseDailyTotal() error: %v", err)
	}
	if got.FinalValue == nil || *got.FinalValue != 42 || !got.Closed() {
		t.Errorf("unexpected record: %#v", got)
	}
	args := pool.db.callsTo(sqlinline.QPgCloseDailyTotal)[0].args
	if args[1] != "42.00" || args[2] != "closed at 42.00" {
		t.Errorf("args = %v", args)
	}
}

func TestDeleteDonation(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgDeleteDonation, response{tag: "DELETE 1"})
	s := newTestStore(t, pool)

	if err := s.DeleteDonation(context.Background(), 4); err != nil {
		t.Fatalf("DeleteDonation() error: %v", err)
	}
	pool.db.on(sqlinline.QPgDeleteDonation, response{tag: "DELETE 0"})
	if err := s.DeleteDonation(context.Background(), 4); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
	assertReleased(t, pool, 2)
}

func TestImportReplacesAndResetsSequences(t *testing.T) {
	pool := newFakePool()
	s := newTestStore(t, pool)
	final := 9.5
	snap := domain.Snapshot{
		Donations: []domain.Donation{{ID: 4, Amount: 3, Date: "2024-03-01", CreatedAt: stamp, UpdatedAt: stamp}},
		DailyTotals: []domain.DailyTotal{
			{ID: 2, Date: "2024-03-01", StartingValue: 1, CurrentValue: 9.5, FinalValue: &final, Status: domain.StatusClosed, CreatedAt: stamp, UpdatedAt: stamp},
			{ID: 3, Date: "2024-03-02", StartingValue: 2, CurrentValue: 2, Status: domain.StatusOpen, CreatedAt: stamp, UpdatedAt: stamp},
		},
	}

	if err := s.Import(context.Background(), snap); err != nil {
		t.Fatalf("Import() error: %v", err)
	}
	if n := len(pool.db.callsTo(sqlinline.QPgImportDailyTotal)); n != 2 {
		t.Fatalf("daily total inserts = %d, want 2", n)
	}
	totals := pool.db.callsTo(sqlinline.QPgImportDailyTotal)
	if p, ok := totals[0].args[4].(*string); !ok || p == nil || *p != "9.50" {
		t.Errorf("final value arg = %#v", totals[0].args[4])
	}
	if p, ok := totals[1].args[4].(*string); !ok || p != nil {
		t.Errorf("open day final value arg = %#v, want nil", totals[1].args[4])
	}
	if totals[1].args[5] != "[]" {
		t.Errorf("observations arg = %v, want []", totals[1].args[5])
	}
	if len(pool.db.callsTo(sqlinline.QPgResetDonationSeq)) != 1 || len(pool.db.callsTo(sqlinline.QPgResetDailyTotalSeq)) != 1 {
		t.Errorf("sequences were not reset")
	}
	if pool.db.commits != 1 {
		t.Errorf("commits = %d, want 1", pool.db.commits)
	}
	assertReleased(t, pool, 1)
}

func TestImportFailureRollsBack(t *testing.T) {
	pool := newFakePool()
	pool.db.on(sqlinline.QPgImportDonation, response{err: &pgconn.PgError{Code: "23514"}})
	s := newTestStore(t, pool)
	snap := domain.Snapshot{Donations: []domain.Donation{{ID: 1, Amount: 3, Date: "2024-03-01", CreatedAt: stamp, UpdatedAt: stamp}}}

	if err := s.Import(context.Background(), snap); err == nil {
		t.Fatal("expected error")
	}
	if pool.db.commits != 0 || pool.db.rollbacks != 1 {
		t.Errorf("commits %d rollbacks %d", pool.db.commits, pool.db.rollbacks)
	}
	assertReleased(t, pool, 1)
}

package domain

import "context"

// BackendKind names a persistence backend.
type BackendKind string

const (
	BackendSQLite   BackendKind = "sqlite"
	BackendPostgres BackendKind = "postgres"
	BackendMemory   BackendKind = "memory"
)

// ParseBackendKind maps an explicit backend flag to a BackendKind.
func ParseBackendKind(s string) (BackendKind, bool) {
	switch s {
	case "sqlite", "sqlite3":
		return BackendSQLite, true
	case "postgres", "postgresql", "pg":
		return BackendPostgres, true
	case "memory", "mock":
		return BackendMemory, true
	}
	return "", false
}

// Store is the operation set every backend implements. Missing daily totals
// are reported as ErrNotFound.
type Store interface {
	Kind() BackendKind
	Ping(ctx context.Context) error

	ListDonations(ctx context.Context) ([]Donation, error)
	InsertDonation(ctx context.Context, in NewDonation) (Donation, error)

	GetDailyTotal(ctx context.Context, date Date) (DailyTotal, error)
	ListDailyTotals(ctx context.Context) ([]DailyTotal, error)
	CreateDailyTotal(ctx context.Context, in NewDailyTotal) (DailyTotal, error)
	UpdateDailyValue(ctx context.Context, date Date, newValue float64, note string) (DailyTotal, error)
	CloseDailyTotal(ctx context.Context, date Date, finalValue *float64, note string) (DailyTotal, error)

	ClearDonations(ctx context.Context) error
	ClearAll(ctx context.Context) error

	Export(ctx context.Context) (Snapshot, error)
	Import(ctx context.Context, snap Snapshot) error

	Close() error
}

// DonationDeleter is implemented by backends that can remove a single donation.
type DonationDeleter interface {
	DeleteDonation(ctx context.Context, id int64) error
}

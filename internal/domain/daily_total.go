package domain

import (
	"fmt"
	"time"
)

// DayStatus is the lifecycle state of a daily total.
type DayStatus string

const (
	StatusOpen   DayStatus = "open"
	StatusClosed DayStatus = "closed"
)

// StatusNoRecord is reported by Totals when today has no daily total.
const StatusNoRecord = "no-record"

// DailyTotal tracks the running value of a single calendar date.
type DailyTotal struct {
	ID            int64     `json:"id"`
	Date          Date      `json:"date"`
	StartingValue float64   `json:"starting_value"`
	CurrentValue  float64   `json:"current_value"`
	FinalValue    *float64  `json:"final_value,omitempty"`
	Observations  []string  `json:"observations"`
	Status        DayStatus `json:"status"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Closed reports whether the day no longer accepts value changes.
func (d DailyTotal) Closed() bool { return d.Status == StatusClosed }

// NewDailyTotal carries the caller supplied fields of a daily total.
type NewDailyTotal struct {
	Date          Date
	StartingValue float64
	Note          string
}

// Totals are the aggregates derived from the daily-total ledger.
type Totals struct {
	TotalGeneral float64 `json:"total_general"`
	TotalToday   float64 `json:"total_today"`
	StatusToday  string  `json:"status_today"`
}

// Snapshot is the portable form of every record held by a backend.
type Snapshot struct {
	Donations   []Donation   `json:"donations"`
	DailyTotals []DailyTotal `json:"daily_totals"`
	ExportedAt  time.Time    `json:"exported_at"`
}

// Stats counts the records held by the active backend.
type Stats struct {
	Donations   int `json:"donations"`
	DailyTotals int `json:"daily_totals"`
}

// NormalizeSnapshot checks that snap can be imported without breaking the
// rule of one record per date, unique ids and the open/closed lifecycle. The
// returned copy has every amount and value rounded to cents.
func NormalizeSnapshot(snap Snapshot) (Snapshot, error) {
	out := Snapshot{
		Donations:   make([]Donation, 0, len(snap.Donations)),
		DailyTotals: make([]DailyTotal, 0, len(snap.DailyTotals)),
		ExportedAt:  snap.ExportedAt,
	}

	donationIDs := make(map[int64]struct{}, len(snap.Donations))
	for _, d := range snap.Donations {
		if _, dup := donationIDs[d.ID]; dup || d.ID <= 0 {
			return Snapshot{}, fmt.Errorf("%w: donation id %d is duplicated or not positive", ErrValidation, d.ID)
		}
		donationIDs[d.ID] = struct{}{}
		amount, err := NormalizeAmount(d.Amount)
		if err != nil {
			return Snapshot{}, fmt.Errorf("donation %d: %w", d.ID, err)
		}
		d.Amount = amount
		if d.Date, err = ParseDate(string(d.Date)); err != nil {
			return Snapshot{}, fmt.Errorf("donation %d: %w", d.ID, err)
		}
		out.Donations = append(out.Donations, d)
	}

	totalIDs := make(map[int64]struct{}, len(snap.DailyTotals))
	dates := make(map[Date]struct{}, len(snap.DailyTotals))
	for _, t := range snap.DailyTotals {
		if _, dup := totalIDs[t.ID]; dup || t.ID <= 0 {
			return Snapshot{}, fmt.Errorf("%w: daily total id %d is duplicated or not positive", ErrValidation, t.ID)
		}
		totalIDs[t.ID] = struct{}{}
		date, err := ParseDate(string(t.Date))
		if err != nil {
			return Snapshot{}, fmt.Errorf("daily total %d: %w", t.ID, err)
		}
		if _, dup := dates[date]; dup {
			return Snapshot{}, fmt.Errorf("%w: daily total %s appears twice", ErrValidation, date)
		}
		dates[date] = struct{}{}
		t.Date = date

		switch t.Status {
		case StatusOpen:
			if t.FinalValue != nil {
				return Snapshot{}, fmt.Errorf("%w: open daily total %s has a final value", ErrValidation, date)
			}
		case StatusClosed:
			if t.FinalValue == nil {
				return Snapshot{}, fmt.Errorf("%w: closed daily total %s has no final value", ErrValidation, date)
			}
		default:
			return Snapshot{}, fmt.Errorf("%w: daily total %s has status %q", ErrValidation, date, t.Status)
		}

		if t.StartingValue, err = NormalizeValue("starting value", t.StartingValue); err != nil {
			return Snapshot{}, fmt.Errorf("daily total %s: %w", date, err)
		}
		if t.CurrentValue, err = NormalizeValue("current value", t.CurrentValue); err != nil {
			return Snapshot{}, fmt.Errorf("daily total %s: %w", date, err)
		}
		if t.FinalValue != nil {
			final, err := NormalizeValue("final value", *t.FinalValue)
			if err != nil {
				return Snapshot{}, fmt.Errorf("daily total %s: %w", date, err)
			}
			t.FinalValue = &final
		}
		t.Observations = append([]string(nil), t.Observations...)
		out.DailyTotals = append(out.DailyTotals, t)
	}
	return out, nil
}

package postgres

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"donationledger/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

// numeric columns are selected as text and parsed here so that both backends
// hand out the same float64 values.
func parseNumeric(s string) (float64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("parse numeric %q: %w", s, err)
	}
	return d.InexactFloat64(), nil
}

func numericArg(v float64) string {
	return decimal.NewFromFloat(v).StringFixed(2)
}

func numericArgPtr(v *float64) *string {
	if v == nil {
		return nil
	}
	s := numericArg(*v)
	return &s
}

func scanDonation(row scanner) (domain.Donation, error) {
	var (
		d            domain.Donation
		amount, date string
		note         *string
	)
	if err := row.Scan(&d.ID, &amount, &date, &note, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return domain.Donation{}, err
	}
	v, err := parseNumeric(amount)
	if err != nil {
		return domain.Donation{}, err
	}
	d.Amount = v
	d.Date = domain.Date(date)
	d.CreatedAt = d.CreatedAt.UTC()
	d.UpdatedAt = d.UpdatedAt.UTC()
	if note != nil {
		d.Note = *note
	}
	return d, nil
}

func scanTotal(row scanner) (domain.DailyTotal, error) {
	var (
		t                    domain.DailyTotal
		date, start, current string
		final                *string
		obs                  []byte
		status               string
		createdAt, updatedAt time.Time
	)
	if err := row.Scan(&t.ID, &date, &start, &current, &final, &obs, &status, &createdAt, &updatedAt); err != nil {
		return domain.DailyTotal{}, err
	}
	var err error
	if t.StartingValue, err = parseNumeric(start); err != nil {
		return domain.DailyTotal{}, err
	}
	if t.CurrentValue, err = parseNumeric(current); err != nil {
		return domain.DailyTotal{}, err
	}
	if final != nil {
		v, err := parseNumeric(*final)
		if err != nil {
			return domain.DailyTotal{}, err
		}
		t.FinalValue = &v
	}
	t.Observations = []string{}
	if len(obs) > 0 {
		if err := json.Unmarshal(obs, &t.Observations); err != nil {
			return domain.DailyTotal{}, fmt.Errorf("decode observations of %s: %w", date, err)
		}
	}
	t.Date = domain.Date(date)
	t.Status = domain.DayStatus(status)
	t.CreatedAt = createdAt.UTC()
	t.UpdatedAt = updatedAt.UTC()
	return t, nil
}

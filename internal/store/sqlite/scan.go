package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"donationledger/internal/domain"
)

type scanner interface {
	Scan(dest ...any) error
}

func scanDonation(row scanner) (domain.Donation, error) {
	var (
		d                    domain.Donation
		date                 string
		note                 sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &d.Amount, &date, &note, &createdAt, &updatedAt); err != nil {
		return domain.Donation{}, err
	}
	d.Date = domain.Date(date)
	d.Note = note.String
	var err error
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.Donation{}, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.Donation{}, err
	}
	return d, nil
}

func scanTotal(row scanner) (domain.DailyTotal, error) {
	var (
		t                    domain.DailyTotal
		date, obs, status    string
		final                sql.NullFloat64
		createdAt, updatedAt string
	)
	if err := row.Scan(&t.ID, &date, &t.StartingValue, &t.CurrentValue, &final, &obs, &status, &createdAt, &updatedAt); err != nil {
		return domain.DailyTotal{}, err
	}
	t.Date = domain.Date(date)
	t.Status = domain.DayStatus(status)
	if final.Valid {
		v := final.Float64
		t.FinalValue = &v
	}
	t.Observations = []string{}
	if obs != "" {
		if err := json.Unmarshal([]byte(obs), &t.Observations); err != nil {
			return domain.DailyTotal{}, fmt.Errorf("decode observations of %s: %w", date, err)
		}
	}
	var err error
	if t.CreatedAt, err = parseTime(createdAt); err != nil {
		return domain.DailyTotal{}, err
	}
	if t.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return domain.DailyTotal{}, err
	}
	return t, nil
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

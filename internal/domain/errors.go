package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrValidation         = errors.New("validation failed")
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("conflict")
	ErrBackendUnavailable = errors.New("backend unavailable")
	ErrUnsupported        = errors.New("operation not supported by backend")
)

// BackendError annotates an error with the backend and operation that raised it.
type BackendError struct {
	Backend BackendKind
	Op      string
	Err     error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %s: %v", e.Backend, e.Op, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Wrap annotates err with backend and op. A nil err stays nil and an error
// that already carries a backend annotation is returned unchanged.
func Wrap(backend BackendKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var be *BackendError
	if errors.As(err, &be) {
		return err
	}
	return &BackendError{Backend: backend, Op: op, Err: err}
}

// Unavailable marks err as a connectivity or initialization failure.
func Unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
}

// NormalizeAmount rounds a donation amount to cents. Amounts that are not
// finite or do not round to a positive number are rejected.
func NormalizeAmount(amount float64) (float64, error) {
	if !(amount > 0) || amount > maxAmount {
		return 0, fmt.Errorf("%w: amount must be a positive number", ErrValidation)
	}
	rounded := RoundCents(amount)
	if rounded <= 0 {
		return 0, fmt.Errorf("%w: amount must be at least 0.01", ErrValidation)
	}
	return rounded, nil
}

// NormalizeValue rounds a daily value to cents and rejects non-finite input.
func NormalizeValue(name string, v float64) (float64, error) {
	if v != v || v > maxAmount || v < -maxAmount {
		return 0, fmt.Errorf("%w: %s must be a finite number", ErrValidation, name)
	}
	return RoundCents(v), nil
}

// RoundCents rounds v half away from zero to two decimal places, which is
// what NUMERIC(12,2) stores. v must be finite.
func RoundCents(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// maxAmount is the largest value NUMERIC(12,2) holds.
const maxAmount = 9_999_999_999.99

package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"donationledger/internal/domain"
)

type dailyTotalRequest struct {
	Date          string   `json:"date" validate:"required,datetime=2006-01-02"`
	StartingValue *float64 `json:"starting_value" validate:"required"`
	Note          string   `json:"note" validate:"max=500"`
}

type dailyValueRequest struct {
	NewValue *float64 `json:"new_value" validate:"required"`
	Note     string   `json:"note" validate:"required,max=500"`
}

type closeDayRequest struct {
	FinalValue *float64 `json:"final_value"`
	Note       string   `json:"note" validate:"max=500"`
}

func (a *App) DailyTotalsOverview(w http.ResponseWriter, r *http.Request) {
	ov, err := a.Ledger.Overview(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, ov)
}

func (a *App) DailyTotalGet(w http.ResponseWriter, r *http.Request) {
	t, err := a.Ledger.GetDailyTotal(r.Context(), domain.Date(chi.URLParam(r, "date")))
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, t)
}

func (a *App) DailyTotalCreate(w http.ResponseWriter, r *http.Request) {
	var req dailyTotalRequest
	if !a.decode(w, r, &req, false) {
		return
	}
	t, err := a.Ledger.CreateDailyTotal(r.Context(), domain.NewDailyTotal{
		Date:          domain.Date(req.Date),
		StartingValue: *req.StartingValue,
		Note:          req.Note,
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, t)
}

func (a *App) DailyTotalUpdateValue(w http.ResponseWriter, r *http.Request) {
	var req dailyValueRequest
	if !a.decode(w, r, &req, false) {
		return
	}
	t, err := a.Ledger.UpdateDailyValue(r.Context(), domain.Date(chi.URLParam(r, "date")), *req.NewValue, req.Note)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, t)
}

func (a *App) DailyTotalClose(w http.ResponseWriter, r *http.Request) {
	var req closeDayRequest
	if !a.decode(w, r, &req, true) {
		return
	}
	t, err := a.Ledger.CloseDailyTotal(r.Context(), domain.Date(chi.URLParam(r, "date")), req.FinalValue, req.Note)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, t)
}

func (a *App) Totals(w http.ResponseWriter, r *http.Request) {
	totals, err := a.Ledger.ComputeTotals(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, totals)
}

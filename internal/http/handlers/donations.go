package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"donationledger/internal/domain"
)

type donationRequest struct {
	Amount *float64 `json:"amount" validate:"required,gt=0"`
	Note   string   `json:"note" validate:"max=500"`
	Date   string   `json:"date" validate:"omitempty,datetime=2006-01-02"`
}

func (a *App) DonationsList(w http.ResponseWriter, r *http.Request) {
	items, err := a.Ledger.GetDonations(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{"items": items})
}

func (a *App) DonationsCreate(w http.ResponseWriter, r *http.Request) {
	var req donationRequest
	if !a.decode(w, r, &req, false) {
		return
	}
	d, err := a.Ledger.CreateDonation(r.Context(), domain.NewDonation{
		Amount: *req.Amount,
		Note:   req.Note,
		Date:   domain.Date(req.Date),
	})
	if err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusCreated, d)
}

func (a *App) DonationsDelete(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		a.error(w, http.StatusBadRequest, "bad_request", "id must be a positive integer")
		return
	}
	if err := a.Ledger.DeleteDonation(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

package handlers

import (
	"fmt"
	"net/http"

	"donationledger/internal/domain"
	"donationledger/internal/ledger"
)

type statusResponse struct {
	ledger.Info
	Connected bool          `json:"connected"`
	Error     string        `json:"error,omitempty"`
	Stats     *domain.Stats `json:"stats,omitempty"`
	Today     domain.Date   `json:"today"`
}

func (a *App) AdminExport(w http.ResponseWriter, r *http.Request) {
	snap, err := a.Ledger.Export(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="ledger-%s.json"`, a.Ledger.Today()))
	a.json(w, http.StatusOK, snap)
}

func (a *App) AdminImport(w http.ResponseWriter, r *http.Request) {
	var snap domain.Snapshot
	if !a.decode(w, r, &snap, false) {
		return
	}
	if err := a.Ledger.Import(r.Context(), snap); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]any{
		"message":      "snapshot imported",
		"donations":    len(snap.Donations),
		"daily_totals": len(snap.DailyTotals),
	})
}

func (a *App) AdminClear(w http.ResponseWriter, r *http.Request) {
	if err := a.Ledger.ClearAll(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "all data cleared"})
}

func (a *App) AdminClearDonations(w http.ResponseWriter, r *http.Request) {
	if err := a.Ledger.ClearDonations(r.Context()); err != nil {
		a.fail(w, r, err)
		return
	}
	a.json(w, http.StatusOK, map[string]string{"message": "donations cleared"})
}

// AdminStatus reports the active backend and whether it answers.
func (a *App) AdminStatus(w http.ResponseWriter, r *http.Request) {
	resp := statusResponse{Info: a.Ledger.Info(), Today: a.Ledger.Today()}
	if err := a.Ledger.Ping(r.Context()); err != nil {
		resp.Error = err.Error()
	} else {
		resp.Connected = true
		if stats, err := a.Ledger.Stats(r.Context()); err == nil {
			resp.Stats = &stats
		}
	}
	a.json(w, http.StatusOK, resp)
}

package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"donationledger/internal/http/handlers"
	"donationledger/internal/middleware"
)

// Options tunes the router middleware.
type Options struct {
	Logger         zerolog.Logger
	AllowedOrigins []string
	// AdminLimiter throttles the admin routes when set.
	AdminLimiter *middleware.Limiter
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	r := chi.NewRouter()

	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(opts.Logger),
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/v1/donations", func(r chi.Router) {
		r.Get("/", app.DonationsList)
		r.Post("/", app.DonationsCreate)
		r.Delete("/{id}", app.DonationsDelete)
	})

	r.Route("/v1/daily-totals", func(r chi.Router) {
		r.Get("/", app.DailyTotalsOverview)
		r.Post("/", app.DailyTotalCreate)
		r.Get("/{date}", app.DailyTotalGet)
		r.Post("/{date}/value", app.DailyTotalUpdateValue)
		r.Post("/{date}/close", app.DailyTotalClose)
	})
	r.Get("/v1/totals", app.Totals)

	r.Route("/v1/admin", func(r chi.Router) {
		if opts.AdminLimiter != nil {
			r.Use(middleware.RateLimit(opts.AdminLimiter))
		}
		r.Get("/export", app.AdminExport)
		r.Post("/import", app.AdminImport)
		r.Post("/clear", app.AdminClear)
		r.Post("/clear-donations", app.AdminClearDonations)
		r.Get("/status", app.AdminStatus)
	})

	return r
}

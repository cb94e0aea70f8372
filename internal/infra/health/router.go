package health

import (
	"encoding/json"
	"net/http"
	"time"

	"loan_interest_accrual/internal/infra/scheduler"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// StatusSource exposes the scheduler's run bookkeeping.
type StatusSource interface {
	Status() scheduler.Status
}

// NewRouter serves the accrual scheduler status for operational health checks.
// /healthz answers 503 when the latest attempt failed and nothing succeeded since.
func NewRouter(source StatusSource) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/livez", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		status := source.Status()
		code := http.StatusOK
		if !status.Healthy() {
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(status)
	})

	return r
}

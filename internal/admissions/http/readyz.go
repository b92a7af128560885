package http

import (
	"net/http"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/adminsdk"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
)

// ReadyzHandler checks the database and the key slot counter. Exhausted
// slots are reported but do not fail readiness.
func ReadyzHandler(startTime time.Time, version string, st store.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := &adminsdk.HealthChecks{
			Database: "ok",
			KeySlots: "ok",
		}
		overallStatus := "ok"
		statusCode := http.StatusOK

		if err := st.Ping(r.Context()); err != nil {
			checks.Database = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		}

		c, err := st.KeySlots().GetKeySlotCounter(r.Context())
		switch {
		case err != nil:
			checks.KeySlots = "error: " + err.Error()
			overallStatus = "degraded"
			statusCode = http.StatusServiceUnavailable
		case c.Remaining() == 0:
			checks.KeySlots = "exhausted"
		}

		httpx.WriteJSON(w, statusCode, adminsdk.HealthResponse{
			Status:  overallStatus,
			Uptime:  time.Since(startTime).String(),
			Version: version,
			Checks:  checks,
		})
	}
}

package http

import (
	"net/http"
	"time"

	"github.com/HackDavis/admissions-portal-sub000/pkg/adminsdk"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
)

// LivezHandler always returns 200 while the process is serving.
func LivezHandler(startTime time.Time, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, adminsdk.HealthResponse{
			Status:  "ok",
			Uptime:  time.Since(startTime).String(),
			Version: version,
		})
	}
}

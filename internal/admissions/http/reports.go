package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/store"
	"github.com/HackDavis/admissions-portal-sub000/pkg/adminsdk"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/idx"
)

const maxReportLimit = 200

// ReportsHandler serves persisted finalization reports.
type ReportsHandler struct {
	Reports store.Reports
}

// HandleList handles GET /v1/finalize/reports?limit=n.
func (h *ReportsHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > maxReportLimit {
			httpx.WriteError(w, http.StatusBadRequest, adminsdk.ErrorCodeInvalidRequest,
				"limit must be between 1 and "+strconv.Itoa(maxReportLimit))
			return
		}
		limit = n
	}

	reports, err := h.Reports.ListReports(r.Context(), limit)
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, adminsdk.ErrorCodeServerError, err.Error())
		return
	}
	if reports == nil {
		reports = []domain.ReportSummary{}
	}
	httpx.WriteJSON(w, http.StatusOK, adminsdk.ReportList{Reports: reports})
}

// HandleGet handles GET /v1/finalize/reports/{id}.
func (h *ReportsHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := idx.Parse(r.PathValue("id"))
	if err != nil {
		httpx.WriteError(w, http.StatusNotFound, adminsdk.ErrorCodeNotFound, "report not found")
		return
	}

	report, err := h.Reports.GetReport(r.Context(), id.String())
	if errors.Is(err, store.ErrNotFound) {
		httpx.WriteError(w, http.StatusNotFound, adminsdk.ErrorCodeNotFound, "report not found")
		return
	}
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, adminsdk.ErrorCodeServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}

package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/service"
	"github.com/HackDavis/admissions-portal-sub000/pkg/adminsdk"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
)

// Finalizer runs a finalization round.
type Finalizer interface {
	Finalize(ctx context.Context, params service.TicketParams) (domain.FinalizationReport, error)
}

// FinalizeHandler handles POST /v1/finalize. The body is optional; empty
// fields fall back to Defaults.
type FinalizeHandler struct {
	Finalizer Finalizer
	Defaults  service.TicketParams
}

func (h *FinalizeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req adminsdk.FinalizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		httpx.WriteError(w, http.StatusBadRequest, adminsdk.ErrorCodeInvalidRequest, "invalid request body")
		return
	}

	params := h.Defaults
	if req.ListID != "" {
		params.ListID = req.ListID
	}
	if req.ReleaseIDs != "" {
		params.ReleaseIDs = req.ReleaseIDs
	}
	if req.DiscountCode != "" {
		params.DiscountCode = req.DiscountCode
	}

	// A disconnecting client must not abort a run halfway through its
	// external side effects.
	ctx := context.WithoutCancel(r.Context())

	report, err := h.Finalizer.Finalize(ctx, params)
	switch {
	case errors.Is(err, service.ErrFinalizationInProgress):
		httpx.WriteError(w, http.StatusConflict, adminsdk.ErrorCodeInProgress, err.Error())
		return
	case err != nil:
		slogx.FromContext(r.Context()).Error("finalization failed to start", slog.Any("error", err))
		httpx.WriteError(w, http.StatusInternalServerError, adminsdk.ErrorCodeServerError, err.Error())
		return
	}

	httpx.WriteJSON(w, http.StatusOK, report)
}

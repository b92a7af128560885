package http

import (
	"context"
	"net/http"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/pkg/adminsdk"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
)

// KeySlotService reads and resets the credential slot counter.
type KeySlotService interface {
	Status(ctx context.Context) (domain.KeySlotCounter, error)
	Reset(ctx context.Context) (domain.KeySlotCounter, error)
}

// KeySlotsHandler handles the key slot admin endpoints.
type KeySlotsHandler struct {
	KeySlots KeySlotService
}

// HandleStatus handles GET /v1/key-slots.
func (h *KeySlotsHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	c, err := h.KeySlots.Status(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, adminsdk.ErrorCodeServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, keySlotStatus(c))
}

// HandleReset handles POST /v1/key-slots/reset.
func (h *KeySlotsHandler) HandleReset(w http.ResponseWriter, r *http.Request) {
	c, err := h.KeySlots.Reset(r.Context())
	if err != nil {
		httpx.WriteError(w, http.StatusInternalServerError, adminsdk.ErrorCodeServerError, err.Error())
		return
	}
	httpx.WriteJSON(w, http.StatusOK, keySlotStatus(c))
}

func keySlotStatus(c domain.KeySlotCounter) adminsdk.KeySlotStatus {
	return adminsdk.KeySlotStatus{KeySlotCounter: c, Remaining: c.Remaining()}
}

package adminsdk

import "github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"

// HealthResponse is returned by /livez and /readyz.
type HealthResponse struct {
	Status  string        `json:"status"`
	Uptime  string        `json:"uptime,omitempty"`
	Version string        `json:"version,omitempty"`
	Checks  *HealthChecks `json:"checks,omitempty"`
}

// HealthChecks reports dependency status on /readyz.
type HealthChecks struct {
	Database string `json:"database"`
	KeySlots string `json:"key_slots"`
}

// FinalizeRequest overrides the configured ticket settings for one run.
// Empty fields fall back to the server's configuration.
type FinalizeRequest struct {
	ListID       string `json:"list_id,omitempty"`
	ReleaseIDs   string `json:"release_ids,omitempty"`
	DiscountCode string `json:"discount_code,omitempty"`
}

// ReportList is the GET /v1/finalize/reports response.
type ReportList struct {
	Reports []domain.ReportSummary `json:"reports"`
}

// KeySlotStatus is the credential slot counter with derived capacity.
type KeySlotStatus struct {
	domain.KeySlotCounter
	Remaining int `json:"remaining"`
}

package domain

import "time"

// FinalizationReport is the operator-facing summary of one finalization run.
type FinalizationReport struct {
	ID          string           `json:"id"`
	BatchNumber int              `json:"batch_number"`
	Succeeded   bool             `json:"succeeded"` // batch counter was incremented
	Tickets     TicketReport     `json:"tickets"`
	Categories  []CategoryReport `json:"categories"`
	StartedAt   time.Time        `json:"started_at"`
	FinishedAt  time.Time        `json:"finished_at"`
}

// TicketReport summarizes the bulk invitation phase.
type TicketReport struct {
	OK             bool                `json:"ok"`
	Attempted      int                 `json:"attempted"`
	Invited        int                 `json:"invited"`
	Errors         []string            `json:"errors,omitempty"`
	AutoFixedCount int                 `json:"auto_fixed_count"`
	AutoFixedNotes map[string]string   `json:"auto_fixed_notes,omitempty"`
	Outcomes       []InvitationOutcome `json:"outcomes,omitempty"`
}

// CategoryReport summarizes one category's notification and transitions.
type CategoryReport struct {
	Category     Category `json:"category"`
	OK           bool     `json:"ok"`
	Notified     int      `json:"notified"`
	Skipped      []string `json:"skipped,omitempty"`
	Failures     []string `json:"failures,omitempty"`
	Error        string   `json:"error,omitempty"`
	Transitioned int      `json:"transitioned"`
	Blocked      []string `json:"blocked,omitempty"`
	UpdateErrors []string `json:"update_errors,omitempty"`
}

// ErrorCount is the number of hard failures in the category.
func (c CategoryReport) ErrorCount() int {
	n := len(c.Failures) + len(c.UpdateErrors)
	if !c.OK {
		n++
	}
	return n
}

// ReportSummary is a report listing entry.
type ReportSummary struct {
	ID          string    `json:"id"`
	BatchNumber int       `json:"batch_number"`
	Succeeded   bool      `json:"succeeded"`
	CreatedAt   time.Time `json:"created_at"`
}

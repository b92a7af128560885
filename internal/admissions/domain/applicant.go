package domain

import (
	"strings"
	"time"
)

// Status is an applicant's decision status.
type Status string

const (
	StatusPending                     Status = "pending"
	StatusTentativelyAccepted         Status = "tentatively_accepted"
	StatusTentativelyWaitlisted       Status = "tentatively_waitlisted"
	StatusTentativelyWaitlistAccepted Status = "tentatively_waitlist_accepted"
	StatusTentativelyWaitlistRejected Status = "tentatively_waitlist_rejected"
	StatusAccepted                    Status = "accepted"
	StatusWaitlisted                  Status = "waitlisted"
	StatusWaitlistAccepted            Status = "waitlist_accepted"
	StatusWaitlistRejected            Status = "waitlist_rejected"
)

func (s Status) String() string { return string(s) }

func (s Status) IsValid() bool {
	switch s {
	case StatusPending,
		StatusTentativelyAccepted, StatusTentativelyWaitlisted,
		StatusTentativelyWaitlistAccepted, StatusTentativelyWaitlistRejected,
		StatusAccepted, StatusWaitlisted, StatusWaitlistAccepted, StatusWaitlistRejected:
		return true
	}
	return false
}

// IsTentative reports whether s is awaiting finalization.
func (s Status) IsTentative() bool {
	_, ok := finalStatus[s]
	return ok
}

var finalStatus = map[Status]Status{
	StatusTentativelyAccepted:         StatusAccepted,
	StatusTentativelyWaitlisted:       StatusWaitlisted,
	StatusTentativelyWaitlistAccepted: StatusWaitlistAccepted,
	StatusTentativelyWaitlistRejected: StatusWaitlistRejected,
}

// Final maps a tentative status to its finalized status.
func (s Status) Final() (Status, bool) {
	f, ok := finalStatus[s]
	return f, ok
}

// Applicant is a hackathon application as seen by the finalization pipeline.
type Applicant struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	Status        Status
	WasWaitlisted bool
	BatchNumber   *int // Decision round that finalized the applicant
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// FullName joins first and last name.
func (a Applicant) FullName() string {
	return strings.TrimSpace(a.FirstName + " " + a.LastName)
}

// NormalizedEmail is the batch-wide identity key.
func (a Applicant) NormalizedEmail() string {
	return NormalizeEmail(a.Email)
}

// NormalizeEmail trims and lower-cases an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// DecisionUpdate is the single status transition applied at finalization.
// It only applies while the applicant still holds From.
type DecisionUpdate struct {
	From          Status
	Status        Status
	WasWaitlisted bool
	BatchNumber   int
}

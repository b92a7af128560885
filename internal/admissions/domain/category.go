package domain

// Category is a decision group processed as one notification batch.
type Category string

const (
	CategoryAcceptances         Category = "acceptances"
	CategoryWaitlists           Category = "waitlists"
	CategoryWaitlistAcceptances Category = "waitlist_acceptances"
	CategoryWaitlistRejections  Category = "waitlist_rejections"
)

// Categories is the fixed processing order of a finalization run.
var Categories = []Category{
	CategoryAcceptances,
	CategoryWaitlists,
	CategoryWaitlistAcceptances,
	CategoryWaitlistRejections,
}

func (c Category) String() string { return string(c) }

func (c Category) IsValid() bool {
	switch c {
	case CategoryAcceptances, CategoryWaitlists, CategoryWaitlistAcceptances, CategoryWaitlistRejections:
		return true
	}
	return false
}

// SourceStatus is the tentative status that selects the category's applicants.
func (c Category) SourceStatus() Status {
	switch c {
	case CategoryAcceptances:
		return StatusTentativelyAccepted
	case CategoryWaitlists:
		return StatusTentativelyWaitlisted
	case CategoryWaitlistAcceptances:
		return StatusTentativelyWaitlistAccepted
	case CategoryWaitlistRejections:
		return StatusTentativelyWaitlistRejected
	}
	return ""
}

// TargetStatus is the status applied after a verified notification.
func (c Category) TargetStatus() Status {
	s, _ := c.SourceStatus().Final()
	return s
}

// RequiresTicket reports whether applicants must hold a verified ticket
// invitation before they are notified.
func (c Category) RequiresTicket() bool {
	return c == CategoryAcceptances || c == CategoryWaitlistAcceptances
}

// Waitlisted reports whether finalizing in this category marks the applicant
// as having been waitlisted.
func (c Category) Waitlisted() bool {
	return c != CategoryAcceptances
}

// Tag is the audience tag activated on the notification platform.
func (c Category) Tag() string {
	return string(c)
}

// TicketStatuses are the tentative statuses that need ticket invitations.
func TicketStatuses() []Status {
	var out []Status
	for _, c := range Categories {
		if c.RequiresTicket() {
			out = append(out, c.SourceStatus())
		}
	}
	return out
}

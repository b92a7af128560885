package domain

// InviteMap maps normalized email to ticket invitation URL.
type InviteMap map[string]string

// URL looks up email after normalizing it.
func (m InviteMap) URL(email string) (string, bool) {
	url, ok := m[NormalizeEmail(email)]
	return url, ok && url != ""
}

// InvitationOutcome is one applicant's ticket creation result. Exactly one of
// URL or Error is set.
type InvitationOutcome struct {
	Email string `json:"email"`
	URL   string `json:"url,omitempty"`
	Error string `json:"error,omitempty"`
	Note  string `json:"note,omitempty"`
}

func (o InvitationOutcome) OK() bool { return o.URL != "" && o.Error == "" }

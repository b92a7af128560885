package mailchimp

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
)

// ErrMissingCredentials is returned when a slot's configuration is incomplete.
var ErrMissingCredentials = errors.New("mailchimp: missing credentials")

// Credentials is the configuration triple for one credential slot.
type Credentials struct {
	Slot         int
	APIKey       string
	ServerPrefix string
	AudienceID   string
}

// EnvCredentials resolves slot n from MAILCHIMP_API_KEY_n,
// MAILCHIMP_SERVER_PREFIX_n and MAILCHIMP_AUDIENCE_ID_n.
type EnvCredentials struct {
	// LookupEnv defaults to os.LookupEnv.
	LookupEnv func(string) (string, bool)
}

// Credentials returns the triple for slot, naming every absent variable on failure.
func (e EnvCredentials) Credentials(slot int) (Credentials, error) {
	lookup := e.LookupEnv
	if lookup == nil {
		lookup = os.LookupEnv
	}

	var missing []string
	get := func(prefix string) string {
		name := prefix + strconv.Itoa(slot)
		v, ok := lookup(name)
		v = strings.TrimSpace(v)
		if !ok || v == "" {
			missing = append(missing, name)
		}
		return v
	}

	creds := Credentials{
		Slot:         slot,
		APIKey:       get("MAILCHIMP_API_KEY_"),
		ServerPrefix: get("MAILCHIMP_SERVER_PREFIX_"),
		AudienceID:   get("MAILCHIMP_AUDIENCE_ID_"),
	}
	if len(missing) > 0 {
		return Credentials{}, fmt.Errorf("%w: %s", ErrMissingCredentials, strings.Join(missing, ", "))
	}
	return creds, nil
}

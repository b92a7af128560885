package tito

import (
	"encoding/json"
	"net/http"
	"sort"
	"strings"

	"github.com/HackDavis/admissions-portal-sub000/pkg/extapi"
)

// duplicatePhrases are the upstream wordings for "this email already holds an
// invitation".
var duplicatePhrases = []string{
	"has already been taken",
	"already has a ticket",
	"already been invited",
	"email already exists",
}

type errorBody struct {
	Message string              `json:"message"`
	Error   string              `json:"error"`
	Errors  map[string][]string `json:"errors"`
}

func (b errorBody) summary() string {
	if b.Message != "" {
		return b.Message
	}
	if b.Error != "" {
		return b.Error
	}

	fields := make([]string, 0, len(b.Errors))
	for field := range b.Errors {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	var parts []string
	for _, field := range fields {
		for _, msg := range b.Errors[field] {
			parts = append(parts, field+" "+msg)
		}
	}
	return strings.Join(parts, "; ")
}

// parseErrorResponse classifies a non-2xx response. Duplicate detection runs
// before the status mapping since the platform reports it as a 422.
func parseErrorResponse(resp *http.Response, raw []byte) error {
	var body errorBody
	_ = json.Unmarshal(raw, &body)

	message := body.summary()
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	e := extapi.FromResponse(platform, resp, message)
	if e.Kind != extapi.KindRateLimited && isDuplicate(resp.StatusCode, body, raw) {
		e.Kind = extapi.KindConflict
	}
	return e
}

// isDuplicate only considers validation statuses; auth, lookup and server
// failures are never duplicates whatever their wording.
func isDuplicate(code int, body errorBody, raw []byte) bool {
	switch code {
	case http.StatusBadRequest, http.StatusConflict, http.StatusUnprocessableEntity:
	default:
		return false
	}
	if code == http.StatusUnprocessableEntity && len(body.Errors["email"]) > 0 {
		return true
	}
	lower := strings.ToLower(string(raw))
	for _, phrase := range duplicatePhrases {
		if strings.Contains(lower, phrase) {
			return true
		}
	}
	return false
}

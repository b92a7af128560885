package adminsdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
)

const (
	ErrorCodeInvalidRequest = "invalid_request"
	ErrorCodeInvalidToken   = "invalid_token"
	ErrorCodeNotFound       = "not_found"
	ErrorCodeInProgress     = "finalization_in_progress"
	ErrorCodeRateLimited    = "rate_limit_exceeded"
	ErrorCodeServerError    = "server_error"
)

// APIError is a non-2xx admin API response.
type APIError struct {
	StatusCode  int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Description)
	}
	return fmt.Sprintf("%s (%d)", e.Code, e.StatusCode)
}

// IsCode reports whether err is an *APIError with the given code.
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

func parseErrorResponse(resp *http.Response, body []byte) error {
	var er httpx.ErrorResponse
	if err := json.Unmarshal(body, &er); err != nil || er.Error == "" {
		return &APIError{
			StatusCode:  resp.StatusCode,
			Code:        ErrorCodeServerError,
			Description: http.StatusText(resp.StatusCode),
		}
	}
	return &APIError{
		StatusCode:  resp.StatusCode,
		Code:        er.Error,
		Description: er.ErrorDescription,
	}
}

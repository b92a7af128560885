package adminsdk

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
	"github.com/HackDavis/admissions-portal-sub000/pkg/httpx"
	"github.com/stretchr/testify/require"
)

func TestFinalizeSendsAdminKeyAndBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/finalize" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer secret" {
			t.Errorf("authorization = %q", got)
		}
		var req FinalizeRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode: %v", err)
		}
		if req.ListID != "rl_1" {
			t.Errorf("list id = %q", req.ListID)
		}
		httpx.WriteJSON(w, http.StatusOK, domain.FinalizationReport{ID: "run-1", BatchNumber: 3, Succeeded: true})
	}))
	defer srv.Close()

	c := NewClient(srv.URL+"/", "secret")
	report, err := c.Finalize(t.Context(), FinalizeRequest{ListID: "rl_1"})
	require.NoError(t, err)
	require.Equal(t, "run-1", report.ID)
	require.Equal(t, 3, report.BatchNumber)
	require.True(t, report.Succeeded)
}

func TestAPIErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/finalize":
			httpx.WriteError(w, http.StatusConflict, ErrorCodeInProgress, "a finalization run is already in progress")
		default:
			w.WriteHeader(http.StatusBadGateway)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	_, err := c.Finalize(t.Context(), FinalizeRequest{})
	require.True(t, IsCode(err, ErrorCodeInProgress))
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusConflict, apiErr.StatusCode)

	_, err = c.KeySlots(t.Context())
	require.True(t, IsCode(err, ErrorCodeServerError))
}

func TestListReportsAndKeySlots(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/v1/finalize/reports":
			if got := r.URL.Query().Get("limit"); got != "5" {
				t.Errorf("limit = %q", got)
			}
			httpx.WriteJSON(w, http.StatusOK, ReportList{Reports: []domain.ReportSummary{{ID: "a"}, {ID: "b"}}})
		case r.URL.Path == "/v1/key-slots/reset" && r.Method == http.MethodPost:
			httpx.WriteJSON(w, http.StatusOK, KeySlotStatus{
				KeySlotCounter: domain.KeySlotCounter{SlotIndex: 1, MaxCalls: 500, MaxSlots: 2},
				Remaining:      998,
			})
		default:
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "secret")

	reports, err := c.ListReports(t.Context(), 5)
	require.NoError(t, err)
	require.Len(t, reports, 2)

	st, err := c.ResetKeySlots(t.Context())
	require.NoError(t, err)
	require.Equal(t, 1, st.SlotIndex)
	require.Equal(t, 998, st.Remaining)
}

package adminsdk

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/HackDavis/admissions-portal-sub000/internal/admissions/domain"
)

// Finalize runs one finalization round and returns its report.
func (c *Client) Finalize(ctx context.Context, req FinalizeRequest) (*domain.FinalizationReport, error) {
	resp, err := c.doRequest(ctx, http.MethodPost, "/v1/finalize", req)
	if err != nil {
		return nil, err
	}

	var report domain.FinalizationReport
	if err := decodeJSON(resp, &report, http.StatusOK); err != nil {
		return nil, err
	}
	return &report, nil
}

// ListReports returns the newest reports first. limit <= 0 uses the server default.
func (c *Client) ListReports(ctx context.Context, limit int) ([]domain.ReportSummary, error) {
	path := "/v1/finalize/reports"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}

	resp, err := c.doRequest(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}

	var list ReportList
	if err := decodeJSON(resp, &list, http.StatusOK); err != nil {
		return nil, err
	}
	return list.Reports, nil
}

// GetReport fetches one persisted report.
func (c *Client) GetReport(ctx context.Context, id string) (*domain.FinalizationReport, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/v1/finalize/reports/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}

	var report domain.FinalizationReport
	if err := decodeJSON(resp, &report, http.StatusOK); err != nil {
		return nil, err
	}
	return &report, nil
}

package slogx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/HackDavis/admissions-portal-sub000/pkg/slogx"
	"github.com/stretchr/testify/require"
)

func TestNewWritesServiceFields(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{
		Service: "admissions",
		Version: "test",
		Env:     "test",
		Level:   "debug",
		Format:  "json",
		Output:  &buf,
	})

	logger.Debug("hello")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	require.Equal(t, "admissions", line["service"])
	require.Equal(t, "hello", line["msg"])
}

func TestRunIDIsCarried(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "admissions", Format: "json", Output: &buf})

	ctx := slogx.WithContext(context.Background(), logger)
	ctx = slogx.WithRunID(ctx, "run-1")
	slogx.FromContext(ctx).Info("finalize")

	require.Contains(t, buf.String(), `"run_id":"run-1"`)
}

func TestHTTPMiddlewareEchoesRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := slogx.New(slogx.Config{Service: "admissions", Format: "json", Output: &buf})

	h := slogx.HTTPMiddleware(logger)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		slogx.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusTeapot)
	}))

	req := httptest.NewRequest(http.MethodGet, "/livez", nil)
	req.Header.Set("X-Request-ID", "abc")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusTeapot, rec.Code)
	require.Equal(t, "abc", rec.Header().Get("X-Request-ID"))
	require.Contains(t, buf.String(), `"req_id":"abc"`)
	require.Contains(t, buf.String(), `"status":418`)
}

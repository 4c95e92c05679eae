package health_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/technosupport/cctv-console/internal/health"
)

func TestCheck_AllUp(t *testing.T) {
	svc := health.NewService(time.Second)
	svc.Register("backend", health.ProbeFunc(func(context.Context) error { return nil }))
	svc.Register("redis", health.ProbeFunc(func(context.Context) error { return nil }))

	report := svc.Check(context.Background())
	assert.Equal(t, health.StatusUp, report.Status)
	require.Len(t, report.Checks, 2)
	assert.Equal(t, "backend", report.Checks[0].Name)
	assert.Equal(t, "redis", report.Checks[1].Name)
}

func TestCheck_TimeoutMarksDown(t *testing.T) {
	svc := health.NewService(20 * time.Millisecond)
	svc.Register("slow", health.ProbeFunc(func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	}))

	report := svc.Check(context.Background())
	assert.Equal(t, health.StatusDown, report.Status)
	assert.Equal(t, context.DeadlineExceeded.Error(), report.Checks[0].Error)
}

func TestHandler(t *testing.T) {
	svc := health.NewService(time.Second)
	svc.Register("backend", health.ProbeFunc(func(context.Context) error { return nil }))
	svc.Register("nats", health.ProbeFunc(func(context.Context) error { return errors.New("nats: status CLOSED") }))

	rr := httptest.NewRecorder()
	svc.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)

	var report health.Report
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &report))
	assert.Equal(t, health.StatusDown, report.Status)
	assert.Equal(t, health.StatusUp, report.Checks[0].Status)
	assert.Equal(t, "nats: status CLOSED", report.Checks[1].Error)
}

func TestHandler_NoProbersIsUp(t *testing.T) {
	rr := httptest.NewRecorder()
	health.NewService(0).Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/readyz", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
}

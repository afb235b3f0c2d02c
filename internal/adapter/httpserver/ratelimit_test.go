package httpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/reciyap-relay/internal/platform/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testRemoteAddr = "1.2.3.4:1234"

func newRateLimitedHandler(ratePerSecond float64, burst int) echo.HandlerFunc {
	return ErrorHandlingMiddleware()(newPushRateLimiter(ratePerSecond, burst)(func(c echo.Context) error {
		return c.NoContent(http.StatusAccepted)
	}))
}

func pushRequest(e *echo.Echo, handler echo.HandlerFunc, remoteAddr string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/internal/broadcast", nil)
	req.RemoteAddr = remoteAddr
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec
}

func TestPushRateLimiter_AllowsRequestsUnderLimit(t *testing.T) {
	e := echo.New()
	handler := newRateLimitedHandler(10, 3)

	for range 3 {
		rec := pushRequest(e, handler, testRemoteAddr)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	}
}

func TestPushRateLimiter_RejectsWithStructuredError(t *testing.T) {
	e := echo.New()
	handler := newRateLimitedHandler(0.01, 1)

	first := pushRequest(e, handler, testRemoteAddr)
	second := pushRequest(e, handler, testRemoteAddr)

	assert.Equal(t, http.StatusAccepted, first.Code)
	require.Equal(t, http.StatusTooManyRequests, second.Code)

	var resp apperrors.ErrorResponse
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "rate limit exceeded", resp.Error)
	assert.Equal(t, apperrors.TypeRateLimited, resp.Type)
	assert.Equal(t, "1.2.3.4", resp.Context["caller"])
}

func TestPushRateLimiter_BucketsPerCaller(t *testing.T) {
	e := echo.New()
	handler := newRateLimitedHandler(0.01, 1)

	assert.Equal(t, http.StatusAccepted, pushRequest(e, handler, "1.2.3.4:1").Code)
	assert.Equal(t, http.StatusAccepted, pushRequest(e, handler, "5.6.7.8:1").Code)
	assert.Equal(t, http.StatusTooManyRequests, pushRequest(e, handler, "1.2.3.4:2").Code)
}

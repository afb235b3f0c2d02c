package httpserver

import (
	"log/slog"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	apperrors "github.com/pscheid92/reciyap-relay/internal/platform/errors"
	"golang.org/x/time/rate"
)

const pushClientExpiry = 5 * time.Minute

// newPushRateLimiter throttles internal push API callers per client IP.
// Rejections are returned as errors so ErrorHandlingMiddleware renders them.
func newPushRateLimiter(ratePerSecond float64, burst int) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(ratePerSecond),
		Burst:     burst,
		ExpiresIn: pushClientExpiry,
	})

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(_ echo.Context, err error) error {
			return apperrors.InternalError("failed to identify push API caller", err)
		},
		DenyHandler: func(c echo.Context, caller string, _ error) error {
			slog.WarnContext(c.Request().Context(), "Push API rate limit exceeded", "caller", caller, "path", c.Path())
			return apperrors.RateLimitedError("rate limit exceeded").WithField("caller", caller)
		},
	})
}

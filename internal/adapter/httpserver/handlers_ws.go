package httpserver

import (
	"log/slog"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/reciyap-relay/internal/platform/errors"
)

const maxUserIDLength = 128

// handleWebSocket admits the connection against the limits and hands it to
// the endpoint. It blocks for the lifetime of the connection.
func (s *Server) handleWebSocket(c echo.Context) error {
	ctx := c.Request().Context()
	userID := c.Param("user_id")
	if err := validateUserID(userID); err != nil {
		return err
	}

	if s.shuttingDown.Load() {
		s.relayMetrics.ConnectionsRejected.WithLabelValues("shutting_down").Inc()
		return apperrors.UnavailableError("server is shutting down")
	}

	ip := c.RealIP()
	if ok, reason := s.limits.Acquire(ip); !ok {
		s.relayMetrics.ConnectionsRejected.WithLabelValues(string(reason)).Inc()
		slog.WarnContext(ctx, "WebSocket connection rejected", "reason", reason, "ip", ip, "user_id", userID)
		if reason == LimitReasonRate {
			return apperrors.RateLimitedError("too many connection attempts").WithField("reason", string(reason))
		}
		return apperrors.UnavailableError("connection limit reached").WithField("reason", string(reason))
	}
	defer s.limits.Release(ip)

	// A failed upgrade has already written its HTTP response.
	if err := s.endpoint.Serve(c.Response(), c.Request(), userID); err != nil {
		slog.WarnContext(ctx, "WebSocket upgrade failed", "user_id", userID, "error", err)
	}
	return nil
}

func validateUserID(userID string) error {
	if strings.TrimSpace(userID) == "" {
		return apperrors.ValidationError("user id is required")
	}
	if len(userID) > maxUserIDLength {
		return apperrors.ValidationError("user id too long").WithField("max_length", maxUserIDLength)
	}
	if !utf8.ValidString(userID) || strings.IndexFunc(userID, unicode.IsControl) >= 0 {
		return apperrors.ValidationError("user id contains invalid characters")
	}
	return nil
}

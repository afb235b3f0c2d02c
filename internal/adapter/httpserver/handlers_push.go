package httpserver

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	apperrors "github.com/pscheid92/reciyap-relay/internal/platform/errors"
)

const maxPushBodySize = 64 << 10

func (s *Server) handleBroadcast(c echo.Context) error {
	payload, err := readJSONObject(c)
	if err != nil {
		return err
	}

	report, err := s.broadcaster.BroadcastAll(c.Request().Context(), payload)
	if err != nil {
		return apperrors.InternalError("failed to broadcast payload", err)
	}
	if report.Evicted == nil {
		report.Evicted = []string{}
	}

	if err := c.JSON(http.StatusAccepted, report); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleSendToUser(c echo.Context) error {
	userID := c.Param("user_id")
	if err := validateUserID(userID); err != nil {
		return err
	}

	payload, err := readJSONObject(c)
	if err != nil {
		return err
	}

	result, err := s.broadcaster.SendDirect(c.Request().Context(), userID, payload)
	if err != nil {
		return apperrors.InternalError("failed to send payload", err).WithField("user_id", userID)
	}

	if err := c.JSON(http.StatusAccepted, map[string]string{"result": string(result)}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

// readJSONObject returns the request body if it is a single JSON object.
// The bytes are relayed as-is, so clients see exactly what the backend sent.
func readJSONObject(c echo.Context) (json.RawMessage, error) {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxPushBodySize+1))
	if err != nil {
		return nil, apperrors.ValidationError("failed to read request body")
	}
	if len(body) > maxPushBodySize {
		return nil, apperrors.ValidationError("payload too large").WithField("max_bytes", maxPushBodySize)
	}

	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' || !json.Valid(body) {
		return nil, apperrors.ValidationError("payload must be a JSON object")
	}
	return json.RawMessage(body), nil
}

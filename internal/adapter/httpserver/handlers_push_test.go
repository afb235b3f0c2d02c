package httpserver

import (
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/pscheid92/reciyap-relay/internal/broadcast"
	"github.com/pscheid92/reciyap-relay/internal/platform/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleBroadcast_Accepted(t *testing.T) {
	ts := newTestServer(t)
	ts.broadcaster.report = broadcast.Report{Attempted: 3, Delivered: 2, Evicted: []string{"u9"}}

	rec := ts.do(internalRequest("/internal/broadcast", `{"type":"nueva_solicitud","solicitud":{"id":5}}`, testToken))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"attempted":3,"delivered":2,"evicted":["u9"]}`, rec.Body.String())
	require.Equal(t, 1, ts.broadcaster.calls())
	assert.Equal(t, `{"type":"nueva_solicitud","solicitud":{"id":5}}`, ts.broadcaster.payloads[0])
}

func TestHandleBroadcast_EmptyEvictedIsArray(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(internalRequest("/internal/broadcast", `{"type":"ping"}`, testToken))

	require.Equal(t, http.StatusAccepted, rec.Code)
	assert.JSONEq(t, `{"attempted":0,"delivered":0,"evicted":[]}`, rec.Body.String())
}

func TestHandleBroadcast_RejectsNonObjects(t *testing.T) {
	bodies := map[string]string{
		"array":   `[1,2,3]`,
		"string":  `"hello"`,
		"invalid": `{"type":`,
		"empty":   ``,
		"trailer": `{"a":1} {"b":2}`,
	}

	for name, body := range bodies {
		t.Run(name, func(t *testing.T) {
			ts := newTestServer(t)

			rec := ts.do(internalRequest("/internal/broadcast", body, testToken))

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"type":"validation"`)
			assert.Zero(t, ts.broadcaster.calls())
		})
	}
}

func TestHandleBroadcast_TooLarge(t *testing.T) {
	ts := newTestServer(t)
	body := `{"blob":"` + strings.Repeat("x", maxPushBodySize) + `"}`

	rec := ts.do(internalRequest("/internal/broadcast", body, testToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "payload too large")
}

func TestHandleBroadcast_Error(t *testing.T) {
	ts := newTestServer(t)
	ts.broadcaster.err = errors.New("boom")

	rec := ts.do(internalRequest("/internal/broadcast", `{"type":"x"}`, testToken))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to broadcast payload")
	assert.NotContains(t, rec.Body.String(), "boom")
}

func TestInternalAPI_RequiresToken(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(internalRequest("/internal/broadcast", `{"type":"x"}`, "wrong-token-wrong-token"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = ts.do(internalRequest("/internal/broadcast", `{"type":"x"}`, ""))
	assert.GreaterOrEqual(t, rec.Code, 400)
	assert.Less(t, rec.Code, 500)

	assert.Zero(t, ts.broadcaster.calls())
}

func TestInternalAPI_DisabledWithoutToken(t *testing.T) {
	ts := newTestServer(t, withConfig(func(cfg *config.Config) { cfg.InternalAPIToken = "" }))

	rec := ts.do(internalRequest("/internal/broadcast", `{"type":"x"}`, testToken))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Zero(t, ts.broadcaster.calls())
}

func TestHandleSendToUser(t *testing.T) {
	tests := []struct {
		name   string
		result broadcast.DeliveryResult
		want   string
	}{
		{"delivered", broadcast.Delivered, `{"result":"delivered"}`},
		{"not connected", broadcast.NotConnected, `{"result":"not_connected"}`},
		{"failed", broadcast.Failed, `{"result":"failed"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t)
			ts.broadcaster.result = tt.result

			rec := ts.do(internalRequest("/internal/users/citizen-1/events", `{"type":"solicitud_aceptada","solicitud_id":3}`, testToken))

			require.Equal(t, http.StatusAccepted, rec.Code)
			assert.JSONEq(t, tt.want, rec.Body.String())
			assert.Equal(t, []string{"citizen-1"}, ts.broadcaster.users)
		})
	}
}

func TestHandleSendToUser_InvalidUserID(t *testing.T) {
	ts := newTestServer(t)

	rec := ts.do(internalRequest("/internal/users/"+strings.Repeat("u", maxUserIDLength+1)+"/events", `{"type":"x"}`, testToken))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, ts.broadcaster.calls())
}

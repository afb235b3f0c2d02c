package event

import (
	"encoding/json"
	"testing"

	"github.com/pscheid92/reciyap-relay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func route(t *testing.T, raw, sender string) string {
	t.Helper()
	ev, err := Decode([]byte(raw))
	require.NoError(t, err)

	payload, ok := BuildBroadcast(ev, sender)
	require.True(t, ok)

	data, err := json.Marshal(payload)
	require.NoError(t, err)
	return string(data)
}

func TestRoute_PayloadTable(t *testing.T) {
	tests := []struct {
		name   string
		raw    string
		sender string
		want   string
	}{
		{
			name:   "nueva_solicitud",
			raw:    `{"type":"nueva_solicitud","solicitud":{"id":12,"material":"carton","peso":3.5}}`,
			sender: "C1",
			want:   `{"type":"nueva_solicitud","solicitud":{"id":12,"material":"carton","peso":3.5}}`,
		},
		{
			name:   "aceptar_solicitud",
			raw:    `{"type":"aceptar_solicitud","solicitud_id":"S1"}`,
			sender: "R7",
			want:   `{"type":"solicitud_aceptada","solicitud_id":"S1","reciclador_id":"R7"}`,
		},
		{
			name:   "cancelar_solicitud",
			raw:    `{"type":"cancelar_solicitud","solicitud_id":44}`,
			sender: "C2",
			want:   `{"type":"solicitud_cancelada","solicitud_id":44,"usuario_id":"C2"}`,
		},
		{
			name:   "completar_solicitud",
			raw:    `{"type":"completar_solicitud","solicitud_id":"S9"}`,
			sender: "R1",
			want:   `{"type":"solicitud_completada","solicitud_id":"S9","reciclador_id":"R1"}`,
		},
		{
			name:   "ubicacion_reciclador",
			raw:    `{"type":"ubicacion_reciclador","lat":-12.0464,"lng":-77.0428,"solicitud_id":5}`,
			sender: "R3",
			want:   `{"type":"ubicacion_reciclador","lat":-12.0464,"lng":-77.0428,"solicitud_id":5,"reciclador_id":"R3"}`,
		},
		{
			name:   "rechazar_solicitud",
			raw:    `{"type":"rechazar_solicitud","solicitud_id":"S2"}`,
			sender: "R4",
			want:   `{"type":"solicitud_rechazada","solicitud_id":"S2"}`,
		},
		{
			name:   "missing fields are relayed as null",
			raw:    `{"type":"aceptar_solicitud"}`,
			sender: "R7",
			want:   `{"type":"solicitud_aceptada","solicitud_id":null,"reciclador_id":"R7"}`,
		},
		{
			name:   "extra fields are ignored",
			raw:    `{"type":"rechazar_solicitud","solicitud_id":"S2","motivo":"lejos","reciclador_id":"spoofed"}`,
			sender: "R4",
			want:   `{"type":"solicitud_rechazada","solicitud_id":"S2"}`,
		},
		{
			name:   "sender id cannot be spoofed",
			raw:    `{"type":"completar_solicitud","solicitud_id":"S9","reciclador_id":"R99"}`,
			sender: "R1",
			want:   `{"type":"solicitud_completada","solicitud_id":"S9","reciclador_id":"R1"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, route(t, tt.raw, tt.sender))
		})
	}
}

func TestDecode_TypedVariants(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"ubicacion_reciclador","lat":1.5,"lng":2.5,"solicitud_id":"S1"}`))
	require.NoError(t, err)

	loc, ok := ev.(domain.CollectorLocation)
	require.True(t, ok)
	assert.Equal(t, domain.EventCollectorLocation, loc.EventType())
	assert.JSONEq(t, `1.5`, string(loc.Lat))
	assert.JSONEq(t, `2.5`, string(loc.Lng))
	assert.JSONEq(t, `"S1"`, string(loc.RequestID))
}

func TestDecode_Failures(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantErr    error
		wantReason string
	}{
		{"not json", `hola`, domain.ErrMalformedMessage, "malformed"},
		{"truncated object", `{"type":"aceptar_solicitud"`, domain.ErrMalformedMessage, "malformed"},
		{"json array", `[1,2,3]`, domain.ErrMalformedMessage, "malformed"},
		{"json string", `"aceptar_solicitud"`, domain.ErrMalformedMessage, "malformed"},
		{"numeric type", `{"type":7}`, domain.ErrMalformedMessage, "malformed"},
		{"empty", ``, domain.ErrMalformedMessage, "malformed"},
		{"unknown type", `{"type":"unknown_type"}`, domain.ErrUnknownEventType, "unknown_type"},
		{"missing type", `{"solicitud_id":"S1"}`, domain.ErrUnknownEventType, "unknown_type"},
		{"outbound type echoed back", `{"type":"solicitud_aceptada","solicitud_id":"S1"}`, domain.ErrUnknownEventType, "unknown_type"},
		{"json null", `null`, domain.ErrUnknownEventType, "unknown_type"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			require.Error(t, err)
			assert.Nil(t, ev)
			assert.ErrorIs(t, err, tt.wantErr)

			var decodeErr *DecodeError
			require.ErrorAs(t, err, &decodeErr)
			assert.Equal(t, tt.wantReason, decodeErr.Reason())
		})
	}
}

func TestDecodeError_Message(t *testing.T) {
	_, err := Decode([]byte(`{"type":"unknown_type"}`))
	require.Error(t, err)
	assert.Equal(t, `decode "unknown_type": unknown event type`, err.Error())
}

func TestBuildBroadcast_Deterministic(t *testing.T) {
	raw := `{"type":"ubicacion_reciclador","lat":1,"lng":2,"solicitud_id":3}`
	first := route(t, raw, "R1")
	for range 10 {
		assert.Equal(t, first, route(t, raw, "R1"))
	}
}

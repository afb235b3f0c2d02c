package event

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/pscheid92/reciyap-relay/internal/domain"
)

// DecodeError reports why a raw message was dropped.
type DecodeError struct {
	Type domain.EventType // empty when the payload was not an object
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("decode %q: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("decode: %v", e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Reason is a short label for logs and metrics.
func (e *DecodeError) Reason() string {
	if errors.Is(e.Err, domain.ErrUnknownEventType) {
		return "unknown_type"
	}
	return "malformed"
}

type inboundMessage struct {
	Type        domain.EventType `json:"type"`
	Solicitud   json.RawMessage  `json:"solicitud"`
	SolicitudID json.RawMessage  `json:"solicitud_id"`
	Lat         json.RawMessage  `json:"lat"`
	Lng         json.RawMessage  `json:"lng"`
}

// Decode parses raw text into a typed event.
func Decode(raw []byte) (domain.Event, error) {
	var msg inboundMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, &DecodeError{Err: fmt.Errorf("%w: %v", domain.ErrMalformedMessage, err)}
	}

	switch msg.Type {
	case domain.EventNewRequest:
		return domain.NewRequest{Request: msg.Solicitud}, nil
	case domain.EventAcceptRequest:
		return domain.AcceptRequest{RequestID: msg.SolicitudID}, nil
	case domain.EventCancelRequest:
		return domain.CancelRequest{RequestID: msg.SolicitudID}, nil
	case domain.EventCompleteRequest:
		return domain.CompleteRequest{RequestID: msg.SolicitudID}, nil
	case domain.EventCollectorLocation:
		return domain.CollectorLocation{Lat: msg.Lat, Lng: msg.Lng, RequestID: msg.SolicitudID}, nil
	case domain.EventRejectRequest:
		return domain.RejectRequest{RequestID: msg.SolicitudID}, nil
	default:
		return nil, &DecodeError{Type: msg.Type, Err: domain.ErrUnknownEventType}
	}
}

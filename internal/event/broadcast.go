package event

import (
	"encoding/json"

	"github.com/pscheid92/reciyap-relay/internal/domain"
)

// Outbound payload shapes. Field order is the wire order.

type NewRequestPayload struct {
	Type    string          `json:"type"`
	Request json.RawMessage `json:"solicitud"`
}

type RequestAcceptedPayload struct {
	Type        string          `json:"type"`
	RequestID   json.RawMessage `json:"solicitud_id"`
	CollectorID string          `json:"reciclador_id"`
}

type RequestCancelledPayload struct {
	Type      string          `json:"type"`
	RequestID json.RawMessage `json:"solicitud_id"`
	UserID    string          `json:"usuario_id"`
}

type RequestCompletedPayload struct {
	Type        string          `json:"type"`
	RequestID   json.RawMessage `json:"solicitud_id"`
	CollectorID string          `json:"reciclador_id"`
}

type CollectorLocationPayload struct {
	Type        string          `json:"type"`
	Lat         json.RawMessage `json:"lat"`
	Lng         json.RawMessage `json:"lng"`
	RequestID   json.RawMessage `json:"solicitud_id"`
	CollectorID string          `json:"reciclador_id"`
}

type RequestRejectedPayload struct {
	Type      string          `json:"type"`
	RequestID json.RawMessage `json:"solicitud_id"`
}

// BuildBroadcast returns the payload relayed for ev sent by senderID.
// Every event is broadcast to all connected users, the sender included.
// ok is false for events that produce no broadcast.
func BuildBroadcast(ev domain.Event, senderID string) (payload any, ok bool) {
	payload = body(ev, senderID)
	return payload, payload != nil
}

func body(ev domain.Event, senderID string) any {
	switch e := ev.(type) {
	case domain.NewRequest:
		return NewRequestPayload{
			Type:    string(domain.EventNewRequest),
			Request: e.Request,
		}
	case domain.AcceptRequest:
		return RequestAcceptedPayload{
			Type:        domain.TypeRequestAccepted,
			RequestID:   e.RequestID,
			CollectorID: senderID,
		}
	case domain.CancelRequest:
		return RequestCancelledPayload{
			Type:      domain.TypeRequestCancelled,
			RequestID: e.RequestID,
			UserID:    senderID,
		}
	case domain.CompleteRequest:
		return RequestCompletedPayload{
			Type:        domain.TypeRequestCompleted,
			RequestID:   e.RequestID,
			CollectorID: senderID,
		}
	case domain.CollectorLocation:
		return CollectorLocationPayload{
			Type:        string(domain.EventCollectorLocation),
			Lat:         e.Lat,
			Lng:         e.Lng,
			RequestID:   e.RequestID,
			CollectorID: senderID,
		}
	case domain.RejectRequest:
		return RequestRejectedPayload{
			Type:      domain.TypeRequestRejected,
			RequestID: e.RequestID,
		}
	default:
		return nil
	}
}

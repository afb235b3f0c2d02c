package domain

import "encoding/json"

// EventType is the closed set of inbound event types.
type EventType string

const (
	EventNewRequest        EventType = "nueva_solicitud"
	EventAcceptRequest     EventType = "aceptar_solicitud"
	EventCancelRequest     EventType = "cancelar_solicitud"
	EventCompleteRequest   EventType = "completar_solicitud"
	EventCollectorLocation EventType = "ubicacion_reciclador"
	EventRejectRequest     EventType = "rechazar_solicitud"
)

// Outbound type tags that differ from the inbound ones.
const (
	TypeRequestAccepted  = "solicitud_aceptada"
	TypeRequestCancelled = "solicitud_cancelada"
	TypeRequestCompleted = "solicitud_completada"
	TypeRequestRejected  = "solicitud_rechazada"
)

// Event is a decoded inbound message. The set of implementations is closed.
type Event interface {
	EventType() EventType
	isEvent()
}

type baseEvent struct{}

func (baseEvent) isEvent() {}

// Field values are kept as raw JSON so ids and coordinates are relayed exactly
// as the client sent them. A missing field is relayed as null.

type NewRequest struct {
	baseEvent
	Request json.RawMessage
}

type AcceptRequest struct {
	baseEvent
	RequestID json.RawMessage
}

type CancelRequest struct {
	baseEvent
	RequestID json.RawMessage
}

type CompleteRequest struct {
	baseEvent
	RequestID json.RawMessage
}

type CollectorLocation struct {
	baseEvent
	Lat       json.RawMessage
	Lng       json.RawMessage
	RequestID json.RawMessage
}

type RejectRequest struct {
	baseEvent
	RequestID json.RawMessage
}

func (NewRequest) EventType() EventType        { return EventNewRequest }
func (AcceptRequest) EventType() EventType     { return EventAcceptRequest }
func (CancelRequest) EventType() EventType     { return EventCancelRequest }
func (CompleteRequest) EventType() EventType   { return EventCompleteRequest }
func (CollectorLocation) EventType() EventType { return EventCollectorLocation }
func (RejectRequest) EventType() EventType     { return EventRejectRequest }

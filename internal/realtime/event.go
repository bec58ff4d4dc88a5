package realtime

// Event is the envelope pushed to connected websocket clients.
type Event struct {
	Type    string `json:"type"`
	Payload any    `json:"payload"`
}

// Event types emitted by the services.
const (
	EventAssignmentCreated  = "assignment.created"
	EventAssignmentUpdated  = "assignment.updated"
	EventAssignmentStatus   = "assignment.status_changed"
	EventAssignmentLocation = "assignment.location"
	EventAssignmentDeleted  = "assignment.deleted"

	EventMessageNew          = "message.new"
	EventMessageRead         = "message.read"
	EventConversationCreated = "conversation.created"
)

// Inbound frame types accepted from clients. Everything else is ignored; chat
// content goes through the HTTP API so persistence and fan-out stay ordered.
const (
	FrameJoin  = "join"
	FrameLeave = "leave"
)

// InboundFrame is the only shape clients are allowed to send.
type InboundFrame struct {
	Type           string `json:"type"`
	ConversationID string `json:"conversation_id"`
}

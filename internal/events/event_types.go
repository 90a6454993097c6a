package events

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated           EventType = "ticket_created"
	EventTicketUpdated           EventType = "ticket_updated"
	EventTicketStatusChanged     EventType = "ticket_status_changed"
	EventTicketApprovalChanged   EventType = "ticket_approval_changed"
	EventTicketAttachmentAdded   EventType = "ticket_attachment_added"
	EventTicketAttachmentRemoved EventType = "ticket_attachment_removed"
	EventTicketDeleted           EventType = "ticket_deleted"
	// EventTicketsRefresh follows every successful mutation so list views refetch.
	EventTicketsRefresh EventType = "tickets_refresh"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	ID   string      `json:"id"`
	Name string      `json:"name"`
	Role domain.Role `json:"role"`
}

// ActorFrom copies the acting identity onto an event.
func ActorFrom(identity domain.Identity) Actor {
	return Actor{ID: identity.ID, Name: identity.Name, Role: identity.Role}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	TicketID  string      `json:"ticket_id"`
	Actor     Actor       `json:"actor"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload,omitempty"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Department     string                `json:"department"`
	Priority       domain.TicketPriority `json:"priority"`
	ProblemDetails string                `json:"problem_details"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus    domain.TicketStatus `json:"old_status"`
	NewStatus    domain.TicketStatus `json:"new_status"`
	TechnicianID *string             `json:"technician_id,omitempty"`
}

// TicketApprovalChangedPayload payload.
type TicketApprovalChangedPayload struct {
	OldStatus    domain.ApprovalStatus `json:"old_status,omitempty"`
	NewStatus    domain.ApprovalStatus `json:"new_status"`
	ApprovedBy   string                `json:"approved_by,omitempty"`
	SelfApproved bool                  `json:"self_approved"`
}

// TicketAttachmentPayload payload for attachment added/removed events.
type TicketAttachmentPayload struct {
	AttachmentID string          `json:"attachment_id"`
	FileName     string          `json:"file_name"`
	FileType     domain.FileType `json:"file_type"`
}

// TicketUpdatedPayload lists the descriptive fields an edit touched.
type TicketUpdatedPayload struct {
	Fields []string `json:"fields"`
}

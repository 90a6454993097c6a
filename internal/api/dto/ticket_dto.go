package dto

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
)

// AssetRequest identifies the asset a ticket is filed against.
type AssetRequest struct {
	AssetID  *string `json:"asset_id"`
	Name     string  `json:"name" validate:"max=200"`
	Code     string  `json:"code" validate:"max=100"`
	Serial   string  `json:"serial" validate:"max=100"`
	Location string  `json:"location" validate:"max=200"`
}

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Priority       string       `json:"priority" validate:"omitempty,oneof=Low Medium High low medium high"`
	Department     string       `json:"department" validate:"max=200"`
	Building       string       `json:"building" validate:"max=200"`
	Floor          string       `json:"floor" validate:"max=50"`
	Asset          AssetRequest `json:"asset"`
	ProblemDetails string       `json:"problem_details" validate:"required,max=4000"`
}

// UpdateTicketRequest carries a partial edit; absent fields stay unchanged.
type UpdateTicketRequest struct {
	Priority       *string       `json:"priority" validate:"omitempty,oneof=Low Medium High low medium high"`
	Department     *string       `json:"department" validate:"omitempty,max=200"`
	Building       *string       `json:"building" validate:"omitempty,max=200"`
	Floor          *string       `json:"floor" validate:"omitempty,max=50"`
	Asset          *AssetRequest `json:"asset"`
	ProblemDetails *string       `json:"problem_details" validate:"omitempty,max=4000"`
}

// CompleteRequest must confirm completion explicitly.
type CompleteRequest struct {
	Confirmed bool `json:"confirmed"`
}

// DecisionRequest records a supervisor decision.
type DecisionRequest struct {
	Decision string `json:"decision" validate:"required,oneof=approved rejected"`
	Comments string `json:"comments" validate:"max=2000"`
}

// AssetResponse mirrors AssetRequest.
type AssetResponse struct {
	AssetID  *string `json:"asset_id,omitempty"`
	Name     string  `json:"name,omitempty"`
	Code     string  `json:"code,omitempty"`
	Serial   string  `json:"serial,omitempty"`
	Location string  `json:"location,omitempty"`
}

// ApprovalResponse is the approval sub-record.
type ApprovalResponse struct {
	Status       domain.ApprovalStatus `json:"status"`
	ApprovedBy   string                `json:"approved_by,omitempty"`
	ApproverRole string                `json:"approver_role,omitempty"`
	ApprovalDate *time.Time            `json:"approval_date,omitempty"`
	Comments     string                `json:"comments,omitempty"`
	SelfApproved bool                  `json:"self_approved"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID          string          `json:"id"`
	FileName    string          `json:"file_name"`
	FileType    domain.FileType `json:"file_type"`
	URL         string          `json:"url"`
	ContentType string          `json:"content_type,omitempty"`
	SizeBytes   int64           `json:"size_bytes"`
	UploadDate  time.Time       `json:"upload_date"`
	UploadedBy  string          `json:"uploaded_by"`
}

// TicketResponse is the ticket read model with its derived projection flags.
type TicketResponse struct {
	ID             string                `json:"id"`
	Status         domain.TicketStatus   `json:"status"`
	StatusLabelTH  string                `json:"status_label_th"`
	Priority       domain.TicketPriority `json:"priority"`
	ReporterID     string                `json:"reporter_id"`
	ReporterName   string                `json:"reporter_name"`
	Department     string                `json:"department"`
	Building       string                `json:"building"`
	Floor          string                `json:"floor"`
	Asset          AssetResponse         `json:"asset"`
	ProblemDetails string                `json:"problem_details"`
	TechnicianID   *string               `json:"technician_id"`
	TechnicianName string                `json:"technician_name,omitempty"`
	CheckInDate    *time.Time            `json:"check_in_date"`
	CheckOutDate   *time.Time            `json:"check_out_date"`

	IsPending      bool                  `json:"is_pending"`
	IsInProgress   bool                  `json:"is_in_progress"`
	IsCompleted    bool                  `json:"is_completed"`
	IsCancelled    bool                  `json:"is_cancelled"`
	HasApproval    bool                  `json:"has_approval"`
	ApprovalStatus domain.ApprovalStatus `json:"approval_status,omitempty"`

	Approval  *ApprovalResponse    `json:"approval"`
	Documents []AttachmentResponse `json:"documents"`
	Version   int64                `json:"version"`
	CreatedAt time.Time            `json:"created_at"`
	UpdatedAt time.Time            `json:"updated_at"`
}

// TicketHistoryResponse is one audit entry.
type TicketHistoryResponse struct {
	ID            string                  `json:"id"`
	ChangeType    domain.TicketChangeType `json:"change_type"`
	ChangedByID   string                  `json:"changed_by_id"`
	ChangedByName string                  `json:"changed_by_name"`
	ChangedByRole domain.Role             `json:"changed_by_role"`
	OldValue      map[string]any          `json:"old_value,omitempty"`
	NewValue      map[string]any          `json:"new_value,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
}

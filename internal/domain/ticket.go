package domain

import "time"

// AssetRef describes the asset a repair request is filed against.
type AssetRef struct {
	AssetID  *string
	Name     string
	Code     string
	Serial   string
	Location string
}

// RepairTicket is the aggregate for repair requests.
type RepairTicket struct {
	ID             string
	Status         TicketStatus
	Priority       TicketPriority
	ReporterID     string
	ReporterName   string
	Department     string
	Building       string
	Floor          string
	Asset          AssetRef
	ProblemDetails string
	TechnicianID   *string
	TechnicianName string
	CheckInDate    *time.Time
	CheckOutDate   *time.Time
	Approval       *Approval
	Documents      []Attachment
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	DeletedAt      *time.Time
}

// Clone returns a deep copy so state transitions never alias the original.
func (t RepairTicket) Clone() RepairTicket {
	out := t
	out.Asset.AssetID = clonePtr(t.Asset.AssetID)
	out.TechnicianID = clonePtr(t.TechnicianID)
	out.CheckInDate = clonePtr(t.CheckInDate)
	out.CheckOutDate = clonePtr(t.CheckOutDate)
	out.DeletedAt = clonePtr(t.DeletedAt)
	if t.Approval != nil {
		approval := *t.Approval
		approval.ApprovalDate = clonePtr(t.Approval.ApprovalDate)
		out.Approval = &approval
	}
	if t.Documents != nil {
		out.Documents = append([]Attachment(nil), t.Documents...)
	}
	return out
}

// Document returns the attachment with the given id.
func (t *RepairTicket) Document(id string) (Attachment, bool) {
	for _, doc := range t.Documents {
		if doc.ID == id {
			return doc, true
		}
	}
	return Attachment{}, false
}

// AssignedTo reports whether the ticket's technician is the given user.
func (t *RepairTicket) AssignedTo(userID string) bool {
	return t.TechnicianID != nil && *t.TechnicianID == userID
}

// Projection is the derived read model consumed by list views.
type Projection struct {
	IsPending      bool
	IsInProgress   bool
	IsCompleted    bool
	IsCancelled    bool
	HasApproval    bool
	ApprovalStatus ApprovalStatus
	StatusLabelTH  string
}

// Project derives the list-view flags from the normalized status.
func (t *RepairTicket) Project() Projection {
	p := Projection{
		IsPending:     t.Status.IsPending(),
		IsInProgress:  t.Status.IsInProgress(),
		IsCompleted:   t.Status.IsCompleted(),
		IsCancelled:   t.Status.IsCancelled(),
		HasApproval:   t.Approval != nil,
		StatusLabelTH: t.Status.ThaiLabel(),
	}
	if t.Approval != nil {
		p.ApprovalStatus = t.Approval.Status
	}
	return p
}

func clonePtr[T any](v *T) *T {
	if v == nil {
		return nil
	}
	c := *v
	return &c
}

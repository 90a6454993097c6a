package domain

import "time"

// ApprovalStatus is the state of a ticket's approval cycle.
type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
)

// ApprovalDecision is the outcome a supervisor may record.
type ApprovalDecision string

const (
	DecisionApproved ApprovalDecision = "approved"
	DecisionRejected ApprovalDecision = "rejected"
)

// ParseDecision validates a raw decision value.
func ParseDecision(raw string) (ApprovalDecision, bool) {
	switch ApprovalDecision(raw) {
	case DecisionApproved:
		return DecisionApproved, true
	case DecisionRejected:
		return DecisionRejected, true
	}
	return "", false
}

// Status maps the decision onto the approval state it produces.
func (d ApprovalDecision) Status() ApprovalStatus {
	switch d {
	case DecisionApproved:
		return ApprovalApproved
	case DecisionRejected:
		return ApprovalRejected
	}
	return ApprovalPending
}

// SelfApprovalRole is recorded as approver role on technician self-approvals.
const SelfApprovalRole = "Technician"

// Approval is the 1:1 approval sub-record of a ticket, created lazily.
type Approval struct {
	Status       ApprovalStatus
	ApprovedBy   string
	ApproverRole string
	ApprovalDate *time.Time
	Comments     string
	SelfApproved bool
}

// Decided reports whether the approval cycle reached a terminal state.
func (a *Approval) Decided() bool {
	return a != nil && a.Status != ApprovalPending
}

package lifecycle

import (
	"strings"
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// RequestApproval opens an approval cycle with a pending record.
func RequestApproval(ticket domain.RepairTicket) (domain.RepairTicket, error) {
	if ticket.Status.IsCancelled() {
		return ticket, apperrors.NewInvalidTransition(OpRequestApproval, string(domain.TicketStatusCancelled))
	}
	if ticket.Approval != nil {
		return ticket, apperrors.NewInvalidTransition(OpRequestApproval, "approval "+string(ticket.Approval.Status))
	}
	next := ticket.Clone()
	next.Approval = &domain.Approval{Status: domain.ApprovalPending}
	return next, nil
}

// SupervisorDecide records a supervisor's approval or rejection. Attachments
// are not required and comments are optional.
func SupervisorDecide(ticket domain.RepairTicket, decision domain.ApprovalDecision, comments string, approver domain.Identity, now time.Time) (domain.RepairTicket, error) {
	if _, ok := domain.ParseDecision(string(decision)); !ok {
		return ticket, apperrors.NewFieldError("decision", "decision must be approved or rejected")
	}
	if err := ensureOpen(ticket, OpSupervisorDecide); err != nil {
		return ticket, err
	}
	next := ticket.Clone()
	next.Approval = &domain.Approval{
		Status:       decision.Status(),
		ApprovedBy:   approver.Name,
		ApproverRole: string(approver.Role),
		ApprovalDate: &now,
		Comments:     strings.TrimSpace(comments),
	}
	return next, nil
}

// SelfApprove lets the technician attest that authorization was obtained
// out-of-band. The evidence joins the ticket documents in the same step and
// the approval is always recorded as approved.
func SelfApprove(ticket domain.RepairTicket, comments string, attachments []domain.Attachment, technician domain.Identity, now time.Time) (domain.RepairTicket, error) {
	if err := ValidateEvidence(comments, attachments); err != nil {
		return ticket, err
	}
	if err := selfApprovable(ticket); err != nil {
		return ticket, err
	}
	next := ticket.Clone()
	next.Documents = append(next.Documents, attachments...)
	next.Approval = &domain.Approval{
		Status:       domain.ApprovalApproved,
		ApprovedBy:   SelfApprovalLabel(technician.Name),
		ApproverRole: domain.SelfApprovalRole,
		ApprovalDate: &now,
		Comments:     strings.TrimSpace(comments),
		SelfApproved: true,
	}
	return next, nil
}

// CheckSelfApprove runs the self-approval preconditions that do not depend on
// stored files, so callers can reject a request before uploading anything.
func CheckSelfApprove(ticket domain.RepairTicket, comments string, fileCount int) error {
	if fileCount == 0 {
		return apperrors.NewFieldError("attachments", "at least one attachment required")
	}
	if strings.TrimSpace(comments) == "" {
		return apperrors.NewFieldError("comments", "comments required")
	}
	return selfApprovable(ticket)
}

func selfApprovable(ticket domain.RepairTicket) error {
	status := ticket.Status.Normalize()
	if status == domain.TicketStatusPending || status == domain.TicketStatusCancelled {
		return apperrors.NewInvalidTransition(OpSelfApprove, string(status))
	}
	return ensureOpen(ticket, OpSelfApprove)
}

// SelfApprovalLabel marks the approver name of a self-approval.
func SelfApprovalLabel(name string) string {
	return strings.TrimSpace(name) + " (technician self-approval)"
}

// A decided approval is terminal: re-approval after a decision is not allowed.
func ensureOpen(ticket domain.RepairTicket, op string) error {
	if ticket.Approval.Decided() {
		return apperrors.NewInvalidTransition(op, "approval "+string(ticket.Approval.Status))
	}
	return nil
}

package lifecycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

func inProgressTicket(t *testing.T) domain.RepairTicket {
	t.Helper()
	next, err := StartWork(pendingTicket(), tech, t0)
	require.NoError(t, err)
	return next
}

func TestSelfApprove(t *testing.T) {
	ticket := inProgressTicket(t)
	now := t0.Add(time.Hour)

	next, err := SelfApprove(ticket, "Approved via phone call", photos, tech, now)
	require.NoError(t, err)

	require.NotNil(t, next.Approval)
	assert.Equal(t, domain.ApprovalApproved, next.Approval.Status)
	assert.Equal(t, "Technician", next.Approval.ApproverRole)
	assert.Equal(t, "Approved via phone call", next.Approval.Comments)
	assert.Equal(t, now, *next.Approval.ApprovalDate)
	assert.True(t, next.Approval.SelfApproved)
	assert.Contains(t, next.Approval.ApprovedBy, tech.Name)
	assert.Contains(t, next.Approval.ApprovedBy, "self-approval")
	assert.Len(t, next.Documents, 1)

	// status axis untouched
	assert.Equal(t, domain.TicketStatusInProgress, next.Status)
	assert.Nil(t, ticket.Approval)
	assert.Empty(t, ticket.Documents)
}

func TestSelfApproveWithoutAttachmentsFails(t *testing.T) {
	ticket := inProgressTicket(t)
	for _, comments := range []string{"", "   ", "Approved via phone call"} {
		for _, attachments := range [][]domain.Attachment{nil, {}} {
			_, err := SelfApprove(ticket, comments, attachments, tech, t0)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), "comments=%q", comments)
		}
	}

	// also on tickets whose status would otherwise reject the call
	_, err := SelfApprove(pendingTicket(), "ok", nil, tech, t0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestSelfApproveRequiresComments(t *testing.T) {
	_, err := SelfApprove(inProgressTicket(t), "  ", photos, tech, t0)
	require.Error(t, err)
	de := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, de.Code)
	assert.Equal(t, "comments required", de.Message)
	assert.Equal(t, "comments", de.Details["field"])
}

func TestSelfApproveRequiresStartedWork(t *testing.T) {
	_, err := SelfApprove(pendingTicket(), "approved by phone", photos, tech, t0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	cancelled, err := Cancel(pendingTicket())
	require.NoError(t, err)
	_, err = SelfApprove(cancelled, "approved by phone", photos, tech, t0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestSelfApproveOnCompletedTicket(t *testing.T) {
	done, err := Complete(inProgressTicket(t), t0.Add(time.Hour))
	require.NoError(t, err)

	next, err := SelfApprove(done, "approved by phone", photos, tech, t0.Add(2*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, next.Status)
	assert.Equal(t, domain.ApprovalApproved, next.Approval.Status)
}

func TestCheckSelfApprove(t *testing.T) {
	ticket := inProgressTicket(t)
	require.NoError(t, CheckSelfApprove(ticket, "approved by phone", 1))

	err := CheckSelfApprove(ticket, "approved by phone", 0)
	assert.Equal(t, "attachments", apperrors.ToDomainError(err).Details["field"])

	err = CheckSelfApprove(ticket, " ", 2)
	assert.Equal(t, "comments", apperrors.ToDomainError(err).Details["field"])

	err = CheckSelfApprove(pendingTicket(), "approved by phone", 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	approved, err := SelfApprove(ticket, "approved by phone", photos, tech, t0)
	require.NoError(t, err)
	err = CheckSelfApprove(approved, "again", 1)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestSupervisorDecideRejects(t *testing.T) {
	ticket := inProgressTicket(t)
	ticket, err := RequestApproval(ticket)
	require.NoError(t, err)

	next, err := SupervisorDecide(ticket, domain.DecisionRejected, "insufficient budget", admin, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, next.Approval.Status)
	assert.Equal(t, "admin", next.Approval.ApproverRole)
	assert.Equal(t, admin.Name, next.Approval.ApprovedBy)
	assert.Equal(t, "insufficient budget", next.Approval.Comments)
	assert.Equal(t, t0, *next.Approval.ApprovalDate)
	assert.False(t, next.Approval.SelfApproved)
	assert.Empty(t, next.Documents)
}

func TestSupervisorDecideWithoutPriorRequest(t *testing.T) {
	done, err := Complete(inProgressTicket(t), t0)
	require.NoError(t, err)

	next, err := SupervisorDecide(done, domain.DecisionApproved, "", admin, t0)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalApproved, next.Approval.Status)
	assert.Equal(t, domain.TicketStatusCompleted, next.Status)
}

func TestSupervisorDecideRejectsUnknownDecision(t *testing.T) {
	_, err := SupervisorDecide(inProgressTicket(t), domain.ApprovalDecision("pending"), "", admin, t0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestDecidedApprovalIsTerminal(t *testing.T) {
	rejected, err := SupervisorDecide(inProgressTicket(t), domain.DecisionRejected, "no", admin, t0)
	require.NoError(t, err)

	_, err = SupervisorDecide(rejected, domain.DecisionApproved, "changed my mind", admin, t0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = SelfApprove(rejected, "approved by phone", photos, tech, t0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = RequestApproval(rejected)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestRequestApproval(t *testing.T) {
	next, err := RequestApproval(pendingTicket())
	require.NoError(t, err)
	require.NotNil(t, next.Approval)
	assert.Equal(t, domain.ApprovalPending, next.Approval.Status)
	assert.Nil(t, next.Approval.ApprovalDate)

	_, err = RequestApproval(next)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

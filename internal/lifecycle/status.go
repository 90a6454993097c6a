// Package lifecycle holds the repair ticket state machines. Every function is
// pure: it receives a ticket by value and returns the next state, leaving the
// input untouched when a precondition fails.
package lifecycle

import (
	"time"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// Operation names used in transition errors and metrics.
const (
	OpStartWork        = "start work"
	OpComplete         = "complete"
	OpCancel           = "cancel"
	OpRequestApproval  = "request approval"
	OpSupervisorDecide = "decide approval"
	OpSelfApprove      = "self-approve"
)

var allowedTransitions = map[domain.TicketStatus][]domain.TicketStatus{
	domain.TicketStatusPending:    {domain.TicketStatusInProgress, domain.TicketStatusCancelled},
	domain.TicketStatusInProgress: {domain.TicketStatusCompleted, domain.TicketStatusCancelled},
	domain.TicketStatusCompleted:  {},
	domain.TicketStatusCancelled:  {},
}

// CanTransition reports whether the status machine allows current -> next.
func CanTransition(current, next domain.TicketStatus) bool {
	for _, candidate := range allowedTransitions[current.Normalize()] {
		if candidate == next {
			return true
		}
	}
	return false
}

// StartWork moves a pending ticket into progress, stamping the check-in date
// and assigning the actor as technician when nobody is assigned yet.
func StartWork(ticket domain.RepairTicket, actor domain.Identity, now time.Time) (domain.RepairTicket, error) {
	next, err := transition(ticket, OpStartWork, domain.TicketStatusInProgress)
	if err != nil {
		return ticket, err
	}
	if next.CheckInDate == nil {
		next.CheckInDate = &now
	}
	if next.TechnicianID == nil {
		id := actor.ID
		next.TechnicianID = &id
		next.TechnicianName = actor.Name
	}
	return next, nil
}

// Complete finishes a ticket in progress and stamps the check-out date.
// Callers must have obtained an explicit confirmation from the user first.
func Complete(ticket domain.RepairTicket, now time.Time) (domain.RepairTicket, error) {
	next, err := transition(ticket, OpComplete, domain.TicketStatusCompleted)
	if err != nil {
		return ticket, err
	}
	if next.CheckOutDate == nil {
		next.CheckOutDate = &now
	}
	return next, nil
}

// Cancel withdraws a ticket that has not been completed.
func Cancel(ticket domain.RepairTicket) (domain.RepairTicket, error) {
	return transition(ticket, OpCancel, domain.TicketStatusCancelled)
}

func transition(ticket domain.RepairTicket, op string, to domain.TicketStatus) (domain.RepairTicket, error) {
	from := ticket.Status.Normalize()
	if !CanTransition(from, to) {
		return ticket, apperrors.NewInvalidTransition(op, string(from))
	}
	next := ticket.Clone()
	next.Status = to
	return next, nil
}

package service

import (
	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

func requireRole(actor domain.Identity, role domain.Role, action string) error {
	if !actor.Role.Includes(role) {
		return apperrors.NewForbidden(action + " requires the " + string(role) + " role")
	}
	return nil
}

// Technicians and admins see every ticket; users only their own reports.
func canView(actor domain.Identity, ticket *domain.RepairTicket) bool {
	return actor.Role.Includes(domain.RoleTechnician) || actor.Is(ticket.ReporterID)
}

func authorizeView(actor domain.Identity, ticket *domain.RepairTicket) error {
	if !canView(actor, ticket) {
		return apperrors.NewForbidden("ticket belongs to another reporter")
	}
	return nil
}

// Descriptive edits and deletion belong to the reporter or an admin.
func authorizeOwnerOrAdmin(actor domain.Identity, ticket *domain.RepairTicket, action string) error {
	if actor.Is(ticket.ReporterID) || actor.Role.Includes(domain.RoleAdmin) {
		return nil
	}
	return apperrors.NewForbidden(action + " is limited to the reporter or an admin")
}

func authorizeCancel(actor domain.Identity, ticket *domain.RepairTicket) error {
	if actor.Is(ticket.ReporterID) || actor.Role.Includes(domain.RoleTechnician) {
		return nil
	}
	return apperrors.NewForbidden("cancel is limited to the reporter or a technician")
}

// Once a technician is assigned only that technician may self-approve.
func authorizeSelfApprove(actor domain.Identity, ticket *domain.RepairTicket) error {
	if err := requireRole(actor, domain.RoleTechnician, "self-approval"); err != nil {
		return err
	}
	if actor.Role.Includes(domain.RoleAdmin) || ticket.TechnicianID == nil || ticket.AssignedTo(actor.ID) {
		return nil
	}
	return apperrors.NewForbidden("only the assigned technician may self-approve")
}

func authorizeAttachments(actor domain.Identity, ticket *domain.RepairTicket) error {
	if actor.Is(ticket.ReporterID) || ticket.AssignedTo(actor.ID) || actor.Role.Includes(domain.RoleAdmin) {
		return nil
	}
	return apperrors.NewForbidden("attachments are limited to the reporter, the assigned technician or an admin")
}

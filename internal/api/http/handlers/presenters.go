package handlers

import (
	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
)

func ticketResponse(ticket *domain.RepairTicket) dto.TicketResponse {
	projection := ticket.Project()
	resp := dto.TicketResponse{
		ID:             ticket.ID,
		Status:         ticket.Status,
		StatusLabelTH:  projection.StatusLabelTH,
		Priority:       ticket.Priority,
		ReporterID:     ticket.ReporterID,
		ReporterName:   ticket.ReporterName,
		Department:     ticket.Department,
		Building:       ticket.Building,
		Floor:          ticket.Floor,
		Asset:          assetResponse(ticket.Asset),
		ProblemDetails: ticket.ProblemDetails,
		TechnicianID:   ticket.TechnicianID,
		TechnicianName: ticket.TechnicianName,
		CheckInDate:    ticket.CheckInDate,
		CheckOutDate:   ticket.CheckOutDate,
		IsPending:      projection.IsPending,
		IsInProgress:   projection.IsInProgress,
		IsCompleted:    projection.IsCompleted,
		IsCancelled:    projection.IsCancelled,
		HasApproval:    projection.HasApproval,
		ApprovalStatus: projection.ApprovalStatus,
		Documents:      attachmentResponses(ticket.Documents),
		Version:        ticket.Version,
		CreatedAt:      ticket.CreatedAt,
		UpdatedAt:      ticket.UpdatedAt,
	}
	if a := ticket.Approval; a != nil {
		resp.Approval = &dto.ApprovalResponse{
			Status:       a.Status,
			ApprovedBy:   a.ApprovedBy,
			ApproverRole: a.ApproverRole,
			ApprovalDate: a.ApprovalDate,
			Comments:     a.Comments,
			SelfApproved: a.SelfApproved,
		}
	}
	return resp
}

func ticketResponses(tickets []domain.RepairTicket) []dto.TicketResponse {
	items := make([]dto.TicketResponse, 0, len(tickets))
	for i := range tickets {
		items = append(items, ticketResponse(&tickets[i]))
	}
	return items
}

func assetResponse(asset domain.AssetRef) dto.AssetResponse {
	return dto.AssetResponse{
		AssetID:  asset.AssetID,
		Name:     asset.Name,
		Code:     asset.Code,
		Serial:   asset.Serial,
		Location: asset.Location,
	}
}

func assetRef(req dto.AssetRequest) domain.AssetRef {
	return domain.AssetRef{
		AssetID:  req.AssetID,
		Name:     req.Name,
		Code:     req.Code,
		Serial:   req.Serial,
		Location: req.Location,
	}
}

func attachmentResponse(att domain.Attachment) dto.AttachmentResponse {
	return dto.AttachmentResponse{
		ID:          att.ID,
		FileName:    att.FileName,
		FileType:    att.FileType,
		URL:         att.FileURL,
		ContentType: att.ContentType,
		SizeBytes:   att.SizeBytes,
		UploadDate:  att.UploadDate,
		UploadedBy:  att.UploadedBy,
	}
}

func attachmentResponses(docs []domain.Attachment) []dto.AttachmentResponse {
	resp := make([]dto.AttachmentResponse, 0, len(docs))
	for _, doc := range docs {
		resp = append(resp, attachmentResponse(doc))
	}
	return resp
}

func historyResponses(entries []domain.TicketHistory) []dto.TicketHistoryResponse {
	resp := make([]dto.TicketHistoryResponse, 0, len(entries))
	for _, entry := range entries {
		resp = append(resp, dto.TicketHistoryResponse{
			ID:            entry.ID,
			ChangeType:    entry.ChangeType,
			ChangedByID:   entry.ChangedByID,
			ChangedByName: entry.ChangedByName,
			ChangedByRole: entry.ChangedByRole,
			OldValue:      entry.OldValue,
			NewValue:      entry.NewValue,
			CreatedAt:     entry.CreatedAt,
		})
	}
	return resp
}

func userResponse(user *domain.User) dto.UserResponse {
	return dto.UserResponse{
		ID:         user.ID,
		Name:       user.Name,
		Email:      user.Email,
		Role:       string(user.Role),
		Department: user.Department,
	}
}

package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// AttachmentsHandler manages ticket documents outside the approval flow.
type AttachmentsHandler struct {
	service *service.TicketService
}

// NewAttachmentsHandler constructs handler.
func NewAttachmentsHandler(ticketService *service.TicketService) *AttachmentsHandler {
	return &AttachmentsHandler{service: ticketService}
}

// AddAttachment POST /tickets/:id/attachments with a multipart "file" field.
func (h *AttachmentsHandler) AddAttachment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	header, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewFieldError("file", "file required")
	}
	f, err := header.Open()
	if err != nil {
		return apperrors.NewFieldError("file", "unreadable upload")
	}
	defer f.Close()

	ticket, att, err := h.service.AddAttachment(c.UserContext(), actor, c.Params("id"), service.FileUpload{
		FileName: header.Filename,
		Content:  f,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(refreshed(fiber.Map{
		"attachment": attachmentResponse(*att),
		"ticket":     ticketResponse(ticket),
	}))
}

// DeleteAttachment DELETE /tickets/:id/attachments/:attachmentId.
func (h *AttachmentsHandler) DeleteAttachment(c *fiber.Ctx) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	ticket, err := h.service.DeleteAttachment(c.UserContext(), actor, c.Params("id"), c.Params("attachmentId"))
	if err != nil {
		return err
	}
	return c.JSON(refreshed(ticketResponse(ticket)))
}

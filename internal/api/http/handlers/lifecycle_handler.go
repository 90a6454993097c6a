package handlers

import (
	"mime/multipart"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// LifecycleHandler drives status transitions and the approval cycle.
type LifecycleHandler struct {
	service *service.TicketService
}

// NewLifecycleHandler constructs handler.
func NewLifecycleHandler(ticketService *service.TicketService) *LifecycleHandler {
	return &LifecycleHandler{service: ticketService}
}

type transitionFunc func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error)

func (h *LifecycleHandler) transition(fn transitionFunc) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor, err := actorFrom(c)
		if err != nil {
			return err
		}
		ticket, err := fn(c, actor, c.Params("id"))
		if err != nil {
			return err
		}
		return c.JSON(refreshed(ticketResponse(ticket)))
	}
}

// StartWork POST /tickets/:id/start.
func (h *LifecycleHandler) StartWork(c *fiber.Ctx) error {
	return h.transition(func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error) {
		return h.service.StartWork(c.UserContext(), actor, id)
	})(c)
}

// Complete POST /tickets/:id/complete. The caller must send {"confirmed": true}.
func (h *LifecycleHandler) Complete(c *fiber.Ctx) error {
	return h.transition(func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error) {
		var req dto.CompleteRequest
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return nil, apperrors.NewValidationError("invalid payload", nil)
			}
		}
		if !req.Confirmed {
			return nil, apperrors.NewFieldError("confirmed", "completion must be confirmed")
		}
		return h.service.Complete(c.UserContext(), actor, id)
	})(c)
}

// Cancel POST /tickets/:id/cancel.
func (h *LifecycleHandler) Cancel(c *fiber.Ctx) error {
	return h.transition(func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error) {
		return h.service.Cancel(c.UserContext(), actor, id)
	})(c)
}

// RequestApproval POST /tickets/:id/approval/request.
func (h *LifecycleHandler) RequestApproval(c *fiber.Ctx) error {
	return h.transition(func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error) {
		return h.service.RequestApproval(c.UserContext(), actor, id)
	})(c)
}

// Decide POST /tickets/:id/approval/decision.
func (h *LifecycleHandler) Decide(c *fiber.Ctx) error {
	return h.transition(func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error) {
		var req dto.DecisionRequest
		if err := parseBody(c, &req); err != nil {
			return nil, err
		}
		return h.service.SupervisorDecide(c.UserContext(), actor, id, domain.ApprovalDecision(req.Decision), req.Comments)
	})(c)
}

// SelfApprove POST /tickets/:id/approval/self as multipart with comments and files.
func (h *LifecycleHandler) SelfApprove(c *fiber.Ctx) error {
	return h.transition(func(c *fiber.Ctx, actor domain.Identity, id string) (*domain.RepairTicket, error) {
		form, err := c.MultipartForm()
		if err != nil {
			return nil, apperrors.NewValidationError("multipart form required", nil)
		}
		var headers []*multipart.FileHeader
		headers = append(headers, form.File["files"]...)
		headers = append(headers, form.File["files[]"]...)
		uploads, closeAll, err := openUploads(headers)
		if err != nil {
			return nil, err
		}
		defer closeAll()
		return h.service.SelfApprove(c.UserContext(), actor, id, firstValue(form.Value["comments"]), uploads)
	})(c)
}

func openUploads(headers []*multipart.FileHeader) ([]service.FileUpload, func(), error) {
	files := make([]multipart.File, 0, len(headers))
	closeAll := func() {
		for _, f := range files {
			_ = f.Close()
		}
	}
	uploads := make([]service.FileUpload, 0, len(headers))
	for _, header := range headers {
		f, err := header.Open()
		if err != nil {
			closeAll()
			return nil, func() {}, apperrors.NewFieldError("files", "unreadable upload "+header.Filename)
		}
		files = append(files, f)
		uploads = append(uploads, service.FileUpload{FileName: header.Filename, Content: f})
	}
	return uploads, closeAll, nil
}

func firstValue(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}

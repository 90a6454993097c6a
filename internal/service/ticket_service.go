package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/observability"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/storage"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// Operation names for ticket changes that are not state machine transitions.
const (
	opCreate           = "create"
	opUpdate           = "update"
	opDelete           = "delete"
	opAddAttachment    = "add attachment"
	opDeleteAttachment = "delete attachment"
)

// AttachmentStorage persists uploaded files.
type AttachmentStorage interface {
	Upload(ctx context.Context, fileName string, r io.Reader) (storage.UploadResult, error)
	Delete(ctx context.Context, fileURL string) error
}

// FileUpload is a file received from a client.
type FileUpload struct {
	FileName string
	Content  io.Reader
}

// TicketService is the only writer of ticket lifecycle fields. Every change
// loads the ticket, checks the caller, runs the state machine on a copy and
// saves; callers only ever see the saved ticket.
type TicketService struct {
	tickets    repository.TicketRepository
	history    repository.TicketHistoryRepository
	storage    AttachmentStorage
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles repositories for ticket service.
type TicketDependencies struct {
	TicketRepo  repository.TicketRepository
	HistoryRepo repository.TicketHistoryRepository
	Storage     AttachmentStorage
	Dispatcher  events.Dispatcher
	Metrics     *observability.Metrics
	Logger      *zap.Logger
	// Now defaults to time.Now.
	Now func() time.Time
}

// TicketCreateInput describes ticket creation payload.
type TicketCreateInput struct {
	Priority       domain.TicketPriority
	Department     string
	Building       string
	Floor          string
	Asset          domain.AssetRef
	ProblemDetails string
}

// TicketUpdateInput carries the descriptive fields a reporter may edit.
// Nil fields are left untouched.
type TicketUpdateInput struct {
	Priority       *domain.TicketPriority
	Department     *string
	Building       *string
	Floor          *string
	Asset          *domain.AssetRef
	ProblemDetails *string
}

// TicketListFilter describes list view filters.
type TicketListFilter struct {
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	Department   *string
	TechnicianID *string
	ReporterID   *string
	SearchTerm   *string
	// IncludeInactive also lists cancelled tickets.
	IncludeInactive bool
	Limit           int
	Offset          int
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TicketService{
		tickets:    deps.TicketRepo,
		history:    deps.HistoryRepo,
		storage:    deps.Storage,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        now,
	}
}

// CreateTicket files a new pending repair request for the caller.
func (s *TicketService) CreateTicket(ctx context.Context, actor domain.Identity, input TicketCreateInput) (_ *domain.RepairTicket, err error) {
	defer func() { s.observe(opCreate, err) }()

	details := strings.TrimSpace(input.ProblemDetails)
	if details == "" {
		return nil, apperrors.NewFieldError("problem_details", "problem details required")
	}
	priority := domain.TicketPriorityMedium
	if input.Priority != "" {
		parsed, ok := domain.ParsePriority(string(input.Priority))
		if !ok {
			return nil, apperrors.NewFieldError("priority", "priority must be low, medium or high")
		}
		priority = parsed
	}

	ticket := &domain.RepairTicket{
		ID:             uuid.NewString(),
		Status:         domain.TicketStatusPending,
		Priority:       priority,
		ReporterID:     actor.ID,
		ReporterName:   actor.Name,
		Department:     strings.TrimSpace(input.Department),
		Building:       strings.TrimSpace(input.Building),
		Floor:          strings.TrimSpace(input.Floor),
		Asset:          trimAsset(input.Asset),
		ProblemDetails: details,
	}
	if err := s.tickets.Create(ctx, ticket); err != nil {
		return nil, mapRepoError(err, ticket.ID)
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeCreated, nil, map[string]any{
		"status":   ticket.Status,
		"priority": ticket.Priority,
	})
	s.emit(ctx, actor, ticket.ID, events.EventTicketCreated, events.TicketCreatedPayload{
		Department:     ticket.Department,
		Priority:       ticket.Priority,
		ProblemDetails: ticket.ProblemDetails,
	})
	return ticket, nil
}

// GetTicket returns a single ticket visible to the caller.
func (s *TicketService) GetTicket(ctx context.Context, actor domain.Identity, ticketID string) (*domain.RepairTicket, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, ticket); err != nil {
		return nil, err
	}
	return ticket, nil
}

// ListTickets returns the caller's worklist. Plain users only see tickets
// they reported; cancelled tickets are hidden unless asked for.
func (s *TicketService) ListTickets(ctx context.Context, actor domain.Identity, filter TicketListFilter) ([]domain.RepairTicket, error) {
	repoFilter := repository.TicketFilter{
		ReporterID:   filter.ReporterID,
		TechnicianID: filter.TechnicianID,
		Department:   filter.Department,
		Statuses:     filter.Statuses,
		Priorities:   filter.Priorities,
		SearchTerm:   filter.SearchTerm,
		ActiveOnly:   !filter.IncludeInactive,
		Limit:        filter.Limit,
		Offset:       filter.Offset,
	}
	if !actor.Role.Includes(domain.RoleTechnician) {
		reporterID := actor.ID
		repoFilter.ReporterID = &reporterID
	}
	tickets, err := s.tickets.List(ctx, repoFilter)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	for i := range tickets {
		tickets[i].Status = tickets[i].Status.Normalize()
	}
	return tickets, nil
}

// UpdateTicket edits descriptive fields and priority until the ticket is completed.
func (s *TicketService) UpdateTicket(ctx context.Context, actor domain.Identity, ticketID string, input TicketUpdateInput) (*domain.RepairTicket, error) {
	var changed []string
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op: opUpdate,
		authorize: func(a domain.Identity, t *domain.RepairTicket) error {
			return authorizeOwnerOrAdmin(a, t, "editing")
		},
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			next, fields, err := applyUpdate(t, input)
			changed = fields
			return next, err
		},
	})
	if err != nil {
		return nil, err
	}

	if before.Priority != after.Priority {
		s.recordHistory(ctx, actor, after.ID, domain.ChangeTypePriority,
			map[string]any{"priority": before.Priority},
			map[string]any{"priority": after.Priority})
	}
	if details := withoutField(changed, "priority"); len(details) > 0 {
		s.recordHistory(ctx, actor, after.ID, domain.ChangeTypeDetails, nil, map[string]any{"fields": details})
	}
	s.emit(ctx, actor, after.ID, events.EventTicketUpdated, events.TicketUpdatedPayload{Fields: changed})
	return after, nil
}

// DeleteTicket soft deletes a ticket that has not been completed.
func (s *TicketService) DeleteTicket(ctx context.Context, actor domain.Identity, ticketID string) (err error) {
	defer func() { s.observe(opDelete, err) }()

	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return err
	}
	if err := authorizeOwnerOrAdmin(actor, ticket, "deleting"); err != nil {
		return err
	}
	if ticket.Status.IsCompleted() {
		return apperrors.NewInvalidTransition(opDelete, string(ticket.Status))
	}
	if err := s.tickets.Delete(ctx, ticket.ID, s.now()); err != nil {
		return mapRepoError(err, ticket.ID)
	}

	s.recordHistory(ctx, actor, ticket.ID, domain.ChangeTypeDeleted,
		map[string]any{"status": ticket.Status}, nil)
	s.emit(ctx, actor, ticket.ID, events.EventTicketDeleted, nil)
	return nil
}

// StartWork moves a pending ticket into progress.
func (s *TicketService) StartWork(ctx context.Context, actor domain.Identity, ticketID string) (*domain.RepairTicket, error) {
	now := s.now()
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op: lifecycle.OpStartWork,
		authorize: func(a domain.Identity, _ *domain.RepairTicket) error {
			return requireRole(a, domain.RoleTechnician, "starting work")
		},
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			return lifecycle.StartWork(t, actor, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, actor, before, after)
	return after, nil
}

// Complete finishes a ticket in progress. Callers confirm with the user
// before invoking it.
func (s *TicketService) Complete(ctx context.Context, actor domain.Identity, ticketID string) (*domain.RepairTicket, error) {
	now := s.now()
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op: lifecycle.OpComplete,
		authorize: func(a domain.Identity, _ *domain.RepairTicket) error {
			return requireRole(a, domain.RoleTechnician, "completing work")
		},
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			return lifecycle.Complete(t, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, actor, before, after)
	return after, nil
}

// Cancel withdraws a pending or in-progress ticket.
func (s *TicketService) Cancel(ctx context.Context, actor domain.Identity, ticketID string) (*domain.RepairTicket, error) {
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op:        lifecycle.OpCancel,
		authorize: authorizeCancel,
		apply:     lifecycle.Cancel,
	})
	if err != nil {
		return nil, err
	}
	s.statusChanged(ctx, actor, before, after)
	return after, nil
}

// RequestApproval opens an approval cycle awaiting a supervisor.
func (s *TicketService) RequestApproval(ctx context.Context, actor domain.Identity, ticketID string) (*domain.RepairTicket, error) {
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op: lifecycle.OpRequestApproval,
		authorize: func(a domain.Identity, _ *domain.RepairTicket) error {
			return requireRole(a, domain.RoleTechnician, "requesting approval")
		},
		apply: lifecycle.RequestApproval,
	})
	if err != nil {
		return nil, err
	}
	s.approvalChanged(ctx, actor, before, after)
	return after, nil
}

// SupervisorDecide records an admin's approval or rejection.
func (s *TicketService) SupervisorDecide(ctx context.Context, actor domain.Identity, ticketID string, decision domain.ApprovalDecision, comments string) (*domain.RepairTicket, error) {
	now := s.now()
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op: lifecycle.OpSupervisorDecide,
		authorize: func(a domain.Identity, _ *domain.RepairTicket) error {
			return requireRole(a, domain.RoleAdmin, "deciding approval")
		},
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			return lifecycle.SupervisorDecide(t, decision, comments, actor, now)
		},
	})
	if err != nil {
		return nil, err
	}
	s.approvalChanged(ctx, actor, before, after)
	return after, nil
}

// SelfApprove uploads the technician's evidence and records a self-approval.
// Files uploaded for a rejected attempt are removed again.
func (s *TicketService) SelfApprove(ctx context.Context, actor domain.Identity, ticketID, comments string, files []FileUpload) (*domain.RepairTicket, error) {
	now := s.now()
	var uploaded []domain.Attachment
	before, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op:        lifecycle.OpSelfApprove,
		authorize: authorizeSelfApprove,
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			if err := lifecycle.CheckSelfApprove(t, comments, len(files)); err != nil {
				return t, err
			}
			attachments, err := s.upload(ctx, actor, t.ID, files, now)
			uploaded = attachments
			if err != nil {
				return t, err
			}
			return lifecycle.SelfApprove(t, comments, attachments, actor, now)
		},
	})
	if err != nil {
		s.discard(ctx, uploaded)
		return nil, err
	}

	s.approvalChanged(ctx, actor, before, after)
	for _, att := range uploaded {
		s.recordHistory(ctx, actor, after.ID, domain.ChangeTypeAttachment, nil, attachmentValue(att))
	}
	return after, nil
}

// AddAttachment uploads a file and appends it to the ticket documents.
// Attachments may be added in any status.
func (s *TicketService) AddAttachment(ctx context.Context, actor domain.Identity, ticketID string, file FileUpload) (*domain.RepairTicket, *domain.Attachment, error) {
	now := s.now()
	var uploaded []domain.Attachment
	_, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op:        opAddAttachment,
		authorize: authorizeAttachments,
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			attachments, err := s.upload(ctx, actor, t.ID, []FileUpload{file}, now)
			uploaded = attachments
			if err != nil {
				return t, err
			}
			next := t.Clone()
			next.Documents = append(next.Documents, attachments...)
			return next, nil
		},
	})
	if err != nil {
		s.discard(ctx, uploaded)
		return nil, nil, err
	}

	att := uploaded[0]
	s.recordHistory(ctx, actor, after.ID, domain.ChangeTypeAttachment, nil, attachmentValue(att))
	s.emit(ctx, actor, after.ID, events.EventTicketAttachmentAdded, events.TicketAttachmentPayload{
		AttachmentID: att.ID,
		FileName:     att.FileName,
		FileType:     att.FileType,
	})
	return after, &att, nil
}

// DeleteAttachment removes a document regardless of ticket status.
func (s *TicketService) DeleteAttachment(ctx context.Context, actor domain.Identity, ticketID, attachmentID string) (*domain.RepairTicket, error) {
	var removed domain.Attachment
	_, after, err := s.mutate(ctx, actor, ticketID, mutation{
		op:        opDeleteAttachment,
		authorize: authorizeAttachments,
		apply: func(t domain.RepairTicket) (domain.RepairTicket, error) {
			doc, ok := t.Document(attachmentID)
			if !ok {
				return t, apperrors.NewNotFound("attachment", map[string]any{"id": attachmentID})
			}
			removed = doc
			next := t.Clone()
			next.Documents = next.Documents[:0]
			for _, d := range t.Documents {
				if d.ID != attachmentID {
					next.Documents = append(next.Documents, d)
				}
			}
			return next, nil
		},
	})
	if err != nil {
		return nil, err
	}

	s.discard(ctx, []domain.Attachment{removed})
	s.recordHistory(ctx, actor, after.ID, domain.ChangeTypeAttachment, attachmentValue(removed), nil)
	s.emit(ctx, actor, after.ID, events.EventTicketAttachmentRemoved, events.TicketAttachmentPayload{
		AttachmentID: removed.ID,
		FileName:     removed.FileName,
		FileType:     removed.FileType,
	})
	return after, nil
}

// ListHistory returns the audit trail of a ticket visible to the caller.
func (s *TicketService) ListHistory(ctx context.Context, actor domain.Identity, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	ticket, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, err
	}
	if err := authorizeView(actor, ticket); err != nil {
		return nil, err
	}
	if s.history == nil {
		return []domain.TicketHistory{}, nil
	}
	entries, err := s.history.ListByTicket(ctx, ticket.ID, limit, offset)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return entries, nil
}

type mutation struct {
	op        string
	authorize func(domain.Identity, *domain.RepairTicket) error
	apply     func(domain.RepairTicket) (domain.RepairTicket, error)
}

// mutate runs one read-modify-write cycle. On any failure the stored ticket
// is left as it was.
func (s *TicketService) mutate(ctx context.Context, actor domain.Identity, ticketID string, m mutation) (before, after *domain.RepairTicket, err error) {
	defer func() { s.observe(m.op, err) }()

	current, err := s.load(ctx, ticketID)
	if err != nil {
		return nil, nil, err
	}
	if err := m.authorize(actor, current); err != nil {
		return nil, nil, err
	}
	next, err := m.apply(*current)
	if err != nil {
		return nil, nil, err
	}
	if err := s.tickets.Save(ctx, &next); err != nil {
		s.logger.Warn("ticket save failed",
			zap.String("ticket_id", ticketID),
			zap.String("op", m.op),
			zap.Error(err))
		return nil, nil, mapRepoError(err, ticketID)
	}
	s.logger.Info("ticket updated",
		zap.String("ticket_id", ticketID),
		zap.String("op", m.op),
		zap.String("actor_id", actor.ID),
		zap.String("status", string(next.Status)))
	return current, &next, nil
}

func (s *TicketService) load(ctx context.Context, ticketID string) (*domain.RepairTicket, error) {
	if _, err := uuid.Parse(ticketID); err != nil {
		return nil, apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	}
	ticket, err := s.tickets.GetByID(ctx, ticketID)
	if err != nil {
		return nil, mapRepoError(err, ticketID)
	}
	ticket.Status = ticket.Status.Normalize()
	return ticket, nil
}

func (s *TicketService) upload(ctx context.Context, actor domain.Identity, ticketID string, files []FileUpload, now time.Time) ([]domain.Attachment, error) {
	if len(files) > 0 && s.storage == nil {
		return nil, apperrors.NewInternalError(errors.New("attachment storage not configured"))
	}
	attachments := make([]domain.Attachment, 0, len(files))
	for _, file := range files {
		res, err := s.storage.Upload(ctx, file.FileName, file.Content)
		if err != nil {
			return attachments, err
		}
		attachments = append(attachments, domain.Attachment{
			ID:          uuid.NewString(),
			TicketID:    ticketID,
			FileName:    res.FileName,
			FileType:    res.FileType,
			FileURL:     res.URL,
			ContentType: res.ContentType,
			SizeBytes:   res.Size,
			UploadDate:  now,
			UploadedBy:  actor.ID,
		})
	}
	return attachments, nil
}

// discard removes stored files; failures only leave orphaned files behind.
func (s *TicketService) discard(ctx context.Context, attachments []domain.Attachment) {
	if s.storage == nil {
		return
	}
	for _, att := range attachments {
		if err := s.storage.Delete(ctx, att.FileURL); err != nil {
			s.logger.Warn("attachment cleanup failed", zap.String("url", att.FileURL), zap.Error(err))
		}
	}
}

func (s *TicketService) statusChanged(ctx context.Context, actor domain.Identity, before, after *domain.RepairTicket) {
	newValue := map[string]any{"status": after.Status}
	if after.TechnicianID != nil {
		newValue["technician_id"] = *after.TechnicianID
	}
	if after.CheckInDate != nil {
		newValue["check_in_date"] = *after.CheckInDate
	}
	if after.CheckOutDate != nil {
		newValue["check_out_date"] = *after.CheckOutDate
	}
	s.recordHistory(ctx, actor, after.ID, domain.ChangeTypeStatus, map[string]any{"status": before.Status}, newValue)
	s.emit(ctx, actor, after.ID, events.EventTicketStatusChanged, events.TicketStatusChangedPayload{
		OldStatus:    before.Status,
		NewStatus:    after.Status,
		TechnicianID: after.TechnicianID,
	})
}

func (s *TicketService) approvalChanged(ctx context.Context, actor domain.Identity, before, after *domain.RepairTicket) {
	var oldStatus domain.ApprovalStatus
	var oldValue map[string]any
	if before.Approval != nil {
		oldStatus = before.Approval.Status
		oldValue = map[string]any{"approval_status": oldStatus}
	}
	approval := after.Approval
	s.recordHistory(ctx, actor, after.ID, domain.ChangeTypeApproval, oldValue, map[string]any{
		"approval_status": approval.Status,
		"approved_by":     approval.ApprovedBy,
		"approver_role":   approval.ApproverRole,
		"self_approved":   approval.SelfApproved,
	})
	s.emit(ctx, actor, after.ID, events.EventTicketApprovalChanged, events.TicketApprovalChangedPayload{
		OldStatus:    oldStatus,
		NewStatus:    approval.Status,
		ApprovedBy:   approval.ApprovedBy,
		SelfApproved: approval.SelfApproved,
	})
}

// recordHistory never fails the operation; the change is already saved.
func (s *TicketService) recordHistory(ctx context.Context, actor domain.Identity, ticketID string, changeType domain.TicketChangeType, oldValue, newValue map[string]any) {
	if s.history == nil {
		return
	}
	entry := &domain.TicketHistory{
		TicketID:      ticketID,
		ChangedByID:   actor.ID,
		ChangedByName: actor.Name,
		ChangedByRole: actor.Role,
		ChangeType:    changeType,
		OldValue:      oldValue,
		NewValue:      newValue,
	}
	if err := s.history.Create(ctx, entry); err != nil {
		s.logger.Warn("history record failed",
			zap.String("ticket_id", ticketID),
			zap.String("change_type", string(changeType)),
			zap.Error(err))
	}
}

// emit publishes the event followed by the list refresh signal.
func (s *TicketService) emit(ctx context.Context, actor domain.Identity, ticketID string, eventType events.EventType, payload interface{}) {
	s.publishEvent(ctx, events.Event{
		Type:     eventType,
		TicketID: ticketID,
		Actor:    events.ActorFrom(actor),
		Payload:  payload,
	})
	s.publishEvent(ctx, events.Event{
		Type:     events.EventTicketsRefresh,
		TicketID: ticketID,
		Actor:    events.ActorFrom(actor),
	})
}

func (s *TicketService) publishEvent(ctx context.Context, event events.Event) {
	if s.dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now()
	}
	_ = s.dispatcher.Publish(ctx, event)
}

func (s *TicketService) observe(op string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = apperrors.ToDomainError(err).Code
	}
	s.metrics.RecordOperation(op, outcome)
}

func mapRepoError(err error, ticketID string) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("ticket", map[string]any{"id": ticketID})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("ticket was changed by another request; reload and retry",
			map[string]any{"id": ticketID})
	case errors.Is(err, repository.ErrDuplicate):
		return apperrors.NewConflict("ticket already exists", map[string]any{"id": ticketID})
	}
	var domainErr *apperrors.DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	return apperrors.NewInternalError(err)
}

func applyUpdate(t domain.RepairTicket, input TicketUpdateInput) (domain.RepairTicket, []string, error) {
	if t.Status.IsCompleted() {
		return t, nil, apperrors.NewInvalidTransition(opUpdate, string(t.Status))
	}
	next := t.Clone()
	var changed []string
	setString := func(field string, target *string, value *string) {
		if value == nil {
			return
		}
		v := strings.TrimSpace(*value)
		if *target != v {
			*target = v
			changed = append(changed, field)
		}
	}

	if input.Priority != nil {
		priority, ok := domain.ParsePriority(string(*input.Priority))
		if !ok {
			return t, nil, apperrors.NewFieldError("priority", "priority must be low, medium or high")
		}
		if next.Priority != priority {
			next.Priority = priority
			changed = append(changed, "priority")
		}
	}
	if input.ProblemDetails != nil && strings.TrimSpace(*input.ProblemDetails) == "" {
		return t, nil, apperrors.NewFieldError("problem_details", "problem details required")
	}
	setString("problem_details", &next.ProblemDetails, input.ProblemDetails)
	setString("department", &next.Department, input.Department)
	setString("building", &next.Building, input.Building)
	setString("floor", &next.Floor, input.Floor)
	if input.Asset != nil {
		asset := trimAsset(*input.Asset)
		if !sameAsset(next.Asset, asset) {
			next.Asset = asset
			changed = append(changed, "asset")
		}
	}

	if len(changed) == 0 {
		return t, nil, apperrors.NewValidationError("no changes to apply", nil)
	}
	return next, changed, nil
}

func trimAsset(a domain.AssetRef) domain.AssetRef {
	out := domain.AssetRef{
		Name:     strings.TrimSpace(a.Name),
		Code:     strings.TrimSpace(a.Code),
		Serial:   strings.TrimSpace(a.Serial),
		Location: strings.TrimSpace(a.Location),
	}
	if a.AssetID != nil && strings.TrimSpace(*a.AssetID) != "" {
		id := strings.TrimSpace(*a.AssetID)
		out.AssetID = &id
	}
	return out
}

func sameAsset(a, b domain.AssetRef) bool {
	if (a.AssetID == nil) != (b.AssetID == nil) {
		return false
	}
	if a.AssetID != nil && *a.AssetID != *b.AssetID {
		return false
	}
	return a.Name == b.Name && a.Code == b.Code && a.Serial == b.Serial && a.Location == b.Location
}

func withoutField(fields []string, field string) []string {
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f != field {
			out = append(out, f)
		}
	}
	return out
}

func attachmentValue(att domain.Attachment) map[string]any {
	return map[string]any{
		"attachment_id": att.ID,
		"file_name":     att.FileName,
		"file_type":     att.FileType,
	}
}

package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/events"
	"github.com/spec-kit/repair-service/internal/lifecycle"
	"github.com/spec-kit/repair-service/internal/repository"
	"github.com/spec-kit/repair-service/internal/storage"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

var (
	clock    = time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	reporter = domain.Identity{ID: "u-reporter", Name: "Somchai", Role: domain.RoleUser}
	stranger = domain.Identity{ID: "u-other", Name: "Nok", Role: domain.RoleUser}
	tech     = domain.Identity{ID: "u-tech", Name: "Anan", Role: domain.RoleTechnician}
	tech2    = domain.Identity{ID: "u-tech2", Name: "Chai", Role: domain.RoleTechnician}
	admin    = domain.Identity{ID: "u-admin", Name: "Pim", Role: domain.RoleAdmin}
)

type memoryStorage struct {
	files   map[string]string
	deleted []string
	failOn  string
	uploads int
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string]string)}
}

func (m *memoryStorage) Upload(_ context.Context, fileName string, r io.Reader) (storage.UploadResult, error) {
	m.uploads++
	if fileName == m.failOn {
		return storage.UploadResult{}, apperrors.NewFieldError("file", "file is empty")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return storage.UploadResult{}, err
	}
	url := "/files/" + uuid.NewString()
	m.files[url] = string(body)
	contentType := "application/pdf"
	if strings.HasSuffix(fileName, ".jpg") {
		contentType = "image/jpeg"
	}
	return storage.UploadResult{
		URL:         url,
		FileName:    fileName,
		FileType:    domain.ClassifyContentType(contentType),
		ContentType: contentType,
		Size:        int64(len(body)),
	}, nil
}

func (m *memoryStorage) Delete(_ context.Context, fileURL string) error {
	delete(m.files, fileURL)
	m.deleted = append(m.deleted, fileURL)
	return nil
}

// failingSaveRepo rejects every Save after loading normally.
type failingSaveRepo struct {
	repository.TicketRepository
	err error
}

func (f failingSaveRepo) Save(context.Context, *domain.RepairTicket) error {
	return f.err
}

type fixture struct {
	svc     *TicketService
	tickets *repository.MemoryTicketRepository
	history *repository.MemoryTicketHistoryRepository
	files   *memoryStorage
	events  []events.Event
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		tickets: repository.NewMemoryTicketRepository(),
		history: repository.NewMemoryTicketHistoryRepository(),
		files:   newMemoryStorage(),
	}
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	for _, eventType := range notifiedEvents {
		dispatcher.Subscribe(eventType, func(_ context.Context, e events.Event) error {
			f.events = append(f.events, e)
			return nil
		})
	}
	f.svc = NewTicketService(TicketDependencies{
		TicketRepo:  f.tickets,
		HistoryRepo: f.history,
		Storage:     f.files,
		Dispatcher:  dispatcher,
		Logger:      zap.NewNop(),
		Now:         func() time.Time { return clock },
	})
	return f
}

func (f *fixture) create(t *testing.T) *domain.RepairTicket {
	t.Helper()
	ticket, err := f.svc.CreateTicket(context.Background(), reporter, TicketCreateInput{
		Department:     "IT",
		Building:       "A",
		Floor:          "3",
		Asset:          domain.AssetRef{Name: "Printer", Code: "PR-01"},
		ProblemDetails: "paper jam on tray 2",
	})
	require.NoError(t, err)
	return ticket
}

func (f *fixture) started(t *testing.T) *domain.RepairTicket {
	t.Helper()
	ticket := f.create(t)
	started, err := f.svc.StartWork(context.Background(), tech, ticket.ID)
	require.NoError(t, err)
	return started
}

func evidence(names ...string) []FileUpload {
	files := make([]FileUpload, 0, len(names))
	for _, name := range names {
		files = append(files, FileUpload{FileName: name, Content: strings.NewReader("content of " + name)})
	}
	return files
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, code), "want %s, got %v", code, err)
}

func TestCreateTicket(t *testing.T) {
	f := newFixture(t)
	ticket := f.create(t)

	assert.Equal(t, domain.TicketStatusPending, ticket.Status)
	assert.Equal(t, domain.TicketPriorityMedium, ticket.Priority)
	assert.Nil(t, ticket.Approval)
	assert.Nil(t, ticket.CheckInDate)
	assert.Equal(t, reporter.ID, ticket.ReporterID)

	_, err := f.svc.CreateTicket(context.Background(), reporter, TicketCreateInput{ProblemDetails: "   "})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.CreateTicket(context.Background(), reporter, TicketCreateInput{ProblemDetails: "x", Priority: "urgent"})
	assertCode(t, err, apperrors.CodeValidation)

	require.NotEmpty(t, f.events)
	assert.Equal(t, events.EventTicketCreated, f.events[0].Type)
	assert.Equal(t, events.EventTicketsRefresh, f.events[1].Type)
}

func TestHappyPathLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	started, err := f.svc.StartWork(ctx, tech, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, started.Status)
	require.NotNil(t, started.CheckInDate)
	assert.Equal(t, clock, *started.CheckInDate)
	assert.True(t, started.AssignedTo(tech.ID))
	assert.Equal(t, tech.Name, started.TechnicianName)

	done, err := f.svc.Complete(ctx, tech, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCompleted, done.Status)
	require.NotNil(t, done.CheckOutDate)
	assert.Nil(t, done.Approval)
	assert.True(t, done.Project().IsCompleted)

	history, err := f.svc.ListHistory(ctx, reporter, ticket.ID, 0, 0)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.ChangeTypeCreated, history[0].ChangeType)
	assert.Equal(t, domain.ChangeTypeStatus, history[2].ChangeType)
	assert.Equal(t, tech.ID, history[2].ChangedByID)
}

func TestTransitionsFromWrongStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	_, err := f.svc.Complete(ctx, tech, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.svc.Cancel(ctx, reporter, ticket.ID)
	require.NoError(t, err)

	_, err = f.svc.StartWork(ctx, tech, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)
	_, err = f.svc.Cancel(ctx, tech, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusCancelled, stored.Status)
	assert.Nil(t, stored.CheckInDate)
}

func TestCancelCompletedTicketFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.started(t)
	_, err := f.svc.Complete(ctx, tech, ticket.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, admin, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)
}

func TestPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	_, err := f.svc.StartWork(ctx, reporter, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.Cancel(ctx, stranger, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.GetTicket(ctx, stranger, ticket.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.SupervisorDecide(ctx, tech, ticket.ID, domain.DecisionApproved, "")
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.StartWork(ctx, tech, ticket.ID)
	require.NoError(t, err)

	_, err = f.svc.SelfApprove(ctx, tech2, ticket.ID, "approved by phone", evidence("a.jpg"))
	assertCode(t, err, apperrors.CodeForbidden)
	assert.Empty(t, f.files.files)
}

func TestUnknownTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.GetTicket(ctx, admin, "not-a-uuid")
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.StartWork(ctx, tech, uuid.NewString())
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestSupervisorDecisionIsTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	requested, err := f.svc.RequestApproval(ctx, tech, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalPending, requested.Approval.Status)

	_, err = f.svc.RequestApproval(ctx, tech, ticket.ID)
	assertCode(t, err, apperrors.CodeInvalidTransition)

	rejected, err := f.svc.SupervisorDecide(ctx, admin, ticket.ID, domain.DecisionRejected, "  over budget ")
	require.NoError(t, err)
	assert.Equal(t, domain.ApprovalRejected, rejected.Approval.Status)
	assert.Equal(t, admin.Name, rejected.Approval.ApprovedBy)
	assert.Equal(t, "admin", rejected.Approval.ApproverRole)
	assert.Equal(t, "over budget", rejected.Approval.Comments)
	assert.Equal(t, domain.TicketStatusPending, rejected.Status)

	_, err = f.svc.SupervisorDecide(ctx, admin, ticket.ID, domain.DecisionApproved, "")
	assertCode(t, err, apperrors.CodeInvalidTransition)

	_, err = f.svc.SupervisorDecide(ctx, admin, ticket.ID, domain.ApprovalDecision("maybe"), "")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestSelfApprove(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.started(t)

	approved, err := f.svc.SelfApprove(ctx, tech, ticket.ID, "manager approved by phone", evidence("before.jpg", "quote.pdf"))
	require.NoError(t, err)

	require.NotNil(t, approved.Approval)
	assert.Equal(t, domain.ApprovalApproved, approved.Approval.Status)
	assert.Equal(t, domain.SelfApprovalRole, approved.Approval.ApproverRole)
	assert.Equal(t, lifecycle.SelfApprovalLabel(tech.Name), approved.Approval.ApprovedBy)
	assert.True(t, approved.Approval.SelfApproved)
	assert.Equal(t, domain.TicketStatusInProgress, approved.Status)
	require.Len(t, approved.Documents, 2)
	assert.Equal(t, domain.FileTypeImage, approved.Documents[0].FileType)
	assert.Equal(t, domain.FileTypeDocument, approved.Documents[1].FileType)
	assert.Equal(t, tech.ID, approved.Documents[0].UploadedBy)
	assert.Len(t, f.files.files, 2)

	_, err = f.svc.SelfApprove(ctx, tech, ticket.ID, "again", evidence("c.jpg"))
	assertCode(t, err, apperrors.CodeInvalidTransition)
	assert.Len(t, f.files.files, 2, "files of a rejected attempt are removed")
}

func TestSelfApproveRejectsBeforeUploading(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t)

	_, err := f.svc.SelfApprove(ctx, tech, pending.ID, "approved by phone", evidence("a.jpg"))
	assertCode(t, err, apperrors.CodeInvalidTransition)

	ticket := f.started(t)
	_, err = f.svc.SelfApprove(ctx, tech, ticket.ID, "", evidence("a.jpg", "b.pdf"))
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.SelfApprove(ctx, tech, ticket.ID, "manager approved by phone", evidence("a.jpg"))
	require.NoError(t, err)
	assert.Equal(t, 1, f.files.uploads)

	_, err = f.svc.SelfApprove(ctx, tech, ticket.ID, "again", evidence("b.jpg"))
	assertCode(t, err, apperrors.CodeInvalidTransition)
	assert.Equal(t, 1, f.files.uploads, "rejected requests store nothing")
	assert.Empty(t, f.files.deleted)
}

func TestSelfApproveEvidenceFailures(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	pending := f.create(t)

	_, err := f.svc.SelfApprove(ctx, tech, pending.ID, "ok", nil)
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.SelfApprove(ctx, tech, pending.ID, "ok", evidence("a.jpg"))
	assertCode(t, err, apperrors.CodeInvalidTransition)

	ticket := f.started(t)
	_, err = f.svc.SelfApprove(ctx, tech, ticket.ID, "  ", evidence("a.jpg"))
	assertCode(t, err, apperrors.CodeValidation)

	f.files.failOn = "broken.jpg"
	_, err = f.svc.SelfApprove(ctx, tech, ticket.ID, "ok", evidence("good.jpg", "broken.jpg"))
	assertCode(t, err, apperrors.CodeValidation)

	assert.Empty(t, f.files.files)
	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.Approval)
	assert.Empty(t, stored.Documents)
}

func TestFailedSaveLeavesStoreUntouched(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.started(t)

	failing := NewTicketService(TicketDependencies{
		TicketRepo: failingSaveRepo{TicketRepository: f.tickets, err: errors.New("connection reset")},
		Storage:    f.files,
		Now:        func() time.Time { return clock },
	})

	_, err := failing.SelfApprove(ctx, tech, ticket.ID, "approved by phone", evidence("a.jpg"))
	assertCode(t, err, apperrors.CodeInternal)
	assert.Empty(t, f.files.files)

	_, err = failing.Complete(ctx, tech, ticket.ID)
	assertCode(t, err, apperrors.CodeInternal)

	stored, err := f.tickets.GetByID(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
	assert.Nil(t, stored.CheckOutDate)
	assert.Nil(t, stored.Approval)
	assert.Empty(t, stored.Documents)
}

func TestConcurrentEditConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	conflicting := NewTicketService(TicketDependencies{
		TicketRepo: failingSaveRepo{TicketRepository: f.tickets, err: repository.ErrVersionConflict},
		Now:        func() time.Time { return clock },
	})
	_, err := conflicting.StartWork(ctx, tech, ticket.ID)
	assertCode(t, err, apperrors.CodeConflict)
}

func TestListTickets(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	open := f.create(t)
	cancelled := f.create(t)
	_, err := f.svc.Cancel(ctx, reporter, cancelled.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateTicket(ctx, stranger, TicketCreateInput{ProblemDetails: "window cracked"})
	require.NoError(t, err)

	mine, err := f.svc.ListTickets(ctx, reporter, TicketListFilter{})
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, open.ID, mine[0].ID)

	all, err := f.svc.ListTickets(ctx, tech, TicketListFilter{IncludeInactive: true})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	thai, err := f.svc.ListTickets(ctx, admin, TicketListFilter{Statuses: []domain.TicketStatus{"ยกเลิก"}})
	require.NoError(t, err)
	require.Len(t, thai, 1)
	assert.True(t, thai[0].Project().IsCancelled)
}

func TestUpdateTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	high := domain.TicketPriorityHigh
	details := "paper jam on both trays"
	updated, err := f.svc.UpdateTicket(ctx, reporter, ticket.ID, TicketUpdateInput{Priority: &high, ProblemDetails: &details})
	require.NoError(t, err)
	assert.Equal(t, domain.TicketPriorityHigh, updated.Priority)
	assert.Equal(t, details, updated.ProblemDetails)
	assert.Equal(t, ticket.Version+1, updated.Version)

	_, err = f.svc.UpdateTicket(ctx, reporter, ticket.ID, TicketUpdateInput{Priority: &high})
	assertCode(t, err, apperrors.CodeValidation)

	_, err = f.svc.UpdateTicket(ctx, tech, ticket.ID, TicketUpdateInput{ProblemDetails: &details})
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.StartWork(ctx, tech, ticket.ID)
	require.NoError(t, err)
	_, err = f.svc.Complete(ctx, tech, ticket.ID)
	require.NoError(t, err)

	low := domain.TicketPriorityLow
	_, err = f.svc.UpdateTicket(ctx, admin, ticket.ID, TicketUpdateInput{Priority: &low})
	assertCode(t, err, apperrors.CodeInvalidTransition)

	history, err := f.svc.ListHistory(ctx, admin, ticket.ID, 0, 0)
	require.NoError(t, err)
	var types []domain.TicketChangeType
	for _, h := range history {
		types = append(types, h.ChangeType)
	}
	assert.Contains(t, types, domain.ChangeTypePriority)
	assert.Contains(t, types, domain.ChangeTypeDetails)
}

func TestDeleteTicket(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	assertCode(t, f.svc.DeleteTicket(ctx, tech, ticket.ID), apperrors.CodeForbidden)
	require.NoError(t, f.svc.DeleteTicket(ctx, reporter, ticket.ID))

	_, err := f.svc.GetTicket(ctx, reporter, ticket.ID)
	assertCode(t, err, apperrors.CodeNotFound)

	done := f.started(t)
	_, err = f.svc.Complete(ctx, tech, done.ID)
	require.NoError(t, err)
	assertCode(t, f.svc.DeleteTicket(ctx, admin, done.ID), apperrors.CodeInvalidTransition)
}

func TestAttachments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.create(t)

	withDoc, att, err := f.svc.AddAttachment(ctx, reporter, ticket.ID, FileUpload{FileName: "photo.jpg", Content: strings.NewReader("jpeg")})
	require.NoError(t, err)
	require.Len(t, withDoc.Documents, 1)
	assert.Equal(t, domain.FileTypeImage, att.FileType)
	assert.Equal(t, domain.TicketStatusPending, withDoc.Status)

	_, _, err = f.svc.AddAttachment(ctx, tech, ticket.ID, FileUpload{FileName: "x.pdf", Content: strings.NewReader("pdf")})
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.DeleteAttachment(ctx, admin, ticket.ID, "missing")
	assertCode(t, err, apperrors.CodeNotFound)

	_, err = f.svc.Cancel(ctx, reporter, ticket.ID)
	require.NoError(t, err)

	removed, err := f.svc.DeleteAttachment(ctx, reporter, ticket.ID, att.ID)
	require.NoError(t, err)
	assert.Empty(t, removed.Documents)
	assert.Contains(t, f.files.deleted, att.FileURL)
}

func TestEveryMutationEmitsRefresh(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ticket := f.started(t)
	_, err := f.svc.Complete(ctx, tech, ticket.ID)
	require.NoError(t, err)

	var refreshes int
	for _, e := range f.events {
		if e.Type == events.EventTicketsRefresh {
			refreshes++
			assert.Equal(t, ticket.ID, e.TicketID)
		}
	}
	assert.Equal(t, 3, refreshes)
}

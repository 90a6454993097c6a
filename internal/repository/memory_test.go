package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/repair-service/internal/domain"
)

func seedTicket(t *testing.T, repo *MemoryTicketRepository, status domain.TicketStatus, details string) domain.RepairTicket {
	t.Helper()
	ticket := domain.RepairTicket{
		Status:         status,
		Priority:       domain.TicketPriorityMedium,
		ReporterID:     "reporter-1",
		ReporterName:   "Somchai",
		Department:     "IT",
		ProblemDetails: details,
	}
	require.NoError(t, repo.Create(context.Background(), &ticket))
	return ticket
}

func TestMemoryTicketSaveVersionCheck(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	created := seedTicket(t, repo, domain.TicketStatusPending, "printer jam")
	assert.EqualValues(t, 1, created.Version)

	first, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)

	first.Status = domain.TicketStatusInProgress
	require.NoError(t, repo.Save(ctx, first))
	assert.EqualValues(t, 2, first.Version)

	second.Status = domain.TicketStatusCancelled
	assert.ErrorIs(t, repo.Save(ctx, second), ErrVersionConflict)

	stored, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.TicketStatusInProgress, stored.Status)
}

func TestMemoryTicketReturnsCopies(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	created := seedTicket(t, repo, domain.TicketStatusPending, "broken fan")

	got, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	got.Documents = append(got.Documents, domain.Attachment{ID: "a"})
	got.Status = domain.TicketStatusCompleted

	again, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Documents)
	assert.Equal(t, domain.TicketStatusPending, again.Status)
}

func TestMemoryTicketDeleteHidesTicket(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	created := seedTicket(t, repo, domain.TicketStatusPending, "leaking tap")

	require.NoError(t, repo.Delete(ctx, created.ID, time.Now()))
	_, err := repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, created.ID, time.Now()), ErrNotFound)
	assert.ErrorIs(t, repo.Save(ctx, &created), ErrNotFound)

	list, err := repo.List(ctx, TicketFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestMemoryTicketListFilters(t *testing.T) {
	repo := NewMemoryTicketRepository()
	ctx := context.Background()
	seedTicket(t, repo, domain.TicketStatusPending, "projector flicker")
	seedTicket(t, repo, domain.TicketStatus("เสร็จสิ้น"), "aircon noise")
	seedTicket(t, repo, domain.TicketStatusCancelled, "duplicate report")

	active, err := repo.List(ctx, TicketFilter{ActiveOnly: true})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	completed, err := repo.List(ctx, TicketFilter{Statuses: []domain.TicketStatus{domain.TicketStatusCompleted}})
	require.NoError(t, err)
	require.Len(t, completed, 1)
	assert.Equal(t, "aircon noise", completed[0].ProblemDetails)

	cancelled, err := repo.List(ctx, TicketFilter{ActiveOnly: true, Statuses: []domain.TicketStatus{domain.TicketStatusCancelled}})
	require.NoError(t, err)
	assert.Len(t, cancelled, 1)

	term := "PROJECTOR"
	found, err := repo.List(ctx, TicketFilter{SearchTerm: &term})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	paged, err := repo.List(ctx, TicketFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	assert.Len(t, paged, 1)
}

func TestMemoryHistoryListByTicket(t *testing.T) {
	repo := NewMemoryTicketHistoryRepository()
	ctx := context.Background()
	for _, ticketID := range []string{"t1", "t2", "t1"} {
		require.NoError(t, repo.Create(ctx, &domain.TicketHistory{TicketID: ticketID, ChangeType: domain.ChangeTypeStatus}))
	}
	entries, err := repo.ListByTicket(ctx, "t1", 0, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestMemoryUserDuplicateEmail(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{Email: "tech@example.com", Role: domain.RoleTechnician}))
	assert.ErrorIs(t, repo.Create(ctx, &domain.User{Email: "TECH@example.com"}), ErrDuplicate)

	user, err := repo.GetByEmail(ctx, "Tech@Example.com")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleTechnician, user.Role)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/repair-service/internal/domain"
)

// MemoryTicketRepository is an in-process ticket store used when no
// Postgres DSN is configured and as the fake in tests.
type MemoryTicketRepository struct {
	mu      sync.RWMutex
	tickets map[string]domain.RepairTicket
	now     func() time.Time
}

// NewMemoryTicketRepository builds an empty store.
func NewMemoryTicketRepository() *MemoryTicketRepository {
	return &MemoryTicketRepository{tickets: make(map[string]domain.RepairTicket), now: time.Now}
}

func (r *MemoryTicketRepository) Create(_ context.Context, ticket *domain.RepairTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = uuid.NewString()
	}
	if _, exists := r.tickets[ticket.ID]; exists {
		return ErrDuplicate
	}
	now := r.now()
	ticket.Version = 1
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *MemoryTicketRepository) Save(_ context.Context, ticket *domain.RepairTicket) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[ticket.ID]
	if !ok || stored.DeletedAt != nil {
		return ErrNotFound
	}
	if stored.Version != ticket.Version {
		return ErrVersionConflict
	}
	ticket.Version++
	ticket.UpdatedAt = r.now()
	ticket.CreatedAt = stored.CreatedAt
	for i := range ticket.Documents {
		ticket.Documents[i].TicketID = ticket.ID
	}
	r.tickets[ticket.ID] = ticket.Clone()
	return nil
}

func (r *MemoryTicketRepository) GetByID(_ context.Context, id string) (*domain.RepairTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stored, ok := r.tickets[id]
	if !ok || stored.DeletedAt != nil {
		return nil, ErrNotFound
	}
	ticket := stored.Clone()
	return &ticket, nil
}

func (r *MemoryTicketRepository) List(_ context.Context, filter TicketFilter) ([]domain.RepairTicket, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	statuses := filter.Statuses
	if filter.ActiveOnly && len(statuses) == 0 {
		statuses = []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusInProgress, domain.TicketStatusCompleted}
	}

	var result []domain.RepairTicket
	for _, ticket := range r.tickets {
		if ticket.DeletedAt != nil || !matches(ticket, filter, statuses) {
			continue
		}
		result = append(result, ticket.Clone())
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].UpdatedAt.Equal(result[j].UpdatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	if offset >= len(result) {
		return []domain.RepairTicket{}, nil
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

func (r *MemoryTicketRepository) Delete(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.tickets[id]
	if !ok || stored.DeletedAt != nil {
		return ErrNotFound
	}
	stored.DeletedAt = &at
	stored.Version++
	r.tickets[id] = stored
	return nil
}

func matches(ticket domain.RepairTicket, filter TicketFilter, statuses []domain.TicketStatus) bool {
	if filter.ReporterID != nil && ticket.ReporterID != *filter.ReporterID {
		return false
	}
	if filter.TechnicianID != nil && !ticket.AssignedTo(*filter.TechnicianID) {
		return false
	}
	if filter.Department != nil && ticket.Department != *filter.Department {
		return false
	}
	if len(statuses) > 0 && !containsStatus(statuses, ticket.Status) {
		return false
	}
	if len(filter.Priorities) > 0 && !containsPriority(filter.Priorities, ticket.Priority) {
		return false
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" &&
			!strings.Contains(strings.ToLower(ticket.ProblemDetails), term) &&
			!strings.Contains(strings.ToLower(ticket.Asset.Name), term) &&
			!strings.Contains(strings.ToLower(ticket.Asset.Code), term) {
			return false
		}
	}
	return true
}

func containsStatus(statuses []domain.TicketStatus, status domain.TicketStatus) bool {
	for _, candidate := range statuses {
		if candidate.Normalize() == status.Normalize() {
			return true
		}
	}
	return false
}

func containsPriority(priorities []domain.TicketPriority, priority domain.TicketPriority) bool {
	for _, candidate := range priorities {
		if candidate == priority {
			return true
		}
	}
	return false
}

// MemoryTicketHistoryRepository keeps audit entries in process.
type MemoryTicketHistoryRepository struct {
	mu      sync.RWMutex
	entries []domain.TicketHistory
}

// NewMemoryTicketHistoryRepository builds an empty history store.
func NewMemoryTicketHistoryRepository() *MemoryTicketHistoryRepository {
	return &MemoryTicketHistoryRepository{}
}

func (r *MemoryTicketHistoryRepository) Create(_ context.Context, history *domain.TicketHistory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	history.ID = uuid.NewString()
	history.CreatedAt = time.Now()
	r.entries = append(r.entries, *history)
	return nil
}

func (r *MemoryTicketHistoryRepository) ListByTicket(_ context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	var result []domain.TicketHistory
	for _, entry := range r.entries {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	if offset >= len(result) {
		return []domain.TicketHistory{}, nil
	}
	if offset < 0 {
		offset = 0
	}
	end := offset + limit
	if end > len(result) {
		end = len(result)
	}
	return result[offset:end], nil
}

// MemoryUserRepository keeps accounts in process.
type MemoryUserRepository struct {
	mu    sync.RWMutex
	users map[string]domain.User
}

// NewMemoryUserRepository builds an empty account store.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{users: make(map[string]domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, user.Email) {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	user, ok := r.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &user, nil
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, user := range r.users {
		if strings.EqualFold(user.Email, email) {
			u := user
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

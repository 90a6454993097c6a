package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/repair-service/internal/domain"
)

// TicketFilter captures list view search parameters.
type TicketFilter struct {
	ReporterID   *string
	TechnicianID *string
	Department   *string
	Statuses     []domain.TicketStatus
	Priorities   []domain.TicketPriority
	SearchTerm   *string
	// ActiveOnly hides cancelled tickets when no explicit status filter is given.
	ActiveOnly bool
	Limit      int
	Offset     int
}

// TicketRepository is the ticket store. Save is a single-record
// read-modify-write guarded by the ticket version.
type TicketRepository interface {
	Create(ctx context.Context, ticket *domain.RepairTicket) error
	Save(ctx context.Context, ticket *domain.RepairTicket) error
	GetByID(ctx context.Context, id string) (*domain.RepairTicket, error)
	List(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error)
	Delete(ctx context.Context, id string, at time.Time) error
}

type ticketRepository struct {
	pool *pgxpool.Pool
}

// NewTicketRepository instantiates repository.
func NewTicketRepository(pool *pgxpool.Pool) TicketRepository {
	return &ticketRepository{pool: pool}
}

const ticketColumns = `id, status, priority, reporter_id, reporter_name, department, building, floor,
               asset_id, asset_name, asset_code, asset_serial, asset_location, problem_details,
               technician_id, technician_name, check_in_date, check_out_date,
               approval_status, approved_by, approver_role, approval_date, approval_comments, approval_self,
               version, created_at, updated_at, deleted_at`

func (r *ticketRepository) Create(ctx context.Context, ticket *domain.RepairTicket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const query = `
        INSERT INTO repair_tickets (id, status, priority, reporter_id, reporter_name, department, building, floor,
            asset_id, asset_name, asset_code, asset_serial, asset_location, problem_details)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
        RETURNING version, created_at, updated_at`
		if err := tx.QueryRow(ctx, query,
			ticket.ID,
			ticket.Status,
			ticket.Priority,
			ticket.ReporterID,
			ticket.ReporterName,
			ticket.Department,
			ticket.Building,
			ticket.Floor,
			ticket.Asset.AssetID,
			ticket.Asset.Name,
			ticket.Asset.Code,
			ticket.Asset.Serial,
			ticket.Asset.Location,
			ticket.ProblemDetails,
		).Scan(&ticket.Version, &ticket.CreatedAt, &ticket.UpdatedAt); err != nil {
			return err
		}
		return syncDocuments(ctx, tx, ticket)
	})
}

func (r *ticketRepository) Save(ctx context.Context, ticket *domain.RepairTicket) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		var approvalStatus, approvedBy, approverRole, approvalComments *string
		var approvalDate *time.Time
		approvalSelf := false
		if a := ticket.Approval; a != nil {
			status := string(a.Status)
			approvalStatus = &status
			approvedBy = &a.ApprovedBy
			approverRole = &a.ApproverRole
			approvalComments = &a.Comments
			approvalDate = a.ApprovalDate
			approvalSelf = a.SelfApproved
		}

		const query = `
        UPDATE repair_tickets SET status=$1, priority=$2, department=$3, building=$4, floor=$5,
            asset_id=$6, asset_name=$7, asset_code=$8, asset_serial=$9, asset_location=$10, problem_details=$11,
            technician_id=$12, technician_name=$13, check_in_date=$14, check_out_date=$15,
            approval_status=$16, approved_by=$17, approver_role=$18, approval_date=$19, approval_comments=$20,
            approval_self=$21, version=version+1, updated_at=NOW()
        WHERE id=$22 AND version=$23 AND deleted_at IS NULL
        RETURNING version, updated_at`
		err := tx.QueryRow(ctx, query,
			ticket.Status,
			ticket.Priority,
			ticket.Department,
			ticket.Building,
			ticket.Floor,
			ticket.Asset.AssetID,
			ticket.Asset.Name,
			ticket.Asset.Code,
			ticket.Asset.Serial,
			ticket.Asset.Location,
			ticket.ProblemDetails,
			ticket.TechnicianID,
			ticket.TechnicianName,
			ticket.CheckInDate,
			ticket.CheckOutDate,
			approvalStatus,
			approvedBy,
			approverRole,
			approvalDate,
			approvalComments,
			approvalSelf,
			ticket.ID,
			ticket.Version,
		).Scan(&ticket.Version, &ticket.UpdatedAt)
		if errors.Is(err, pgx.ErrNoRows) {
			return r.missOrConflict(ctx, tx, ticket.ID)
		}
		if err != nil {
			return err
		}
		return syncDocuments(ctx, tx, ticket)
	})
}

func (r *ticketRepository) missOrConflict(ctx context.Context, tx pgx.Tx, id string) error {
	var exists bool
	const query = `SELECT EXISTS (SELECT 1 FROM repair_tickets WHERE id=$1 AND deleted_at IS NULL)`
	if err := tx.QueryRow(ctx, query, id).Scan(&exists); err != nil {
		return err
	}
	if exists {
		return ErrVersionConflict
	}
	return ErrNotFound
}

// syncDocuments makes the stored attachment rows match ticket.Documents.
func syncDocuments(ctx context.Context, tx pgx.Tx, ticket *domain.RepairTicket) error {
	ids := make([]string, 0, len(ticket.Documents))
	for _, doc := range ticket.Documents {
		ids = append(ids, doc.ID)
	}
	if _, err := tx.Exec(ctx,
		`DELETE FROM ticket_documents WHERE ticket_id=$1 AND NOT (id::text = ANY($2))`,
		ticket.ID, ids); err != nil {
		return err
	}

	const insert = `
        INSERT INTO ticket_documents (id, ticket_id, file_name, file_type, file_url, content_type, size_bytes, upload_date, uploaded_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO NOTHING`
	batch := &pgx.Batch{}
	for _, doc := range ticket.Documents {
		batch.Queue(insert,
			doc.ID,
			ticket.ID,
			doc.FileName,
			doc.FileType,
			doc.FileURL,
			doc.ContentType,
			doc.SizeBytes,
			doc.UploadDate,
			doc.UploadedBy,
		)
	}
	if batch.Len() == 0 {
		return nil
	}
	return tx.SendBatch(ctx, batch).Close()
}

func (r *ticketRepository) GetByID(ctx context.Context, id string) (*domain.RepairTicket, error) {
	query := `SELECT ` + ticketColumns + ` FROM repair_tickets WHERE id=$1 AND deleted_at IS NULL`
	rows, err := r.pool.Query(ctx, query, id)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if len(tickets) == 0 {
		return nil, ErrNotFound
	}
	if err := r.attachDocuments(ctx, tickets); err != nil {
		return nil, err
	}
	return &tickets[0], nil
}

func (r *ticketRepository) List(ctx context.Context, filter TicketFilter) ([]domain.RepairTicket, error) {
	clauses := []string{"deleted_at IS NULL"}
	args := []any{}

	if filter.ReporterID != nil {
		args = append(args, *filter.ReporterID)
		clauses = append(clauses, fmt.Sprintf("reporter_id=$%d", len(args)))
	}
	if filter.TechnicianID != nil {
		args = append(args, *filter.TechnicianID)
		clauses = append(clauses, fmt.Sprintf("technician_id=$%d", len(args)))
	}
	if filter.Department != nil {
		args = append(args, *filter.Department)
		clauses = append(clauses, fmt.Sprintf("department=$%d", len(args)))
	}
	statuses := filter.Statuses
	if filter.ActiveOnly && len(statuses) == 0 {
		statuses = []domain.TicketStatus{domain.TicketStatusPending, domain.TicketStatusInProgress, domain.TicketStatusCompleted}
	}
	if len(statuses) > 0 {
		var labels []string
		for _, status := range statuses {
			labels = append(labels, status.Labels()...)
		}
		args = append(args, labels)
		clauses = append(clauses, fmt.Sprintf("LOWER(status) = ANY($%d)", len(args)))
	}
	if len(filter.Priorities) > 0 {
		placeholders := make([]string, len(filter.Priorities))
		for i, pr := range filter.Priorities {
			args = append(args, pr)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		clauses = append(clauses, fmt.Sprintf("priority IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		search := "%" + strings.ToLower(strings.TrimSpace(*filter.SearchTerm)) + "%"
		args = append(args, search)
		placeholder := fmt.Sprintf("$%d", len(args))
		clauses = append(clauses, fmt.Sprintf(
			"(LOWER(problem_details) LIKE %[1]s OR LOWER(asset_name) LIKE %[1]s OR LOWER(asset_code) LIKE %[1]s)",
			placeholder))
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM repair_tickets WHERE %s ORDER BY updated_at DESC LIMIT %d OFFSET %d`,
		ticketColumns, strings.Join(clauses, " AND "), limit, offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	tickets, err := scanTickets(rows)
	if err != nil {
		return nil, err
	}
	if err := r.attachDocuments(ctx, tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

func (r *ticketRepository) Delete(ctx context.Context, id string, at time.Time) error {
	cmd, err := r.pool.Exec(ctx,
		`UPDATE repair_tickets SET deleted_at=$1, version=version+1, updated_at=NOW() WHERE id=$2 AND deleted_at IS NULL`,
		at, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *ticketRepository) attachDocuments(ctx context.Context, tickets []domain.RepairTicket) error {
	if len(tickets) == 0 {
		return nil
	}
	index := make(map[string]int, len(tickets))
	ids := make([]string, len(tickets))
	for i := range tickets {
		index[tickets[i].ID] = i
		ids[i] = tickets[i].ID
	}

	const query = `
        SELECT id, ticket_id, file_name, file_type, file_url, content_type, size_bytes, upload_date, uploaded_by
        FROM ticket_documents WHERE ticket_id::text = ANY($1) ORDER BY upload_date ASC, id ASC`
	rows, err := r.pool.Query(ctx, query, ids)
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var doc domain.Attachment
		if err := rows.Scan(
			&doc.ID,
			&doc.TicketID,
			&doc.FileName,
			&doc.FileType,
			&doc.FileURL,
			&doc.ContentType,
			&doc.SizeBytes,
			&doc.UploadDate,
			&doc.UploadedBy,
		); err != nil {
			return err
		}
		if i, ok := index[doc.TicketID]; ok {
			tickets[i].Documents = append(tickets[i].Documents, doc)
		}
	}
	return rows.Err()
}

func scanTickets(rows pgx.Rows) ([]domain.RepairTicket, error) {
	defer rows.Close()
	var result []domain.RepairTicket
	for rows.Next() {
		var (
			ticket           domain.RepairTicket
			status           string
			approvalStatus   *string
			approvedBy       *string
			approverRole     *string
			approvalDate     *time.Time
			approvalComments *string
			approvalSelf     bool
		)
		if err := rows.Scan(
			&ticket.ID,
			&status,
			&ticket.Priority,
			&ticket.ReporterID,
			&ticket.ReporterName,
			&ticket.Department,
			&ticket.Building,
			&ticket.Floor,
			&ticket.Asset.AssetID,
			&ticket.Asset.Name,
			&ticket.Asset.Code,
			&ticket.Asset.Serial,
			&ticket.Asset.Location,
			&ticket.ProblemDetails,
			&ticket.TechnicianID,
			&ticket.TechnicianName,
			&ticket.CheckInDate,
			&ticket.CheckOutDate,
			&approvalStatus,
			&approvedBy,
			&approverRole,
			&approvalDate,
			&approvalComments,
			&approvalSelf,
			&ticket.Version,
			&ticket.CreatedAt,
			&ticket.UpdatedAt,
			&ticket.DeletedAt,
		); err != nil {
			return nil, err
		}
		ticket.Status = domain.TicketStatus(status).Normalize()
		if approvalStatus != nil {
			ticket.Approval = &domain.Approval{
				Status:       domain.ApprovalStatus(*approvalStatus),
				ApprovedBy:   deref(approvedBy),
				ApproverRole: deref(approverRole),
				ApprovalDate: approvalDate,
				Comments:     deref(approvalComments),
				SelfApproved: approvalSelf,
			}
		}
		result = append(result, ticket)
	}
	return result, rows.Err()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

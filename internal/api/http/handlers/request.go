package handlers

import (
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/repair-service/internal/api/dto"
	"github.com/spec-kit/repair-service/internal/auth"
	"github.com/spec-kit/repair-service/internal/domain"
	"github.com/spec-kit/repair-service/internal/service"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
	// maxPage keeps (page-1)*pageSize far from int overflow.
	maxPage = 100_000
)

func actorFrom(c *fiber.Ctx) (domain.Identity, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok {
		return domain.Identity{}, apperrors.NewUnauthorized("authentication required")
	}
	return principal.Identity, nil
}

// parseBody decodes and validates a JSON payload.
func parseBody(c *fiber.Ctx, req any) error {
	if err := c.BodyParser(req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	return dto.Validate(req)
}

// refreshed wraps a mutation result; clients reload their lists when
// meta.refresh is set.
func refreshed(data any) fiber.Map {
	return fiber.Map{"data": data, "meta": fiber.Map{"refresh": true}}
}

func parseTicketQuery(c *fiber.Ctx) (service.TicketListFilter, error) {
	filter := service.TicketListFilter{}
	for _, part := range splitQuery(c.Query("status")) {
		status, ok := domain.ParseStatus(part)
		if !ok {
			return filter, apperrors.NewFieldError("status", "unknown status "+strconv.Quote(part))
		}
		filter.Statuses = append(filter.Statuses, status)
	}
	for _, part := range splitQuery(c.Query("priority")) {
		priority, ok := domain.ParsePriority(part)
		if !ok {
			return filter, apperrors.NewFieldError("priority", "unknown priority "+strconv.Quote(part))
		}
		filter.Priorities = append(filter.Priorities, priority)
	}
	filter.Department = optionalQuery(c, "department")
	filter.TechnicianID = optionalQuery(c, "technician_id")
	filter.ReporterID = optionalQuery(c, "reporter_id")
	filter.SearchTerm = optionalQuery(c, "q")
	if raw := c.Query("include_inactive"); raw != "" {
		include, err := strconv.ParseBool(raw)
		if err != nil {
			return filter, apperrors.NewFieldError("include_inactive", "include_inactive must be a boolean")
		}
		filter.IncludeInactive = include
	}

	limit, offset, err := parsePage(c, defaultPageSize)
	if err != nil {
		return filter, err
	}
	filter.Limit = limit
	filter.Offset = offset
	return filter, nil
}

// parsePage reads page and page_size. The page size is clamped to
// maxPageSize; pages past maxPage are rejected.
func parsePage(c *fiber.Ctx, defSize int) (limit, offset int, err error) {
	page := parseInt(c.Query("page"), 1)
	if page > maxPage {
		return 0, 0, apperrors.NewFieldError("page", "page must be at most "+strconv.Itoa(maxPage))
	}
	pageSize := parseInt(c.Query("page_size"), defSize)
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return pageSize, (page - 1) * pageSize, nil
}

func splitQuery(raw string) []string {
	var parts []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			parts = append(parts, part)
		}
	}
	return parts
}

func optionalQuery(c *fiber.Ctx, key string) *string {
	val := strings.TrimSpace(c.Query(key))
	if val == "" {
		return nil
	}
	return &val
}

func parseInt(val string, def int) int {
	if val == "" {
		return def
	}
	parsed, err := strconv.Atoi(val)
	if err != nil || parsed <= 0 {
		return def
	}
	return parsed
}

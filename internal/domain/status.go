package domain

import (
	"sort"
	"strings"
)

// TicketStatus is the canonical lifecycle state of a repair ticket.
type TicketStatus string

const (
	TicketStatusPending    TicketStatus = "Pending"
	TicketStatusInProgress TicketStatus = "InProgress"
	TicketStatusCompleted  TicketStatus = "Completed"
	TicketStatusCancelled  TicketStatus = "Cancelled"
)

// Thai display labels accepted as synonyms of the canonical statuses.
const (
	thaiPending    = "รอดำเนินการ"
	thaiInProgress = "กำลังดำเนินการ"
	thaiCompleted  = "เสร็จสิ้น"
	thaiCancelled  = "ยกเลิก"
)

var statusAliases = map[string]TicketStatus{
	"pending":          TicketStatusPending,
	"waitingforaction": TicketStatusPending,
	thaiPending:        TicketStatusPending,
	"inprogress":       TicketStatusInProgress,
	thaiInProgress:     TicketStatusInProgress,
	"completed":        TicketStatusCompleted,
	thaiCompleted:      TicketStatusCompleted,
	"cancelled":        TicketStatusCancelled,
	"canceled":         TicketStatusCancelled,
	thaiCancelled:      TicketStatusCancelled,
}

// ParseStatus normalizes an English or Thai status label into its canonical value.
// English labels are matched case-insensitively with spaces, dashes and
// underscores ignored, so "In Progress", "in_progress" and "INPROGRESS" agree.
func ParseStatus(raw string) (TicketStatus, bool) {
	key := strings.ToLower(strings.TrimSpace(raw))
	key = strings.NewReplacer(" ", "", "_", "", "-", "").Replace(key)
	status, ok := statusAliases[key]
	return status, ok
}

// Valid reports whether s is one of the canonical statuses.
func (s TicketStatus) Valid() bool {
	switch s {
	case TicketStatusPending, TicketStatusInProgress, TicketStatusCompleted, TicketStatusCancelled:
		return true
	}
	return false
}

// Normalize maps a possibly localized stored value onto the canonical status.
// Unknown values are returned unchanged.
func (s TicketStatus) Normalize() TicketStatus {
	if parsed, ok := ParseStatus(string(s)); ok {
		return parsed
	}
	return s
}

// Labels returns the lowercase spellings that normalize to s, sorted.
func (s TicketStatus) Labels() []string {
	canonical := s.Normalize()
	var labels []string
	for alias, status := range statusAliases {
		if status == canonical {
			labels = append(labels, alias)
		}
	}
	sort.Strings(labels)
	return labels
}

// ThaiLabel returns the Thai display label for the status.
func (s TicketStatus) ThaiLabel() string {
	switch s.Normalize() {
	case TicketStatusPending:
		return thaiPending
	case TicketStatusInProgress:
		return thaiInProgress
	case TicketStatusCompleted:
		return thaiCompleted
	case TicketStatusCancelled:
		return thaiCancelled
	}
	return string(s)
}

func (s TicketStatus) IsPending() bool    { return s.Normalize() == TicketStatusPending }
func (s TicketStatus) IsInProgress() bool { return s.Normalize() == TicketStatusInProgress }
func (s TicketStatus) IsCompleted() bool  { return s.Normalize() == TicketStatusCompleted }
func (s TicketStatus) IsCancelled() bool  { return s.Normalize() == TicketStatusCancelled }

// IsActive reports whether the ticket belongs on worklists. Cancelled tickets do not.
func (s TicketStatus) IsActive() bool {
	return s.IsPending() || s.IsInProgress() || s.IsCompleted()
}

// TicketPriority enumerates repair urgency.
type TicketPriority string

const (
	TicketPriorityLow    TicketPriority = "Low"
	TicketPriorityMedium TicketPriority = "Medium"
	TicketPriorityHigh   TicketPriority = "High"
)

// ParsePriority accepts any casing of a known priority.
func ParsePriority(raw string) (TicketPriority, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "low":
		return TicketPriorityLow, true
	case "medium":
		return TicketPriorityMedium, true
	case "high":
		return TicketPriorityHigh, true
	}
	return "", false
}

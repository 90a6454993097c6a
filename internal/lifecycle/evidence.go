package lifecycle

import (
	"strings"

	"github.com/spec-kit/repair-service/internal/domain"
	apperrors "github.com/spec-kit/repair-service/pkg/util/errorutil"
)

// ValidateEvidence gates self-approval: at least one uploaded image or
// document and a non-empty comment. Uploading happens before this runs.
func ValidateEvidence(comments string, attachments []domain.Attachment) error {
	if len(attachments) == 0 {
		return apperrors.NewFieldError("attachments", "at least one attachment required")
	}
	if strings.TrimSpace(comments) == "" {
		return apperrors.NewFieldError("comments", "comments required")
	}
	for i, att := range attachments {
		if !att.FileType.Valid() {
			return apperrors.NewValidationError("attachment must be an image or a document",
				map[string]any{"field": "attachments", "index": i, "file_type": att.FileType})
		}
		if strings.TrimSpace(att.FileURL) == "" {
			return apperrors.NewValidationError("attachment has not been uploaded",
				map[string]any{"field": "attachments", "index": i})
		}
	}
	return nil
}

package domain

import (
	"strings"
	"time"
)

// FileType tags an attachment as an image or a generic document.
type FileType string

const (
	FileTypeImage    FileType = "image"
	FileTypeDocument FileType = "document"
)

// Valid reports whether t is a known file type.
func (t FileType) Valid() bool {
	return t == FileTypeImage || t == FileTypeDocument
}

// ClassifyContentType maps a MIME type onto a FileType.
func ClassifyContentType(contentType string) FileType {
	if strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/") {
		return FileTypeImage
	}
	return FileTypeDocument
}

// Attachment is an image or document evidencing a repair or an approval.
type Attachment struct {
	ID          string
	TicketID    string
	FileName    string
	FileType    FileType
	FileURL     string
	ContentType string
	SizeBytes   int64
	UploadDate  time.Time
	UploadedBy  string
}

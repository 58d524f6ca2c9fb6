package documents

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

const (
	StatusActive   = "ACTIVE"
	StatusArchived = "ARCHIVED"

	MaxFileSize = 10 << 20
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrTooLarge        = errors.New("file exceeds the 10MB limit")
	ErrUnsupportedType = errors.New("unsupported file type")
	ErrEmptyFile       = errors.New("file is empty")
	ErrTitleRequired   = errors.New("title is required")
	ErrAlreadyArchived = errors.New("document is already archived")
)

var Categories = []string{"GENERAL", "CONTRACT", "POLICY", "PAYSLIP", "CERTIFICATE", "IDENTIFICATION", "OTHER"}

// allowedTypes maps extensions to the content types accepted for them.
var allowedTypes = map[string][]string{
	".pdf":  {"application/pdf"},
	".png":  {"image/png"},
	".jpg":  {"image/jpeg"},
	".jpeg": {"image/jpeg"},
	".txt":  {"text/plain; charset=utf-8"},
	".csv":  {"text/plain; charset=utf-8", "text/csv"},
	".docx": {"application/zip"},
	".xlsx": {"application/zip"},
	".doc":  {"application/octet-stream", "application/msword"},
	".xls":  {"application/octet-stream", "application/vnd.ms-excel"},
}

var officeTypes = map[string]string{
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".doc":  "application/msword",
	".xls":  "application/vnd.ms-excel",
	".csv":  "text/csv",
}

type Document struct {
	ID          string    `json:"id"`
	UserID      string    `json:"userId"`
	OwnerName   string    `json:"ownerName"`
	Title       string    `json:"title"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	FileName    string    `json:"fileName"`
	ContentType string    `json:"contentType"`
	FileSize    int64     `json:"fileSize"`
	UploadedBy  *string   `json:"uploadedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type Upload struct {
	UserID   string
	Title    string
	Category string
	FileName string
	Data     []byte
}

type Filter struct {
	UserID   string
	Category string
	Status   string
	Search   string
	Limit    int
	Offset   int
}

// DetectType sniffs the payload and checks it against the file extension.
// It returns the content type to store.
func DetectType(fileName string, data []byte) (string, error) {
	if len(data) == 0 {
		return "", ErrEmptyFile
	}
	if len(data) > MaxFileSize {
		return "", ErrTooLarge
	}
	ext := strings.ToLower(filepath.Ext(fileName))
	accepted, ok := allowedTypes[ext]
	if !ok {
		return "", ErrUnsupportedType
	}
	sniffed := http.DetectContentType(data)
	for _, t := range accepted {
		if sniffed == t {
			if office, ok := officeTypes[ext]; ok {
				return office, nil
			}
			return strings.TrimSuffix(sniffed, "; charset=utf-8"), nil
		}
	}
	return "", ErrUnsupportedType
}

func NormalizeCategory(category string) string {
	c := strings.ToUpper(strings.TrimSpace(category))
	for _, known := range Categories {
		if c == known {
			return c
		}
	}
	return "GENERAL"
}

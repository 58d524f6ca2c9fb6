package recruitment

import (
	"errors"
	"net/mail"
	"strings"
	"time"
)

const (
	PostingDraft  = "DRAFT"
	PostingOpen   = "OPEN"
	PostingClosed = "CLOSED"

	AppApplied   = "APPLIED"
	AppScreening = "SCREENING"
	AppInterview = "INTERVIEW"
	AppOffered   = "OFFERED"
	AppRejected  = "REJECTED"
	AppHired     = "HIRED"
)

var EmploymentTypes = []string{"FULL_TIME", "PART_TIME", "CONTRACT", "INTERNSHIP"}

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPostingNotOpen    = errors.New("posting is not open for applications")
	ErrTitleRequired     = errors.New("title is required")
	ErrInvalidCandidate  = errors.New("candidate name and a valid email are required")
	ErrDuplicate         = errors.New("candidate already applied to this posting")
)

var postingTransitions = map[string][]string{
	PostingDraft: {PostingOpen, PostingClosed},
	PostingOpen:  {PostingClosed},
}

var applicationTransitions = map[string][]string{
	AppApplied:   {AppScreening, AppRejected},
	AppScreening: {AppInterview, AppRejected},
	AppInterview: {AppOffered, AppRejected},
	AppOffered:   {AppHired, AppRejected},
}

func allowed(table map[string][]string, from, to string) bool {
	for _, next := range table[from] {
		if next == to {
			return true
		}
	}
	return false
}

func CanMovePosting(from, to string) bool {
	return allowed(postingTransitions, from, to)
}

func CanMoveApplication(from, to string) bool {
	return allowed(applicationTransitions, from, to)
}

type Posting struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	DepartmentID     *string   `json:"departmentId,omitempty"`
	DepartmentName   string    `json:"departmentName"`
	Description      string    `json:"description"`
	Location         string    `json:"location"`
	EmploymentType   string    `json:"employmentType"`
	Status           string    `json:"status"`
	ApplicationCount int       `json:"applicationCount"`
	CreatedBy        *string   `json:"createdBy,omitempty"`
	CreatedAt        time.Time `json:"createdAt"`
	UpdatedAt        time.Time `json:"updatedAt"`
}

type PostingInput struct {
	Title          string `json:"title"`
	DepartmentID   string `json:"departmentId"`
	Description    string `json:"description"`
	Location       string `json:"location"`
	EmploymentType string `json:"employmentType"`
}

func (in *PostingInput) Normalize() error {
	in.Title = strings.TrimSpace(in.Title)
	if in.Title == "" {
		return ErrTitleRequired
	}
	in.EmploymentType = strings.ToUpper(strings.TrimSpace(in.EmploymentType))
	for _, t := range EmploymentTypes {
		if in.EmploymentType == t {
			return nil
		}
	}
	in.EmploymentType = "FULL_TIME"
	return nil
}

type Application struct {
	ID             string    `json:"id"`
	PostingID      string    `json:"postingId"`
	PostingTitle   string    `json:"postingTitle"`
	CandidateName  string    `json:"candidateName"`
	CandidateEmail string    `json:"candidateEmail"`
	Phone          string    `json:"phone"`
	ResumeURL      string    `json:"resumeUrl"`
	Status         string    `json:"status"`
	Notes          string    `json:"notes"`
	CreatedAt      time.Time `json:"createdAt"`
	UpdatedAt      time.Time `json:"updatedAt"`
}

type ApplicationInput struct {
	CandidateName  string `json:"candidateName"`
	CandidateEmail string `json:"candidateEmail"`
	Phone          string `json:"phone"`
	ResumeURL      string `json:"resumeUrl"`
	Notes          string `json:"notes"`
}

func (in *ApplicationInput) Normalize() error {
	in.CandidateName = strings.TrimSpace(in.CandidateName)
	in.CandidateEmail = strings.ToLower(strings.TrimSpace(in.CandidateEmail))
	if in.CandidateName == "" || in.CandidateEmail == "" {
		return ErrInvalidCandidate
	}
	if _, err := mail.ParseAddress(in.CandidateEmail); err != nil {
		return ErrInvalidCandidate
	}
	return nil
}

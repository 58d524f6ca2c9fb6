package performance

import (
	"errors"
	"time"
)

const (
	ReviewDraft     = "DRAFT"
	ReviewSubmitted = "SUBMITTED"
	ReviewCompleted = "COMPLETED"

	GoalNotStarted = "NOT_STARTED"
	GoalInProgress = "IN_PROGRESS"
	GoalCompleted  = "COMPLETED"
	GoalCancelled  = "CANCELLED"
)

var (
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrInvalidRating   = errors.New("rating must be between 1 and 5")
	ErrInvalidState    = errors.New("invalid status transition")
	ErrInvalidInput    = errors.New("userId and period are required")
	ErrInvalidGoal     = errors.New("userId and title are required")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
)

type Review struct {
	ID           string     `json:"id"`
	UserID       string     `json:"userId"`
	UserName     string     `json:"userName"`
	ReviewerID   *string    `json:"reviewerId,omitempty"`
	ReviewerName string     `json:"reviewerName"`
	Period       string     `json:"period"`
	Rating       *int       `json:"rating,omitempty"`
	Strengths    string     `json:"strengths"`
	Improvements string     `json:"improvements"`
	Comments     string     `json:"comments"`
	Status       string     `json:"status"`
	SubmittedAt  *time.Time `json:"submittedAt,omitempty"`
	CompletedAt  *time.Time `json:"completedAt,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type ReviewInput struct {
	UserID     string `json:"userId"`
	ReviewerID string `json:"reviewerId"`
	Period     string `json:"period"`
}

type Submission struct {
	Rating       int    `json:"rating"`
	Strengths    string `json:"strengths"`
	Improvements string `json:"improvements"`
	Comments     string `json:"comments"`
}

type Goal struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	UserName    string     `json:"userName"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	Progress    int        `json:"progress"`
	Status      string     `json:"status"`
	CreatedBy   *string    `json:"createdBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type GoalInput struct {
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description"`
	DueDate     *time.Time `json:"dueDate"`
}

// Filter narrows listings. Participant limits rows to those where the user
// is the subject or the reviewer.
type Filter struct {
	UserID      string
	Participant string
	Status      string
}

type Summary struct {
	GoalsTotal           int            `json:"goalsTotal"`
	GoalsCompleted       int            `json:"goalsCompleted"`
	ReviewsTotal         int            `json:"reviewsTotal"`
	ReviewsCompleted     int            `json:"reviewsCompleted"`
	ReviewCompletionRate float64        `json:"reviewCompletionRate"`
	AverageRating        float64        `json:"averageRating"`
	RatingDistribution   map[string]int `json:"ratingDistribution"`
}

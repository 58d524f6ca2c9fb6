package performance

import (
	"math"
	"strconv"
)

// GoalStatus derives a goal's status from its progress.
func GoalStatus(progress int) string {
	switch {
	case progress <= 0:
		return GoalNotStarted
	case progress >= 100:
		return GoalCompleted
	default:
		return GoalInProgress
	}
}

func ValidRating(rating int) bool {
	return rating >= 1 && rating <= 5
}

func buildSummary(goals []Goal, reviews []Review) Summary {
	summary := Summary{RatingDistribution: map[string]int{}}
	for _, g := range goals {
		if g.Status == GoalCancelled {
			continue
		}
		summary.GoalsTotal++
		if g.Status == GoalCompleted {
			summary.GoalsCompleted++
		}
	}
	sum := 0
	rated := 0
	for _, r := range reviews {
		summary.ReviewsTotal++
		if r.Status == ReviewCompleted {
			summary.ReviewsCompleted++
		}
		if r.Rating != nil {
			summary.RatingDistribution[strconv.Itoa(*r.Rating)]++
			sum += *r.Rating
			rated++
		}
	}
	if summary.ReviewsTotal > 0 {
		summary.ReviewCompletionRate = float64(summary.ReviewsCompleted) / float64(summary.ReviewsTotal)
	}
	if rated > 0 {
		summary.AverageRating = math.Round(float64(sum)/float64(rated)*100) / 100
	}
	return summary
}

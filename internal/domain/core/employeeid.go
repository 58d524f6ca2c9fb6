package core

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"time"
)

var employeeIDPattern = regexp.MustCompile(`^EMP-(\d{4,})$`)

const (
	IssueMissing   = "missing"
	IssueMalformed = "malformed"
	IssueDuplicate = "duplicate"
)

func FormatEmployeeID(n int) string {
	return fmt.Sprintf("EMP-%04d", n)
}

func ParseEmployeeID(id string) (int, bool) {
	m := employeeIDPattern.FindStringSubmatch(id)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return n, true
}

func MaxEmployeeNumber(ids []string) int {
	highest := 0
	for _, id := range ids {
		if n, ok := ParseEmployeeID(id); ok && n > highest {
			highest = n
		}
	}
	return highest
}

func NextEmployeeID(ids []string) string {
	return FormatEmployeeID(MaxEmployeeNumber(ids) + 1)
}

type EmployeeIDRecord struct {
	RecordID   string
	UserID     string
	Name       string
	EmployeeID string
	CreatedAt  time.Time
}

type EmployeeIDIssue struct {
	RecordID string `json:"id"`
	UserID   string `json:"userId"`
	Name     string `json:"name"`
	Current  string `json:"currentEmployeeId"`
	Reason   string `json:"reason"`
	Proposed string `json:"proposedEmployeeId"`
}

// PlanEmployeeIDRepairs finds missing, malformed and duplicated ids. The oldest
// holder of a duplicated id keeps it; every flagged record is proposed a fresh
// number after the current maximum, in creation order.
func PlanEmployeeIDRepairs(records []EmployeeIDRecord) []EmployeeIDIssue {
	ordered := make([]EmployeeIDRecord, len(records))
	copy(ordered, records)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].CreatedAt.Before(ordered[j].CreatedAt)
	})

	all := make([]string, 0, len(ordered))
	for _, r := range ordered {
		all = append(all, r.EmployeeID)
	}
	next := MaxEmployeeNumber(all)

	seen := map[string]bool{}
	var issues []EmployeeIDIssue
	for _, r := range ordered {
		reason := ""
		switch {
		case r.EmployeeID == "":
			reason = IssueMissing
		case !employeeIDPattern.MatchString(r.EmployeeID):
			reason = IssueMalformed
		case seen[r.EmployeeID]:
			reason = IssueDuplicate
		default:
			seen[r.EmployeeID] = true
			continue
		}
		next++
		issues = append(issues, EmployeeIDIssue{
			RecordID: r.RecordID,
			UserID:   r.UserID,
			Name:     r.Name,
			Current:  r.EmployeeID,
			Reason:   reason,
			Proposed: FormatEmployeeID(next),
		})
	}
	return issues
}

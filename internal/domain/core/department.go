package core

import (
	"regexp"
	"strings"
)

var departmentCodePattern = regexp.MustCompile(`^[A-Z0-9]{2,10}$`)

// NormalizeDepartmentCode upper-cases and validates a department code.
func NormalizeDepartmentCode(raw string) (string, error) {
	code := strings.ToUpper(strings.TrimSpace(raw))
	if !departmentCodePattern.MatchString(code) {
		return "", ErrInvalidDepartmentCode
	}
	return code, nil
}

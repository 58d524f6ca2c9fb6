package core

import (
	"errors"

	"github.com/jackc/pgx/v5"
)

var (
	ErrNotFound               = errors.New("not found")
	ErrEmailTaken             = errors.New("email already in use")
	ErrDepartmentCodeTaken    = errors.New("department code already in use")
	ErrDepartmentHasEmployees = errors.New("department has assigned employees")
	ErrInvalidDepartmentCode  = errors.New("department code must be 2-10 letters or digits")
	ErrInvalidAvatar          = errors.New("avatar must be a png, jpeg or webp image")
	ErrRoleNotAssignable      = errors.New("role cannot be assigned by this user")
)

func notFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	return err
}

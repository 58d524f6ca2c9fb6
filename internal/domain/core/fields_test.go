package core

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"hrcrm/internal/domain/auth"
)

func sampleEmployee() *Employee {
	salary := 120000.0
	return &Employee{FirstName: "Ada", LastName: "Lovelace", Salary: &salary}
}

func TestFilterEmployeeFieldsHR(t *testing.T) {
	for _, role := range []string{auth.RoleHRManager, auth.RoleDirector, auth.RoleSuperAdmin} {
		emp := sampleEmployee()
		FilterEmployeeFields(emp, auth.UserContext{Role: role})
		assert.NotNil(t, emp.Salary, role)
	}
}

func TestFilterEmployeeFieldsHidesSalary(t *testing.T) {
	for _, role := range []string{auth.RoleDepartmentManager, auth.RoleSupervisor, auth.RoleEmployee, auth.RoleIntern} {
		emp := sampleEmployee()
		FilterEmployeeFields(emp, auth.UserContext{Role: role})
		assert.Nil(t, emp.Salary, role)
	}
}

func TestApplyPatch(t *testing.T) {
	dept := "d1"
	emp := sampleEmployee()
	emp.DepartmentID = &dept

	title := "Engineer"
	empty := ""
	ApplyPatch(emp, EmployeePatch{Title: &title, DepartmentID: &empty})

	assert.Equal(t, "Engineer", emp.Title)
	assert.Nil(t, emp.DepartmentID)
	assert.Equal(t, "Ada", emp.FirstName)
	assert.Equal(t, "Ada Lovelace", emp.FullName())
}

package core

import "hrcrm/internal/domain/auth"

// FilterEmployeeFields hides compensation from everyone outside HR and the executive roles.
func FilterEmployeeFields(emp *Employee, user auth.UserContext) {
	if emp == nil || user.IsHR() {
		return
	}
	emp.Salary = nil
}

func FilterEmployees(list []Employee, user auth.UserContext) {
	for i := range list {
		FilterEmployeeFields(&list[i], user)
	}
}

// ApplyPatch copies the set fields of p onto emp.
func ApplyPatch(emp *Employee, p EmployeePatch) {
	if p.FirstName != nil {
		emp.FirstName = *p.FirstName
	}
	if p.LastName != nil {
		emp.LastName = *p.LastName
	}
	if p.Title != nil {
		emp.Title = *p.Title
	}
	if p.DepartmentID != nil {
		emp.DepartmentID = emptyToNil(*p.DepartmentID)
	}
	if p.Salary != nil {
		salary := *p.Salary
		emp.Salary = &salary
	}
	if p.HireDate != nil {
		hire := *p.HireDate
		emp.HireDate = &hire
	}
	if p.ManagerID != nil {
		emp.ManagerID = emptyToNil(*p.ManagerID)
	}
	if p.Phone != nil {
		emp.Phone = *p.Phone
	}
	if p.Role != nil {
		emp.Role = *p.Role
	}
}

func emptyToNil(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}

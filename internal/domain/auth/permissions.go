package auth

import "context"

const (
	PermEmployeesRead     = "employees.read"
	PermEmployeesWrite    = "employees.write"
	PermOrgWrite          = "org.write"
	PermLeaveRead         = "leave.read"
	PermLeaveWrite        = "leave.write"
	PermLeaveApprove      = "leave.approve"
	PermLeaveEntitlements = "leave.entitlements"
	PermTimeRead          = "time.read"
	PermTimeWrite         = "time.write"
	PermTimeManage        = "time.manage"
	PermOvertimeRead      = "overtime.read"
	PermOvertimeWrite     = "overtime.write"
	PermOvertimeApprove   = "overtime.approve"
	PermFinanceRead       = "finance.read"
	PermFinanceWrite      = "finance.write"
	PermFinanceApprove    = "finance.approve"
	PermCRMRead           = "crm.read"
	PermCRMWrite          = "crm.write"
	PermDocumentsRead     = "documents.read"
	PermDocumentsWrite    = "documents.write"
	PermDocumentsManage   = "documents.manage"
	PermPerformanceRead   = "performance.read"
	PermPerformanceWrite  = "performance.write"
	PermPerformanceReview = "performance.review"
	PermRecruitmentRead   = "recruitment.read"
	PermRecruitmentWrite  = "recruitment.write"
	PermNotificationsRead = "notifications.read"
	PermAuditRead         = "audit.read"
	PermSystemAdmin       = "admin.system"
)

var selfService = []string{
	PermEmployeesRead,
	PermLeaveRead,
	PermLeaveWrite,
	PermTimeRead,
	PermTimeWrite,
	PermOvertimeRead,
	PermOvertimeWrite,
	PermDocumentsRead,
	PermDocumentsWrite,
	PermPerformanceRead,
	PermPerformanceWrite,
	PermRecruitmentRead,
	PermNotificationsRead,
}

var employee = join(selfService, PermFinanceRead, PermFinanceWrite)

var supervisor = join(employee,
	PermLeaveApprove,
	PermTimeManage,
	PermOvertimeApprove,
	PermPerformanceReview,
)

var departmentManager = join(supervisor, PermRecruitmentWrite)

var hrManager = join(departmentManager,
	PermEmployeesWrite,
	PermOrgWrite,
	PermLeaveEntitlements,
	PermFinanceApprove,
	PermCRMRead,
	PermCRMWrite,
	PermDocumentsManage,
	PermAuditRead,
)

var director = join(hrManager, PermSystemAdmin)

var RolePermissions = map[string][]string{
	RoleIntern:            selfService,
	RoleEmployee:          employee,
	RoleSeniorEmployee:    employee,
	RoleSupervisor:        supervisor,
	RoleDepartmentManager: departmentManager,
	RoleHRManager:         hrManager,
	RoleDirector:          director,
	RoleSuperAdmin:        director,
}

func join(base []string, extra ...string) []string {
	out := make([]string, 0, len(base)+len(extra))
	out = append(out, base...)
	return append(out, extra...)
}

func HasPermission(role, permission string) bool {
	for _, p := range RolePermissions[role] {
		if p == permission {
			return true
		}
	}
	return false
}

// PermissionChecker resolves permissions from the static role table.
type PermissionChecker struct{}

func (PermissionChecker) HasPermission(_ context.Context, role, permission string) (bool, error) {
	return HasPermission(role, permission), nil
}

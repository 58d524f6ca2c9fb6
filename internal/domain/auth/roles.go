package auth

const (
	RoleSuperAdmin        = "SUPER_ADMIN"
	RoleDirector          = "DIRECTOR"
	RoleHRManager         = "HR_MANAGER"
	RoleDepartmentManager = "DEPARTMENT_MANAGER"
	RoleSupervisor        = "SUPERVISOR"
	RoleSeniorEmployee    = "SENIOR_EMPLOYEE"
	RoleEmployee          = "EMPLOYEE"
	RoleIntern            = "INTERN"
)

type RoleInfo struct {
	Name        string `json:"name"`
	Rank        int    `json:"rank"`
	Description string `json:"description"`
}

// Ordered from most to least privileged.
var roleCatalog = []RoleInfo{
	{Name: RoleSuperAdmin, Rank: 100, Description: "Full system access including maintenance tools"},
	{Name: RoleDirector, Rank: 90, Description: "Executive access across all departments"},
	{Name: RoleHRManager, Rank: 80, Description: "Manages employees, leave, documents and finance approvals"},
	{Name: RoleDepartmentManager, Rank: 70, Description: "Manages a department and its hiring"},
	{Name: RoleSupervisor, Rank: 60, Description: "Approves leave and time for direct reports"},
	{Name: RoleSeniorEmployee, Rank: 50, Description: "Experienced individual contributor"},
	{Name: RoleEmployee, Rank: 40, Description: "Standard employee self-service"},
	{Name: RoleIntern, Rank: 30, Description: "Limited self-service access"},
}

func Roles() []RoleInfo {
	out := make([]RoleInfo, len(roleCatalog))
	copy(out, roleCatalog)
	return out
}

func RoleNames() []string {
	out := make([]string, 0, len(roleCatalog))
	for _, r := range roleCatalog {
		out = append(out, r.Name)
	}
	return out
}

// Rank returns 0 for unknown roles.
func Rank(role string) int {
	for _, r := range roleCatalog {
		if r.Name == role {
			return r.Rank
		}
	}
	return 0
}

func ValidRole(role string) bool {
	return Rank(role) > 0
}

func IsAdmin(role string) bool {
	return role == RoleSuperAdmin
}

func IsExecutive(role string) bool {
	return role == RoleSuperAdmin || role == RoleDirector
}

func IsHR(role string) bool {
	return IsExecutive(role) || role == RoleHRManager
}

func IsManager(role string) bool {
	return IsHR(role) || role == RoleDepartmentManager || role == RoleSupervisor
}

// CanAssign reports whether actor may grant target to another user.
func CanAssign(actor, target string) bool {
	if !ValidRole(target) {
		return false
	}
	if actor == RoleSuperAdmin {
		return true
	}
	return Rank(actor) > Rank(target)
}

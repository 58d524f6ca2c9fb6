package auth

// UserContext is the authenticated caller attached to a request.
type UserContext struct {
	UserID string
	Email  string
	Role   string
}

func (u UserContext) IsHR() bool {
	return IsHR(u.Role)
}

func (u UserContext) IsManager() bool {
	return IsManager(u.Role)
}

func (u UserContext) IsExecutive() bool {
	return IsExecutive(u.Role)
}

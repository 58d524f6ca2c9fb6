package admin

// reference is one column pointing at users(id). Owned rows are deleted with
// the user; references kept for history are cleared instead.
type reference struct {
	Table  string
	Column string
	Action string
}

var userReferences = []reference{
	{"payments", "confirmed_by", ActionUnlink},
	{"employees", "manager_id", ActionUnlink},
	{"leave_requests", "reviewed_by", ActionUnlink},
	{"overtime_entries", "created_by", ActionUnlink},
	{"overtime_entries", "approved_by", ActionUnlink},
	{"expenses", "approved_by", ActionUnlink},
	{"documents", "uploaded_by", ActionUnlink},
	{"performance_reviews", "reviewer_id", ActionUnlink},
	{"goals", "created_by", ActionUnlink},
	{"job_postings", "created_by", ActionUnlink},
	{"temporary_credentials", "created_by", ActionUnlink},
	{"department_managers", "user_id", ActionDelete},
	{"leave_requests", "user_id", ActionDelete},
	{"leave_entitlements", "user_id", ActionDelete},
	{"time_entries", "user_id", ActionDelete},
	{"overtime_entries", "user_id", ActionDelete},
	{"expenses", "created_by", ActionDelete},
	{"documents", "user_id", ActionDelete},
	{"performance_reviews", "user_id", ActionDelete},
	{"goals", "user_id", ActionDelete},
	{"temporary_credentials", "user_id", ActionDelete},
	{"notifications", "user_id", ActionDelete},
	{"idempotency_keys", "user_id", ActionDelete},
	{"employees", "user_id", ActionDelete},
}

func (r reference) countSQL() string {
	return "SELECT COUNT(1) FROM " + r.Table + " WHERE " + r.Column + " = $1"
}

func (r reference) applySQL() string {
	if r.Action == ActionUnlink {
		return "UPDATE " + r.Table + " SET " + r.Column + " = NULL WHERE " + r.Column + " = $1"
	}
	return "DELETE FROM " + r.Table + " WHERE " + r.Column + " = $1"
}

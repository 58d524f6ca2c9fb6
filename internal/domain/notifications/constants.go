package notifications

const (
	TypeLeaveSubmitted    = "leave_submitted"
	TypeLeaveApproved     = "leave_approved"
	TypeLeaveRejected     = "leave_rejected"
	TypeExpenseApproved   = "expense_approved"
	TypeExpenseRejected   = "expense_rejected"
	TypeOvertimeDecided   = "overtime_decided"
	TypeTimeAutoClosed    = "time_entry_auto_closed"
	TypeCredentialIssued  = "credential_issued"
	TypeReviewAssigned    = "review_assigned"
	TypeReviewCompleted   = "review_completed"
	TypeGoalCreated       = "goal_created"
	TypeApplicationUpdate = "application_updated"
)

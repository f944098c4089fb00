package departments

import "time"

// Budget health statuses exposed by the list view.
const (
	StatusOK       = "ok"
	StatusWarning  = "warning"
	StatusExceeded = "exceeded"
)

// Department is a cost center with a monthly budget envelope.
type Department struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	BudgetLimit  float64   `json:"budget_limit"`
	CurrentSpent float64   `json:"current_spent"`
	ManagerID    *int64    `json:"manager_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// BudgetView decorates a department with derived budget health.
type BudgetView struct {
	Department
	RemainingBudget float64 `json:"remaining_budget"`
	BudgetStatus    string  `json:"budget_status"`
}

// BudgetStatus classifies consumption against the envelope.
func BudgetStatus(spent, limit float64) string {
	switch {
	case spent > limit || (limit > 0 && spent >= limit):
		return StatusExceeded
	case spent > limit*0.8:
		return StatusWarning
	default:
		return StatusOK
	}
}

// View derives the budget health fields.
func (d Department) View() BudgetView {
	return BudgetView{
		Department:      d,
		RemainingBudget: d.BudgetLimit - d.CurrentSpent,
		BudgetStatus:    BudgetStatus(d.CurrentSpent, d.BudgetLimit),
	}
}

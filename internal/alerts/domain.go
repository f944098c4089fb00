package alerts

import "time"

// Alert types.
const (
	TypeBudget   = "budget"
	TypeExpense  = "expense"
	TypeAnomaly  = "anomaly"
	TypeDeadline = "deadline"
)

// Alert severities.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// Alert is a persisted notification about spend anomalies and budget
// health. Rows are immutable once written apart from the read flag.
type Alert struct {
	ID             int64      `json:"id"`
	Type           string     `json:"type"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Severity       string     `json:"severity"`
	DepartmentID   *int64     `json:"department_id,omitempty"`
	UserID         *int64     `json:"user_id,omitempty"`
	ExpenseID      *int64     `json:"expense_id,omitempty"`
	ThresholdValue float64    `json:"threshold_value"`
	CurrentValue   float64    `json:"current_value"`
	IsRead         bool       `json:"is_read"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`

	// Joined detail for the list view.
	DepartmentName     string  `json:"department_name,omitempty"`
	UserName           string  `json:"user_name,omitempty"`
	ExpenseDescription string  `json:"expense_description,omitempty"`
	ExpenseAmount      float64 `json:"expense_amount,omitempty"`
}

// StatRow is one cell of the 7-day type by severity breakdown.
type StatRow struct {
	Type     string `json:"type"`
	Severity string `json:"severity"`
	Count    int64  `json:"count"`
}

// LimitedUser is a user with a personal expense limit alongside this
// month's approved spend.
type LimitedUser struct {
	ID           int64
	Name         string
	Email        string
	ExpenseLimit float64
	CurrentSpent float64
}

// DepartmentSpend is a department past the budget attention threshold.
type DepartmentSpend struct {
	ID           int64
	Name         string
	BudgetLimit  float64
	CurrentSpent float64
}

// AnomalousExpense is a recent expense above the statistical threshold.
type AnomalousExpense struct {
	ID           int64
	EmployeeID   int64
	EmployeeName string
	Description  string
	Amount       float64
}

// ReportRow is one user's category rollup for the monthly report.
type ReportRow struct {
	UserID   int64
	Name     string
	Email    string
	Category string
	Count    int
	Total    float64
}

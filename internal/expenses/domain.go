package expenses

import "time"

// Expense statuses. An expense starts pending; approval and rejection are
// terminal.
const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

// Priorities accepted on creation.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

// Expense is a submitted cost item under review.
type Expense struct {
	ID            int64     `json:"id"`
	EmployeeID    int64     `json:"employee_id"`
	EmployeeName  string    `json:"employee_name,omitempty"`
	Description   string    `json:"description"`
	Amount        float64   `json:"amount"`
	Category      string    `json:"category"`
	Date          time.Time `json:"date"`
	ReceiptFile   string    `json:"receipt_file,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	Status        string    `json:"status"`
	Priority      string    `json:"priority"`
	Tags          []string  `json:"tags,omitempty"`
	CreatedBy     int64     `json:"created_by"`
	CreatedByName string    `json:"created_by_name,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// NewExpense carries the fields for submission.
type NewExpense struct {
	EmployeeID  int64
	Description string
	Amount      float64
	Category    string
	Date        time.Time
	ReceiptFile string
	Notes       string
	Priority    string
	Tags        []string
	CreatedBy   int64
}

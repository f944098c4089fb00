package users

import "time"

// User represents an account visible to administrators. The password hash
// never leaves the repository layer.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	Department   string    `json:"department,omitempty"`
	Position     string    `json:"position,omitempty"`
	ExpenseLimit float64   `json:"expense_limit"`
	CreatedAt    time.Time `json:"created_at"`
}

// NewUser carries the fields for account creation.
type NewUser struct {
	Name         string
	Email        string
	Password     string
	Role         string
	Department   string
	Position     string
	ExpenseLimit float64
}

// UserUpdate carries the mutable account fields. Nil pointers leave the
// stored value untouched.
type UserUpdate struct {
	Name         *string
	Email        *string
	Role         *string
	Department   *string
	Position     *string
	ExpenseLimit *float64
}

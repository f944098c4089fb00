package cache

import "strconv"

// Well-known cache keys. Writers invalidate these; read paths populate them.
const (
	KeyUserList         = "user_list"
	KeyExpenseList      = "expense_list"
	KeyCategoryList     = "category_list"
	KeyDepartmentStats  = "department_stats"
	KeyDashboardMetrics = "dashboard_metrics"
)

// KeyDashboardEmployee scopes the dashboard rollup to one employee so it
// never collides with the admin-wide key.
func KeyDashboardEmployee(userID int64) string {
	return KeyDashboardMetrics + "_employee_" + strconv.FormatInt(userID, 10)
}

// KeyUserExpenses scopes the per-user expense list.
func KeyUserExpenses(userID int64) string {
	return "user_expenses_" + strconv.FormatInt(userID, 10)
}

package reports

import (
	"encoding/csv"
	"fmt"
	"html/template"
	"io"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var money = message.NewPrinter(language.English)

const reportStyle = `
	body { font-family: Helvetica, Arial, sans-serif; font-size: 12px; }
	h1 { font-size: 18px; }
	table { border-collapse: collapse; width: 100%; }
	th, td { border: 1px solid #999; padding: 4px 8px; text-align: left; }
	th { background: #eee; }
	tfoot td { font-weight: bold; }`

var reportFuncs = template.FuncMap{
	"money":       func(v float64) string { return money.Sprintf("$%.2f", v) },
	"utilization": utilization,
}

var expenseTemplate = template.Must(template.New("expenses").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>` + reportStyle + `</style></head>
<body>
<h1>Expense Report</h1>
<p>Generated {{.GeneratedAt}} · {{len .Rows}} expense(s)</p>
<table>
<thead><tr><th>Date</th><th>Employee</th><th>Department</th><th>Description</th><th>Category</th><th>Amount</th><th>Status</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Date.Format "2006-01-02"}}</td><td>{{.EmployeeName}}</td><td>{{.DepartmentName}}</td><td>{{.Description}}</td><td>{{.Category}}</td><td>{{money .Amount}}</td><td>{{.Status}}</td></tr>
{{end}}</tbody>
<tfoot><tr><td colspan="5">Total</td><td>{{money .Total}}</td><td></td></tr></tfoot>
</table>
</body></html>`))

var departmentTemplate = template.Must(template.New("departments").Funcs(reportFuncs).Parse(`<!DOCTYPE html>
<html><head><meta charset="utf-8"><style>` + reportStyle + `</style></head>
<body>
<h1>Department Report</h1>
<p>Generated {{.GeneratedAt}}</p>
<table>
<thead><tr><th>Department</th><th>Budget</th><th>Spent</th><th>Utilization</th><th>Expenses</th></tr></thead>
<tbody>
{{range .Rows}}<tr><td>{{.Name}}</td><td>{{money .BudgetLimit}}</td><td>{{money .CurrentSpent}}</td><td>{{utilization .CurrentSpent .BudgetLimit}}</td><td>{{.ExpenseCount}}</td></tr>
{{end}}</tbody>
</table>
</body></html>`))

func utilization(spent, limit float64) string {
	if limit <= 0 {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", spent/limit*100)
}

// ExpenseHTML renders the expense table document handed to Gotenberg.
func ExpenseHTML(rows []ExpenseRow, now time.Time) (string, error) {
	var total float64
	for _, row := range rows {
		total += row.Amount
	}
	var sb strings.Builder
	err := expenseTemplate.Execute(&sb, map[string]any{
		"GeneratedAt": now.Format("2006-01-02 15:04"),
		"Rows":        rows,
		"Total":       total,
	})
	if err != nil {
		return "", fmt.Errorf("render expense report: %w", err)
	}
	return sb.String(), nil
}

// DepartmentHTML renders the department table document.
func DepartmentHTML(rows []DepartmentRow, now time.Time) (string, error) {
	var sb strings.Builder
	err := departmentTemplate.Execute(&sb, map[string]any{
		"GeneratedAt": now.Format("2006-01-02 15:04"),
		"Rows":        rows,
	})
	if err != nil {
		return "", fmt.Errorf("render department report: %w", err)
	}
	return sb.String(), nil
}

// WriteExpenseCSV streams the expense workbook, a totals row last.
func WriteExpenseCSV(w io.Writer, rows []ExpenseRow) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write([]string{"Date", "Employee", "Department", "Description", "Category", "Amount", "Status"}); err != nil {
		return err
	}
	var total float64
	for _, row := range rows {
		total += row.Amount
		record := []string{
			row.Date.Format("2006-01-02"),
			row.EmployeeName,
			row.DepartmentName,
			row.Description,
			row.Category,
			strconv.FormatFloat(row.Amount, 'f', 2, 64),
			row.Status,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"", "", "", "", "Total", strconv.FormatFloat(total, 'f', 2, 64), ""}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteDepartmentCSV streams the department workbook.
func WriteDepartmentCSV(w io.Writer, rows []DepartmentRow) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write([]string{"Department", "Budget", "Spent", "Utilization", "Expenses"}); err != nil {
		return err
	}
	for _, row := range rows {
		record := []string{
			row.Name,
			strconv.FormatFloat(row.BudgetLimit, 'f', 2, 64),
			strconv.FormatFloat(row.CurrentSpent, 'f', 2, 64),
			utilization(row.CurrentSpent, row.BudgetLimit),
			strconv.FormatInt(row.ExpenseCount, 10),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

package reports

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

var sampleExpenses = []ExpenseRow{
	{ID: 1, Date: time.Date(2025, 5, 2, 0, 0, 0, 0, time.UTC), EmployeeName: "Ana", DepartmentName: "Engineering", Description: "Flight", Category: "Travel", Amount: 1200.50, Status: "approved"},
	{ID: 2, Date: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC), EmployeeName: "Bo", DepartmentName: "Sales", Description: "Client lunch", Category: "Meals", Amount: 89.90, Status: "pending"},
}

func TestExpenseHTMLContainsTotals(t *testing.T) {
	html, err := ExpenseHTML(sampleExpenses, time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	for _, want := range []string{"Expense Report", "Ana", "$1,200.50", "$1,290.40", "2 expense(s)"} {
		if !strings.Contains(html, want) {
			t.Errorf("html missing %q", want)
		}
	}
}

func TestExpenseHTMLEscapesContent(t *testing.T) {
	rows := []ExpenseRow{{Date: time.Now(), EmployeeName: "<script>alert(1)</script>", Amount: 1}}
	html, err := ExpenseHTML(rows, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(html, "<script>alert") {
		t.Fatal("employee name was not escaped")
	}
}

func TestDepartmentHTMLUtilization(t *testing.T) {
	rows := []DepartmentRow{
		{Name: "Engineering", BudgetLimit: 1000, CurrentSpent: 850, ExpenseCount: 3},
		{Name: "Unbudgeted", BudgetLimit: 0, CurrentSpent: 10},
	}
	html, err := DepartmentHTML(rows, time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if !strings.Contains(html, "85.0%") {
		t.Error("missing utilization percentage")
	}
	if !strings.Contains(html, "n/a") {
		t.Error("zero budget should render n/a")
	}
}

func TestWriteExpenseCSV(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteExpenseCSV(&buf, sampleExpenses); err != nil {
		t.Fatalf("write: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\r\n")
	if len(lines) != 4 {
		t.Fatalf("expected header + 2 rows + total, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "Date,Employee") {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if !strings.Contains(lines[3], "Total,1290.40") {
		t.Fatalf("unexpected totals row %q", lines[3])
	}
}

func TestWriteDepartmentCSV(t *testing.T) {
	var buf bytes.Buffer
	rows := []DepartmentRow{{Name: "Engineering", BudgetLimit: 1000, CurrentSpent: 500, ExpenseCount: 2}}
	if err := WriteDepartmentCSV(&buf, rows); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(buf.String(), "Engineering,1000.00,500.00,50.0%,2") {
		t.Fatalf("unexpected csv: %q", buf.String())
	}
}

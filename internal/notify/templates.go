package notify

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var moneyPrinter = message.NewPrinter(language.English)

func money(amount float64) string {
	return moneyPrinter.Sprintf("$%.2f", amount)
}

// Message is a rendered email ready for the mailer.
type Message struct {
	Subject string
	Body    string
}

// WelcomeMessage greets a freshly created account.
func WelcomeMessage(name string) Message {
	return Message{
		Subject: "Welcome to ExpenseFlow",
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Your ExpenseFlow account has been created. You can now submit and track expenses.\n\n"+
			"The ExpenseFlow team\n", name),
	}
}

// ExpenseDecision describes a reviewed expense for the decision emails.
type ExpenseDecision struct {
	Description string
	Amount      float64
	Category    string
	Reason      string
}

// ExpenseApprovedMessage notifies the employee of an approval.
func ExpenseApprovedMessage(name string, d ExpenseDecision) Message {
	return Message{
		Subject: "Expense approved: " + d.Description,
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Your expense %q (%s, %s) has been approved.\n\n"+
			"The ExpenseFlow team\n", name, d.Description, d.Category, money(d.Amount)),
	}
}

// ExpenseRejectedMessage notifies the employee of a rejection.
func ExpenseRejectedMessage(name string, d ExpenseDecision) Message {
	reason := d.Reason
	if reason == "" {
		reason = "no reason provided"
	}
	return Message{
		Subject: "Expense rejected: " + d.Description,
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Your expense %q (%s, %s) has been rejected.\nReason: %s\n\n"+
			"The ExpenseFlow team\n", name, d.Description, d.Category, money(d.Amount), reason),
	}
}

// LimitUsage describes monthly consumption against a personal limit.
type LimitUsage struct {
	Limit      float64
	Current    float64
	Available  float64
	Percentage float64
	Level      string
}

// ExpenseLimitMessage warns a user about monthly limit consumption.
func ExpenseLimitMessage(name string, usage LimitUsage) Message {
	headline := map[string]string{
		"critical": "Critical: monthly expense limit almost reached",
		"warning":  "Warning: monthly expense limit at risk",
		"info":     "Heads up: half of your monthly expense limit used",
	}[usage.Level]
	if headline == "" {
		headline = "Monthly expense limit update"
	}
	return Message{
		Subject: headline,
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"You have used %.1f%% of your monthly expense limit.\n"+
			"Limit: %s\nSpent: %s\nAvailable: %s\n\n"+
			"The ExpenseFlow team\n",
			name, usage.Percentage, money(usage.Limit), money(usage.Current), money(usage.Available)),
	}
}

// CategoryTotal aggregates one category for the monthly report.
type CategoryTotal struct {
	Count int
	Total float64
}

// MonthlyReport summarises a user's prior-month approved spend.
type MonthlyReport struct {
	Month         string
	TotalExpenses int
	TotalAmount   float64
	AverageAmount float64
	TopCategory   string
	Categories    map[string]CategoryTotal
}

// MonthlyReportMessage renders the per-user monthly summary.
func MonthlyReportMessage(name string, report MonthlyReport) Message {
	var lines strings.Builder
	names := make([]string, 0, len(report.Categories))
	for category := range report.Categories {
		names = append(names, category)
	}
	sort.Strings(names)
	for _, category := range names {
		totals := report.Categories[category]
		lines.WriteString(fmt.Sprintf("  - %s: %d expense(s), %s\n", category, totals.Count, money(totals.Total)))
	}

	return Message{
		Subject: "Your ExpenseFlow report for " + report.Month,
		Body: fmt.Sprintf("Hello %s,\n\n"+
			"Summary of your approved expenses for %s:\n"+
			"Total expenses: %d\nTotal amount: %s\nAverage amount: %s\nTop category: %s\n\n"+
			"By category:\n%s\n"+
			"The ExpenseFlow team\n",
			name, report.Month, report.TotalExpenses, money(report.TotalAmount),
			money(report.AverageAmount), report.TopCategory, lines.String()),
	}
}

package notify

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestBroadcastPublishesEnvelope(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	sub := client.Subscribe(context.Background(), ChannelFor(RoomAdmin))
	defer sub.Close()
	if _, err := sub.Receive(context.Background()); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	b := NewRedisBroadcaster(client)
	b.now = func() time.Time { return time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC) }

	payload := map[string]any{"department": "Engineering", "percentage": 92.5}
	if err := b.Broadcast(context.Background(), RoomAdmin, EventBudgetAlert, payload); err != nil {
		t.Fatalf("broadcast: %v", err)
	}

	select {
	case msg := <-sub.Channel():
		var envelope Envelope
		if err := json.Unmarshal([]byte(msg.Payload), &envelope); err != nil {
			t.Fatalf("unmarshal envelope: %v", err)
		}
		if envelope.Event != EventBudgetAlert {
			t.Fatalf("unexpected event %q", envelope.Event)
		}
		var got map[string]any
		if err := json.Unmarshal(envelope.Payload, &got); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		if got["department"] != "Engineering" {
			t.Fatalf("unexpected payload: %v", got)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for published event")
	}
}

func TestBroadcastDefaultsToAllRoom(t *testing.T) {
	if ChannelFor("") != ChannelFor(RoomAll) {
		t.Fatal("empty room must map to the all-subscribers channel")
	}
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
	err  error
	done chan struct{}
}

func (m *recordingMailer) Send(_ context.Context, to, subject, _ string) error {
	m.mu.Lock()
	m.sent = append(m.sent, to+" "+subject)
	m.mu.Unlock()
	if m.done != nil {
		close(m.done)
	}
	return m.err
}

func TestDispatcherSwallowsEmailFailure(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down"), done: make(chan struct{})}
	d := NewDispatcher(slog.Default(), mailer, nil)

	d.SendEmail("maria@corp.test", WelcomeMessage("Maria"))

	select {
	case <-mailer.done:
	case <-time.After(2 * time.Second):
		t.Fatal("mailer was never invoked")
	}
}

func TestDispatcherSendEmailSyncReportsError(t *testing.T) {
	mailer := &recordingMailer{err: errors.New("smtp down")}
	d := NewDispatcher(slog.Default(), mailer, nil)
	if err := d.SendEmailSync(context.Background(), "x@corp.test", WelcomeMessage("X")); err == nil {
		t.Fatal("expected error from sync send")
	}
}

func TestTemplatesContainAmounts(t *testing.T) {
	msg := ExpenseLimitMessage("Pedro", LimitUsage{
		Limit: 1000, Current: 920, Available: 80, Percentage: 92, Level: "critical",
	})
	if !strings.Contains(msg.Body, "$1,000.00") || !strings.Contains(msg.Body, "92.0%") {
		t.Fatalf("limit message missing formatted values:\n%s", msg.Body)
	}
	if !strings.Contains(msg.Subject, "Critical") {
		t.Fatalf("unexpected subject %q", msg.Subject)
	}

	report := MonthlyReportMessage("Ana", MonthlyReport{
		Month:         "2025-05",
		TotalExpenses: 3,
		TotalAmount:   1234.5,
		AverageAmount: 411.5,
		TopCategory:   "Travel",
		Categories: map[string]CategoryTotal{
			"Travel": {Count: 2, Total: 1000},
			"Meals":  {Count: 1, Total: 234.5},
		},
	})
	if !strings.Contains(report.Body, "Travel: 2 expense(s), $1,000.00") {
		t.Fatalf("report missing category line:\n%s", report.Body)
	}
}

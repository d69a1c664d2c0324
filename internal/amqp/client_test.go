package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"medrent/internal/core"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},
		{15, 30 * time.Second},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			if got := exponentialBackoff(tt.attempt); got != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, got, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{"nil error", nil, false},
		{"connection refused", errors.New("connection refused"), true},
		{"EOF", errors.New("unexpected EOF"), true},
		{"broken pipe", errors.New("broken pipe"), true},
		{"closed network connection", errors.New("use of closed network connection"), true},
		{"other error", errors.New("invalid input"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestClient_CircuitBreaker(t *testing.T) {
	client := &Client{exchangeName: "test_exchange", queueName: "test_queue"}

	t.Run("initial state is closed", func(t *testing.T) {
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed initially")
		}
	})

	t.Run("multiple failures open circuit", func(t *testing.T) {
		for i := 0; i < maxFailures; i++ {
			client.recordFailure()
		}
		if !client.isCircuitOpen() {
			t.Error("Circuit breaker should be open after max failures")
		}
	})

	t.Run("circuit transitions to half-open after timeout", func(t *testing.T) {
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now().Add(-openTimeout - time.Second)

		if client.isCircuitOpen() {
			t.Error("Circuit should transition to half-open after timeout")
		}
		if atomic.LoadInt32(&client.state) != StateHalfOpen {
			t.Error("State should be StateHalfOpen after timeout")
		}
	})

	t.Run("a failure while half-open reopens", func(t *testing.T) {
		atomic.StoreInt64(&client.failureCount, 0)
		client.recordFailure()
		if atomic.LoadInt32(&client.state) != StateOpen {
			t.Error("State should be StateOpen after a half-open failure")
		}
	})

	t.Run("record success resets state", func(t *testing.T) {
		client.recordSuccess()
		if client.isCircuitOpen() {
			t.Error("Circuit breaker should be closed after success")
		}
		if atomic.LoadInt64(&client.failureCount) != 0 {
			t.Error("Failure count should be reset to 0 after success")
		}
	})
}

func TestClient_PublishNotification_Guards(t *testing.T) {
	n := core.Notification{ID: "n1", Type: core.NotificationOverdue}
	asOf := core.NewDate(2025, 3, 1)

	t.Run("publish fails when circuit is open", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q"}
		atomic.StoreInt32(&client.state, StateOpen)
		client.lastFailure = time.Now()

		err := client.PublishNotification(context.Background(), n, asOf)
		if err == nil || !strings.Contains(err.Error(), "circuit breaker is open") {
			t.Errorf("expected circuit breaker error, got: %v", err)
		}
	})

	t.Run("publish respects context cancellation", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q"}
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		if err := client.PublishNotification(ctx, n, asOf); err != context.Canceled {
			t.Errorf("expected context.Canceled, got: %v", err)
		}
	})

	t.Run("publish without a channel counts a failure", func(t *testing.T) {
		client := &Client{exchangeName: "x", queueName: "q"}
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		if err := client.PublishNotification(ctx, n, asOf); err == nil {
			t.Fatal("expected error")
		}
		if atomic.LoadInt64(&client.failureCount) != 1 {
			t.Errorf("failureCount = %d, want 1", client.failureCount)
		}
	})
}

type fakeDelivery struct {
	acked, nacked, requeued bool
}

func (f *fakeDelivery) Ack(bool) error { f.acked = true; return nil }
func (f *fakeDelivery) Nack(_, requeue bool) error {
	f.nacked, f.requeued = true, requeue
	return nil
}

func TestHandleDelivery(t *testing.T) {
	valid, err := NewNotificationMessage(core.Notification{
		ID:   "n1",
		Type: core.NotificationUrgent,
		Date: core.NewDate(2025, 1, 2),
	}, core.NewDate(2025, 3, 1)).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}

	tests := []struct {
		name       string
		body       []byte
		handlerErr error
		wantAck    bool
		wantNack   bool
		wantQueue  bool
		wantCalled bool
	}{
		{name: "success acks", body: valid, wantAck: true, wantCalled: true},
		{name: "handler error requeues", body: valid, handlerErr: errors.New("sheet down"), wantNack: true, wantQueue: true, wantCalled: true},
		{name: "malformed body is dropped", body: []byte(`{"id":`), wantNack: true},
		{name: "unknown type is dropped", body: []byte(`{"id":"n2","type":"panic"}`), wantNack: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := &fakeDelivery{}
			called := false
			handleDelivery(context.Background(), tt.body, d, func(_ context.Context, msg *NotificationMessage) error {
				called = true
				if msg.ID != "n1" {
					t.Errorf("msg.ID = %q", msg.ID)
				}
				return tt.handlerErr
			})

			if called != tt.wantCalled {
				t.Errorf("handler called = %v, want %v", called, tt.wantCalled)
			}
			if d.acked != tt.wantAck || d.nacked != tt.wantNack || d.requeued != tt.wantQueue {
				t.Errorf("ack=%v nack=%v requeue=%v, want %v %v %v", d.acked, d.nacked, d.requeued, tt.wantAck, tt.wantNack, tt.wantQueue)
			}
		})
	}
}

func TestNotificationMessage_RoundTrip(t *testing.T) {
	n := core.Notification{
		ID:          "3f1c",
		Title:       "Cash remainder",
		Message:     "Nadia K. - Cash remainder (5 days late)",
		Type:        core.NotificationOverdue,
		Date:        core.NewDate(2025, 2, 24),
		EntityType:  "sale",
		EntityID:    "S1",
		PatientName: "Nadia K.",
	}
	data, err := NewNotificationMessage(n, core.NewDate(2025, 3, 1)).ToJSON()
	if err != nil {
		t.Fatalf("ToJSON() error = %v", err)
	}
	if !strings.Contains(string(data), `"date":"2025-02-24"`) {
		t.Errorf("date not encoded as a calendar day: %s", data)
	}

	msg, err := NotificationMessageFromJSON(data)
	if err != nil {
		t.Fatalf("NotificationMessageFromJSON() error = %v", err)
	}
	if got := msg.Notification(); got != n {
		t.Errorf("Notification() = %+v, want %+v", got, n)
	}
	if msg.AsOf.String() != "2025-03-01" {
		t.Errorf("AsOf = %v", msg.AsOf)
	}
}

func TestNotificationMessageFromJSON_Invalid(t *testing.T) {
	for _, body := range []string{`{"id":1}`, `{"type":"overdue"}`, `not json`} {
		if _, err := NotificationMessageFromJSON([]byte(body)); !errors.Is(err, ErrInvalidMessage) {
			t.Errorf("NotificationMessageFromJSON(%s) error = %v, want ErrInvalidMessage", body, err)
		}
	}
}

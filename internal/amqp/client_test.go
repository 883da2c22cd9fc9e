package amqp

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"gestornet/internal/core"
)

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "connection refused", err: errors.New("dial tcp: connection refused"), expected: true},
		{name: "closed connection error", err: errors.New("connection closed"), expected: true},
		{name: "EOF error", err: errors.New("unexpected EOF"), expected: true},
		{name: "broken pipe error", err: errors.New("broken pipe"), expected: true},
		{name: "closed network connection error", err: errors.New("use of closed network connection"), expected: true},
		{name: "amqp closed", err: fmt.Errorf("publish: %w", amqp091.ErrClosed), expected: true},
		{name: "access refused", err: errors.New("Exception (403) Reason: \"ACCESS_REFUSED\""), expected: false},
		{name: "validation error", err: errors.New("invalid input"), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isConnectionError(tt.err); got != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func newTestClient(publish publishFunc) *Client {
	c := newClient(Config{Exchange: "test_exchange", Queue: "test_queue"}, nil, nil)
	c.publish = publish
	return c
}

func TestClient_PublishEncodesEvent(t *testing.T) {
	var got amqp091.Publishing
	c := newTestClient(func(_ context.Context, msg amqp091.Publishing) error {
		got = msg
		return nil
	})

	tx := core.Transaction{ID: "tx-1", Type: core.Entrada, Category: core.Pagamento, Amount: core.Kz(3500)}
	if err := c.Publish(context.Background(), NewTransactionRecorded(tx)); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}
	if got.MessageId != "tx-1" || got.Type != string(EventTransactionRecorded) {
		t.Errorf("publishing headers = %q/%q", got.MessageId, got.Type)
	}
	if got.DeliveryMode != amqp091.Persistent {
		t.Error("message not persistent")
	}

	ev, err := LedgerEventFromJSON(got.Body)
	if err != nil {
		t.Fatalf("LedgerEventFromJSON() error = %v", err)
	}
	if ev.Transaction == nil || ev.Transaction.Amount != core.Kz(3500) {
		t.Errorf("decoded event = %+v", ev)
	}
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(func(context.Context, amqp091.Publishing) error {
		calls.Add(1)
		return errors.New("connection refused")
	})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := c.Publish(ctx, NewTransactionRemoved("tx-1")); err == nil {
			t.Fatalf("Publish() #%d succeeded against failing broker", i)
		}
	}
	if c.BreakerState() != gobreaker.StateOpen {
		t.Fatalf("BreakerState() = %v, want open", c.BreakerState())
	}

	err := c.Publish(ctx, NewTransactionRemoved("tx-1"))
	if !errors.Is(err, gobreaker.ErrOpenState) {
		t.Errorf("Publish() with open breaker error = %v, want ErrOpenState", err)
	}
	if calls.Load() != 5 {
		t.Errorf("broker called %d times, want 5", calls.Load())
	}
}

func TestClient_PublishTimeout(t *testing.T) {
	c := newTestClient(func(ctx context.Context, _ amqp091.Publishing) error {
		<-ctx.Done()
		return ctx.Err()
	})
	c.config.PublishTimeout = 10 * time.Millisecond

	err := c.Publish(context.Background(), NewTransactionRemoved("tx-1"))
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Publish() error = %v, want deadline exceeded", err)
	}
}

func TestClient_ConnectRetriesConnectionErrors(t *testing.T) {
	c := newClient(Config{DialMaxElapsed: 200 * time.Millisecond, DialInitialInterval: 5 * time.Millisecond}, nil, nil)
	var attempts atomic.Int32
	c.dial = func(string) (*amqp091.Connection, error) {
		attempts.Add(1)
		return nil, errors.New("connection refused")
	}

	if err := c.connect(context.Background()); err == nil {
		t.Fatal("connect() succeeded")
	}
	if attempts.Load() < 2 {
		t.Errorf("dial attempted %d times, want retries", attempts.Load())
	}
}

func TestClient_ConnectStopsOnPermanentError(t *testing.T) {
	c := newClient(Config{DialMaxElapsed: time.Second}, nil, nil)
	var attempts atomic.Int32
	c.dial = func(string) (*amqp091.Connection, error) {
		attempts.Add(1)
		return nil, amqp091.ErrCredentials
	}

	err := c.connect(context.Background())
	if !errors.Is(err, amqp091.ErrCredentials) {
		t.Errorf("connect() error = %v, want ErrCredentials", err)
	}
	if attempts.Load() != 1 {
		t.Errorf("dial attempted %d times, want 1", attempts.Load())
	}
}

type fakeAck struct {
	acked, nacked, requeued bool
}

func (f *fakeAck) Ack(bool) error { f.acked = true; return nil }

func (f *fakeAck) Nack(_, requeue bool) error {
	f.nacked = true
	f.requeued = requeue
	return nil
}

func TestClient_Dispatch(t *testing.T) {
	c := newTestClient(nil)
	ctx := context.Background()
	body, _ := NewTransactionRemoved("tx-9").ToJSON()

	t.Run("success acks", func(t *testing.T) {
		ack := &fakeAck{}
		var seen string
		c.dispatch(ctx, body, false, ack, func(_ context.Context, ev *LedgerEvent) error {
			seen = ev.TransactionID
			return nil
		})
		if !ack.acked || seen != "tx-9" {
			t.Errorf("acked=%v seen=%q", ack.acked, seen)
		}
	})

	t.Run("handler failure requeues", func(t *testing.T) {
		ack := &fakeAck{}
		c.dispatch(ctx, body, false, ack, func(context.Context, *LedgerEvent) error { return errors.New("sheets down") })
		if !ack.nacked || !ack.requeued {
			t.Errorf("nacked=%v requeued=%v", ack.nacked, ack.requeued)
		}
	})

	t.Run("malformed message dropped", func(t *testing.T) {
		ack := &fakeAck{}
		c.dispatch(ctx, []byte(`{"type":"transaction.recorded","transactionId":"x"}`), false, ack, func(context.Context, *LedgerEvent) error {
			t.Error("handler called for malformed message")
			return nil
		})
		if !ack.nacked || ack.requeued {
			t.Errorf("nacked=%v requeued=%v", ack.nacked, ack.requeued)
		}
	})
}

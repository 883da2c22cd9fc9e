package amqp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rabbitmq/amqp091-go"
	"github.com/sony/gobreaker"

	"gestornet/internal/log"
	"gestornet/internal/metrics"
)

// Config holds the broker settings.
type Config struct {
	URL      string
	Exchange string
	Queue    string

	// PublishTimeout bounds a single publish (default: 5s)
	PublishTimeout time.Duration

	// DialMaxElapsed is how long to keep retrying the first connection (default: 30s)
	DialMaxElapsed time.Duration

	// DialInitialInterval is the first wait between dial attempts (default: 500ms)
	DialInitialInterval time.Duration
}

type dialFunc func(url string) (*amqp091.Connection, error)

type publishFunc func(ctx context.Context, msg amqp091.Publishing) error

// Client publishes and consumes ledger events on a durable direct exchange.
// Publishing goes through a circuit breaker so a broker outage does not slow
// down the callers.
type Client struct {
	mu      sync.Mutex
	conn    *amqp091.Connection
	channel *amqp091.Channel

	url          string
	exchangeName string
	queueName    string
	config       Config

	breaker *gobreaker.CircuitBreaker
	dial    dialFunc
	publish publishFunc
	metrics *metrics.Metrics
	logger  *log.Logger
}

func NewClient(ctx context.Context, config Config, m *metrics.Metrics, logger *log.Logger) (*Client, error) {
	c := newClient(config, m, logger)
	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

func newClient(config Config, m *metrics.Metrics, logger *log.Logger) *Client {
	if config.PublishTimeout <= 0 {
		config.PublishTimeout = 5 * time.Second
	}
	if config.DialMaxElapsed <= 0 {
		config.DialMaxElapsed = 30 * time.Second
	}
	if config.DialInitialInterval <= 0 {
		config.DialInitialInterval = backoff.DefaultInitialInterval
	}
	if logger == nil {
		logger = log.Discard()
	}
	c := &Client{
		url:          config.URL,
		exchangeName: config.Exchange,
		queueName:    config.Queue,
		config:       config,
		breaker:      newBreaker("amqp-publish"),
		dial:         amqp091.Dial,
		metrics:      m,
		logger:       logger.WithComponent(log.ComponentAMQP),
	}
	c.publish = c.channelPublish
	return c
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 5 && failureRatio >= 0.6
		},
	})
}

// connect dials with exponential backoff. Errors that are not about the
// connection itself (bad credentials, missing vhost) stop the retries.
func (c *Client) connect(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.config.DialInitialInterval
	b.MaxElapsedTime = c.config.DialMaxElapsed
	b.Reset()

	attempt := 0
	op := func() error {
		attempt++
		conn, err := c.dial(c.url)
		if err != nil {
			if !isConnectionError(err) {
				return backoff.Permanent(err)
			}
			c.logger.WarnContext(ctx, "AMQP dial failed, retrying",
				"attempt", attempt,
				log.FieldError, err)
			return err
		}
		if err := c.open(conn); err != nil {
			conn.Close()
			return backoff.Permanent(err)
		}
		return nil
	}
	if err := backoff.Retry(op, backoff.WithContext(b, ctx)); err != nil {
		return fmt.Errorf("dial AMQP: %w", err)
	}

	c.logger.InfoContext(ctx, "Connected to AMQP",
		"exchange", c.exchangeName,
		"queue", c.queueName,
		"attempts", attempt)
	return nil
}

func (c *Client) open(conn *amqp091.Connection) error {
	channel, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	if err := setup(channel, c.exchangeName, c.queueName); err != nil {
		channel.Close()
		return fmt.Errorf("setup exchange and queue: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.channel = channel
	c.mu.Unlock()
	return nil
}

func setup(channel *amqp091.Channel, exchangeName, queueName string) error {
	// Declare exchange
	err := channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	// Declare queue
	_, err = channel.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	// Routing key is the queue name
	if err := channel.QueueBind(queueName, queueName, exchangeName, false, nil); err != nil {
		return fmt.Errorf("bind queue: %w", err)
	}
	return nil
}

// Publish sends a ledger event. When the breaker is open it fails fast with
// gobreaker.ErrOpenState.
func (c *Client) Publish(ctx context.Context, ev *LedgerEvent) error {
	body, err := ev.ToJSON()
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}

	_, err = c.breaker.Execute(func() (any, error) {
		ctx, cancel := context.WithTimeout(ctx, c.config.PublishTimeout)
		defer cancel()
		return nil, c.publish(ctx, amqp091.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp091.Persistent,
			Timestamp:    ev.Timestamp,
			Type:         string(ev.Type),
			MessageId:    ev.TransactionID,
			Body:         body,
		})
	})
	c.metrics.IncPublish(string(ev.Type), err)
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return fmt.Errorf("publish %s: broker unavailable: %w", ev.Type, err)
		}
		return fmt.Errorf("publish %s: %w", ev.Type, err)
	}

	c.logger.DebugContext(ctx, "Published ledger event",
		"type", ev.Type,
		log.FieldRecordID, ev.TransactionID)
	return nil
}

func (c *Client) channelPublish(ctx context.Context, msg amqp091.Publishing) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil || channel.IsClosed() {
		if err := c.reconnect(ctx); err != nil {
			return err
		}
		c.mu.Lock()
		channel = c.channel
		c.mu.Unlock()
	}
	return channel.PublishWithContext(ctx, c.exchangeName, c.queueName, false, false, msg)
}

// reconnect makes one attempt to replace a dead connection.
func (c *Client) reconnect(ctx context.Context) error {
	c.logger.WarnContext(ctx, "AMQP channel closed, reconnecting")
	c.closeConn()
	conn, err := c.dial(c.url)
	if err != nil {
		return fmt.Errorf("reconnect AMQP: %w", err)
	}
	if err := c.open(conn); err != nil {
		conn.Close()
		return fmt.Errorf("reconnect AMQP: %w", err)
	}
	return nil
}

// ConsumeLedgerEvents delivers events to handler until ctx ends. Malformed
// messages are dropped; handler failures are requeued.
func (c *Client) ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *LedgerEvent) error) error {
	c.mu.Lock()
	channel := c.channel
	c.mu.Unlock()
	if channel == nil {
		return fmt.Errorf("start consuming: not connected")
	}

	// One unacknowledged message at a time keeps the sheet in queue order
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("set qos: %w", err)
	}
	msgs, err := channel.Consume(
		c.queueName, // queue
		"",          // consumer
		false,       // auto-ack
		false,       // exclusive
		false,       // no-local
		false,       // no-wait
		nil,         // args
	)
	if err != nil {
		return fmt.Errorf("start consuming: %w", err)
	}

	c.logger.InfoContext(ctx, "Started consuming ledger events", "queue", c.queueName)

	for {
		select {
		case <-ctx.Done():
			c.logger.InfoContext(ctx, "Stopping message consumption", "reason", ctx.Err())
			return ctx.Err()
		case delivery, ok := <-msgs:
			if !ok {
				return fmt.Errorf("message channel closed")
			}
			c.handleDelivery(ctx, delivery, handler)
		}
	}
}

type acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

func (c *Client) handleDelivery(ctx context.Context, d amqp091.Delivery, handler func(context.Context, *LedgerEvent) error) {
	c.dispatch(ctx, d.Body, d.Redelivered, &d, handler)
}

func (c *Client) dispatch(ctx context.Context, body []byte, redelivered bool, ack acknowledger, handler func(context.Context, *LedgerEvent) error) {
	ev, err := LedgerEventFromJSON(body)
	if err != nil {
		c.logger.ErrorContext(ctx, "Failed to decode ledger event", log.FieldError, err)
		ack.Nack(false, false)
		return
	}

	if err := handler(ctx, ev); err != nil {
		c.logger.ErrorContext(ctx, "Failed to handle ledger event",
			"type", ev.Type,
			log.FieldRecordID, ev.TransactionID,
			"redelivered", redelivered,
			log.FieldError, err)
		ack.Nack(false, true)
		return
	}

	ack.Ack(false)
	c.logger.DebugContext(ctx, "Handled ledger event",
		"type", ev.Type,
		log.FieldRecordID, ev.TransactionID)
}

// BreakerState reports the publish breaker state, for health output.
func (c *Client) BreakerState() gobreaker.State {
	return c.breaker.State()
}

func (c *Client) Close() error {
	return c.closeConn()
}

func (c *Client) closeConn() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel != nil {
		c.channel.Close()
		c.channel = nil
	}
	if c.conn != nil {
		err := c.conn.Close()
		c.conn = nil
		if err != nil && !errors.Is(err, amqp091.ErrClosed) {
			return err
		}
	}
	return nil
}

// isConnectionError reports whether err looks like a transport failure worth
// retrying.
func isConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, amqp091.ErrClosed) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, s := range []string{
		"connection refused",
		"connection reset",
		"connection closed",
		"unexpected eof",
		"broken pipe",
		"use of closed network connection",
		"no such host",
		"i/o timeout",
	} {
		if strings.Contains(msg, s) {
			return true
		}
	}
	return false
}

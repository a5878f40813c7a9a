package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/iliyamo/loyalty-rewards/internal/logger"
)

// Consumer drains the otp.requested and account.deleted queues and appends
// one line per event to logs/otp.log and logs/account.log under Dir.
type Consumer struct {
	URL string
	Dir string
	Log logger.Logger
}

// Run dials the broker and consumes until ctx is cancelled, reconnecting
// with exponential backoff when the connection drops.  It returns ctx.Err()
// on shutdown.
func (c *Consumer) Run(ctx context.Context) error {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(c.URL)
		if err != nil {
			c.Log.Warn().Err(err).Dur("retry_in", backoff).Msg("event consumer: dial failed")
			if !sleep(ctx, backoff) {
				return ctx.Err()
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.Log.Warn().Err(err).Msg("event consumer: loop ended, reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		c.Log.Warn().Err(err).Msg("event consumer: set QoS failed")
	}

	type delivery struct {
		queue string
		d     amqp.Delivery
	}
	merged := make(chan delivery)
	for _, name := range []string{OTPRequestedQueue, AccountDeletedQueue} {
		if _, err := ch.QueueDeclare(name, true, false, false, false, nil); err != nil {
			return fmt.Errorf("queue declare %s: %w", name, err)
		}
		msgs, err := ch.Consume(name, "", false, false, false, false, nil)
		if err != nil {
			return fmt.Errorf("queue consume %s: %w", name, err)
		}
		go func(name string, msgs <-chan amqp.Delivery) {
			for d := range msgs {
				select {
				case merged <- delivery{name, d}:
				case <-ctx.Done():
					return
				}
			}
		}(name, msgs)
	}
	closed := conn.NotifyClose(make(chan *amqp.Error, 1))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case err := <-closed:
			if err == nil {
				return errors.New("connection closed")
			}
			return err
		case m := <-merged:
			if err := c.Handle(m.queue, m.d.Body); err != nil {
				c.Log.Error().Err(err).Str("queue", m.queue).Msg("event consumer: handle failed")
				_ = m.d.Nack(false, false) // reject, do not requeue to avoid tight loops
				continue
			}
			_ = m.d.Ack(false)
		}
	}
}

// Handle decodes one message body from queue and appends its log line.
func (c *Consumer) Handle(queue string, body []byte) error {
	file, line, err := Format(queue, body)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(c.Dir, file), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// Format renders the log line for a message and names the file it belongs
// in.  OTP codes are masked.
func Format(queue string, body []byte) (file, line string, err error) {
	switch queue {
	case OTPRequestedQueue:
		var ev OTPRequestedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", "", fmt.Errorf("unmarshal: %w", err)
		}
		return "otp.log", fmt.Sprintf("[%s] OTP issued | email=%s | purpose=%s | code=%s | expires=%s\n",
			ev.RequestedAt, ev.Email, ev.Purpose, mask(ev.Code), ev.ExpiresAt), nil
	case AccountDeletedQueue:
		var ev AccountDeletedEvent
		if err := json.Unmarshal(body, &ev); err != nil {
			return "", "", fmt.Errorf("unmarshal: %w", err)
		}
		return "account.log", fmt.Sprintf("[%s] Account deleted | user_id=%s | email=%s | member_id=%s | method=%s\n",
			ev.DeletedAt, ev.UserID, ev.Email, ev.MemberID, ev.Method), nil
	}
	return "", "", fmt.Errorf("unknown queue %q", queue)
}

func mask(code string) string {
	if len(code) <= 2 {
		return "**"
	}
	b := []byte(code)
	for i := 0; i < len(b)-2; i++ {
		b[i] = '*'
	}
	return string(b)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

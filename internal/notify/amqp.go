package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"auction-house/internal/auctionerrors"
	"auction-house/utils"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPConfig describes the exchange outgoing mail is published to
type AMQPConfig struct {
	URL        string
	Exchange   string
	RoutingKey string
	From       string
}

// envelope is the JSON body consumed by the mail worker
type envelope struct {
	From    string    `json:"from"`
	To      string    `json:"to"`
	Subject string    `json:"subject"`
	Body    string    `json:"body"`
	SentAt  time.Time `json:"sent_at"`
}

// AMQPMailer hands messages to a mail worker through RabbitMQ.
// A message counts as sent once the broker confirms it.
type AMQPMailer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	cfg     AMQPConfig
	mu      sync.Mutex // one publish at a time on the channel
}

// NewAMQPMailer connects, declares the exchange and puts the channel in confirm mode
func NewAMQPMailer(cfg AMQPConfig) (*AMQPMailer, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open rabbitmq channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", cfg.Exchange, err)
	}

	if err := ch.Confirm(false); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("enable publisher confirms: %w", err)
	}

	utils.Info("connected to mail exchange", map[string]any{"exchange": cfg.Exchange, "routing_key": cfg.RoutingKey})
	return &AMQPMailer{conn: conn, channel: ch, cfg: cfg}, nil
}

// Send publishes msg as a persistent message and waits for the broker's confirm
func (m *AMQPMailer) Send(ctx context.Context, msg Message) error {
	body, err := encodeEnvelope(m.cfg.From, msg, time.Now())
	if err != nil {
		return fmt.Errorf("%w: encode message to %s: %v", auctionerrors.ErrDelivery, msg.To, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	dc, err := m.channel.PublishWithDeferredConfirmWithContext(ctx,
		m.cfg.Exchange,   // exchange
		m.cfg.RoutingKey, // routing key
		false,            // mandatory
		false,            // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    utils.GenerateID(),
			Timestamp:    time.Now().UTC(),
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("%w: publish to %s: %v", auctionerrors.ErrDelivery, m.cfg.Exchange, err)
	}

	acked, err := dc.WaitContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: confirm from %s: %v", auctionerrors.ErrDelivery, m.cfg.Exchange, err)
	}
	if !acked {
		return fmt.Errorf("%w: broker rejected message to %s", auctionerrors.ErrDelivery, msg.To)
	}
	return nil
}

// Close shuts the channel and connection
func (m *AMQPMailer) Close() error {
	if err := m.channel.Close(); err != nil {
		_ = m.conn.Close()
		return err
	}
	return m.conn.Close()
}

func encodeEnvelope(from string, msg Message, at time.Time) ([]byte, error) {
	return json.Marshal(envelope{
		From:    from,
		To:      msg.To,
		Subject: msg.Subject,
		Body:    msg.Body,
		SentAt:  at.UTC(),
	})
}

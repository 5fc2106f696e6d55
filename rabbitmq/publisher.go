// Package rabbitmq publishes resolution events for downstream
// consumers (notification service, dashboards). Publishing is
// post-commit and fire-and-forget: a broker outage never blocks or
// aborts a resolution.
package rabbitmq

import (
	"encoding/json"
	"fmt"
	"time"

	"ekokampus/events"

	"github.com/apex/log"
	"github.com/streadway/amqp"
)

type Publisher struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	exchange   string
	routingKey string
}

// NewPublisher connects, opens a channel and declares a durable direct
// exchange.
func NewPublisher(amqpURL, exchangeName, routingKey string) (*Publisher, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = channel.ExchangeDeclare(
		exchangeName, // name
		"direct",     // type
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		channel.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange: %w", err)
	}

	return &Publisher{
		conn:       conn,
		channel:    channel,
		exchange:   exchangeName,
		routingKey: routingKey,
	}, nil
}

// resolvedMessage is the wire form consumed by the notification
// service.
type resolvedMessage struct {
	ReportID    string    `json:"report_id"`
	BinID       string    `json:"bin_id"`
	SubmitterID string    `json:"submitter_id,omitempty"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Resolution  string    `json:"resolution"`
	FillDelta   string    `json:"fill_delta"`
	VoteCount   int       `json:"vote_count"`
	ResolvedAt  time.Time `json:"resolved_at"`
}

// PublishResolved sends one resolution event. Failures are logged and
// swallowed.
func (p *Publisher) PublishResolved(ev *events.ReportResolved) {
	msg := resolvedMessage{
		ReportID:    ev.ReportID,
		BinID:       ev.BinID,
		SubmitterID: ev.SubmitterID,
		Category:    string(ev.Category),
		Status:      string(ev.Status),
		Resolution:  string(ev.Resolution),
		FillDelta:   ev.FillDelta.String(),
		VoteCount:   len(ev.Votes),
		ResolvedAt:  time.Now().UTC(),
	}
	body, err := json.Marshal(msg)
	if err != nil {
		log.Errorf("rabbitmq: marshal resolved event: %v", err)
		return
	}

	err = p.channel.Publish(
		p.exchange,
		p.routingKey,
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		},
	)
	if err != nil {
		log.Errorf("rabbitmq: publish resolved event for %s: %v", ev.ReportID, err)
	}
}

// Close shuts down the channel and connection.
func (p *Publisher) Close() {
	if p.channel != nil {
		p.channel.Close()
	}
	if p.conn != nil {
		p.conn.Close()
	}
}

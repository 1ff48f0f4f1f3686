package lib

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"

	amqp "github.com/rabbitmq/amqp091-go"
)

// EventPublisher fans domain events out to a topic exchange. One connection
// and channel are held for the process lifetime.
type EventPublisher struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
}

var eventPublisher *EventPublisher

func GetEventPublisher() (*EventPublisher, error) {
	if eventPublisher != nil {
		return eventPublisher, nil
	}
	url := os.Getenv("RABBITMQ_URL")
	exchange := os.Getenv("RABBITMQ_EXCHANGE")
	if exchange == "" {
		exchange = "cwms.events"
	}
	pub, err := NewEventPublisher(url, exchange)
	if err != nil {
		return nil, err
	}
	eventPublisher = pub
	return pub, nil
}

// NewDefaultEventPublisher Replace publisher instance with custom implementation
func NewDefaultEventPublisher(p *EventPublisher) *EventPublisher {
	eventPublisher = p
	return eventPublisher
}

func NewEventPublisher(url, exchange string) (*EventPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &EventPublisher{conn: conn, ch: ch, exchange: exchange}, nil
}

func (p *EventPublisher) Publish(routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	return p.ch.PublishWithContext(context.Background(), p.exchange, routingKey, false, false, amqp.Publishing{
		ContentType: "application/json",
		Body:        body,
	})
}

func (p *EventPublisher) Close() error {
	if p.ch != nil {
		if err := p.ch.Close(); err != nil {
			log.Printf("[rabbitmq] Error closing channel: %s\n", err.Error())
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

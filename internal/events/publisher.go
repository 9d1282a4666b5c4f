package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/nikolayk812/cart-service/internal/correlation"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/port"
	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	EventsExchange           = "ecommerce.events"
	CartCheckedOutRoutingKey = "cart.checkedout.v1"
	Producer                 = "cart-service"

	publishTimeout = 3 * time.Second
)

func Dial(url string) (*amqp.Connection, error) {
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial: amqp.DefaultDial(10 * time.Second),
	})
	if err != nil {
		return nil, fmt.Errorf("amqp.DialConfig: %w", err)
	}

	return conn, nil
}

func declareEventsExchange(ch *amqp.Channel) error {
	return ch.ExchangeDeclare(
		EventsExchange,
		"topic",
		true,
		false,
		false,
		false,
		nil,
	)
}

// Publisher emits cart events to the topic exchange. A channel is not safe
// for concurrent publishing, so publishes are serialized.
type Publisher struct {
	mu  sync.Mutex
	ch  *amqp.Channel
	log *slog.Logger
	now func() time.Time
}

func NewPublisher(conn *amqp.Connection, log *slog.Logger) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare %s: %w", EventsExchange, err)
	}

	return &Publisher{ch: ch, log: log, now: time.Now}, nil
}

var _ port.CheckoutPublisher = (*Publisher)(nil)

func (p *Publisher) PublishCartCheckedOut(ctx context.Context, cart domain.PricedCart) error {
	if err := cart.Cart.Owner.Validate(); err != nil {
		return fmt.Errorf("%s owner: %w", CartCheckedOutEventName, err)
	}

	event := NewCartCheckedOut(cart, correlation.FromContext(ctx), p.now())
	if err := event.Validate(CartCheckedOutEventName, CartCheckedOutEventVersion); err != nil {
		return fmt.Errorf("validate %s: %w", CartCheckedOutEventName, err)
	}

	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", CartCheckedOutEventName, err)
	}

	if err := p.publishJSON(ctx, CartCheckedOutRoutingKey, event.EventID, event.CorrelationID, body); err != nil {
		return fmt.Errorf("publish %s: %w", CartCheckedOutEventName, err)
	}

	p.log.InfoContext(ctx, "event published",
		slog.String("event", CartCheckedOutEventName),
		slog.String("event_id", event.EventID),
		slog.String("partition_key", event.PartitionKey))

	return nil
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey, messageID, correlationID string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:   "application/json",
			DeliveryMode:  amqp.Persistent,
			MessageId:     messageID,
			CorrelationId: correlationID,
			Timestamp:     p.now().UTC(),
			AppId:         Producer,
			Body:          body,
		},
	)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	return p.ch.Close()
}

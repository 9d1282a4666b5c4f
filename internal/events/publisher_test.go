package events_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/nikolayk812/cart-service/internal/correlation"
	"github.com/nikolayk812/cart-service/internal/domain"
	"github.com/nikolayk812/cart-service/internal/events"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startRabbitMQ(t *testing.T) *amqp.Connection {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	t.Cleanup(cancel)

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-alpine",
			ExposedPorts: []string{"5672/tcp"},
			WaitingFor:   wait.ForListeningPort("5672/tcp").WithStartupTimeout(90 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "5672")
	require.NoError(t, err)

	conn, err := events.Dial("amqp://" + host + ":" + mappedPort.Port() + "/")
	require.NoError(t, err)

	t.Cleanup(func() {
		cleanupCtx, cleanupCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cleanupCancel()

		_ = conn.Close()
		_ = container.Terminate(cleanupCtx)
	})

	return conn
}

func TestPublisher_PublishCartCheckedOut(t *testing.T) {
	conn := startRabbitMQ(t)

	publisher, err := events.NewPublisher(conn, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.CartCheckedOutRoutingKey, events.EventsExchange, false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	cart := pricedCart(t, domain.UserIdentity("u-7"))
	ctx := correlation.WithID(t.Context(), "corr-xyz")

	require.NoError(t, publisher.PublishCartCheckedOut(ctx, cart))

	select {
	case d := <-deliveries:
		assert.Equal(t, "application/json", d.ContentType)
		assert.Equal(t, uint8(amqp.Persistent), d.DeliveryMode)
		assert.Equal(t, "corr-xyz", d.CorrelationId)
		assert.Equal(t, events.Producer, d.AppId)

		var got events.CartCheckedOutEnvelope
		require.NoError(t, json.Unmarshal(d.Body, &got))
		require.NoError(t, got.Validate(events.CartCheckedOutEventName, events.CartCheckedOutEventVersion))
		assert.Equal(t, d.MessageId, got.EventID)
		assert.Equal(t, "corr-xyz", got.CorrelationID)
		assert.Equal(t, "user:u-7", got.PartitionKey)
		assert.Len(t, got.Payload.Items, len(cart.Cart.Items))
		assert.True(t, cart.Totals.GrandTotal.Amount.Equal(got.Payload.TotalAmount))
	case <-time.After(10 * time.Second):
		t.Fatal("timed out waiting for CartCheckedOut")
	}
}

func TestPublisher_RejectsCartWithoutOwner(t *testing.T) {
	conn := startRabbitMQ(t)

	publisher, err := events.NewPublisher(conn, slog.Default())
	require.NoError(t, err)
	t.Cleanup(func() { _ = publisher.Close() })

	ch, err := conn.Channel()
	require.NoError(t, err)
	t.Cleanup(func() { _ = ch.Close() })

	q, err := ch.QueueDeclare("", false, true, true, false, nil)
	require.NoError(t, err)
	require.NoError(t, ch.QueueBind(q.Name, events.CartCheckedOutRoutingKey, events.EventsExchange, false, nil))

	deliveries, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	require.NoError(t, err)

	err = publisher.PublishCartCheckedOut(t.Context(), pricedCart(t, domain.Identity{}))
	require.ErrorIs(t, err, domain.ErrInvalidIdentity)

	select {
	case d := <-deliveries:
		t.Fatalf("unexpected delivery %s", d.MessageId)
	case <-time.After(500 * time.Millisecond):
	}
}

func TestPublisher_ClosedChannel(t *testing.T) {
	conn := startRabbitMQ(t)

	publisher, err := events.NewPublisher(conn, slog.Default())
	require.NoError(t, err)
	require.NoError(t, publisher.Close())

	err = publisher.PublishCartCheckedOut(t.Context(), pricedCart(t, domain.SessionIdentity("s")))
	require.Error(t, err)
}

package rabbitmq

import (
	"context"
	"fmt"
	"sync"

	"github.com/YelzhanWeb/comanda/internal/config"

	amqp "github.com/rabbitmq/amqp091-go"
)

// NotificationsExchange carries venue events from every api instance to every
// other one and to notification subscribers.
const NotificationsExchange = "notifications_fanout"

// Connection is a broker connection that can be dialed again after the broker
// drops it.
type Connection interface {
	Channel() (Channel, error)
	Reconnect() error
	Close() error
	IsClosed() bool
}

// Channel is the part of an AMQP channel the event fan-out needs.
type Channel interface {
	DeclareFanout(exchange string) error
	// BindPrivateQueue declares a server-named exclusive queue bound to
	// exchange and returns its name. The queue goes away with the channel.
	BindPrivateQueue(exchange string) (string, error)
	Publish(ctx context.Context, exchange string, msg amqp.Publishing) error
	Consume(queue string) (<-chan amqp.Delivery, error)
	NotifyClose() <-chan *amqp.Error
	Close() error
}

type amqpConnection struct {
	mu     sync.RWMutex
	conn   *amqp.Connection
	url    string
	closed bool
}

func URL(cfg config.RabbitMQConfig) string {
	return fmt.Sprintf("amqp://%s:%s@%s:%d/", cfg.User, cfg.Password, cfg.Host, cfg.Port)
}

func Connect(cfg config.RabbitMQConfig) (Connection, error) {
	url := URL(cfg)

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return &amqpConnection{conn: conn, url: url}, nil
}

func (c *amqpConnection) Channel() (Channel, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.closed {
		return nil, fmt.Errorf("connection is closed")
	}
	ch, err := c.conn.Channel()
	if err != nil {
		return nil, err
	}
	return &fanoutChannel{ch: ch}, nil
}

// Reconnect dials again when the broker dropped the connection. It is a no-op
// while the current connection is alive.
func (c *amqpConnection) Reconnect() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return fmt.Errorf("connection permanently closed")
	}
	if c.conn != nil && !c.conn.IsClosed() {
		return nil
	}

	conn, err := amqp.Dial(c.url)
	if err != nil {
		return fmt.Errorf("failed to reconnect to RabbitMQ: %w", err)
	}
	c.conn = conn
	return nil
}

func (c *amqpConnection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.closed = true
	if c.conn != nil && !c.conn.IsClosed() {
		return c.conn.Close()
	}
	return nil
}

func (c *amqpConnection) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed || c.conn.IsClosed()
}

type fanoutChannel struct {
	ch *amqp.Channel
}

func (c *fanoutChannel) DeclareFanout(exchange string) error {
	return c.ch.ExchangeDeclare(exchange, amqp.ExchangeFanout, true, false, false, false, nil)
}

func (c *fanoutChannel) BindPrivateQueue(exchange string) (string, error) {
	q, err := c.ch.QueueDeclare("", false, true, true, false, nil)
	if err != nil {
		return "", fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := c.ch.QueueBind(q.Name, "", exchange, false, nil); err != nil {
		return "", fmt.Errorf("failed to bind queue: %w", err)
	}
	return q.Name, nil
}

// Publish ignores routing keys; fanout exchanges do not use them.
func (c *fanoutChannel) Publish(ctx context.Context, exchange string, msg amqp.Publishing) error {
	return c.ch.PublishWithContext(ctx, exchange, "", false, false, msg)
}

// Consume auto-acknowledges: venue events are delivered at most once.
func (c *fanoutChannel) Consume(queue string) (<-chan amqp.Delivery, error) {
	return c.ch.Consume(queue, "", true, true, false, false, nil)
}

func (c *fanoutChannel) NotifyClose() <-chan *amqp.Error {
	return c.ch.NotifyClose(make(chan *amqp.Error, 1))
}

func (c *fanoutChannel) Close() error {
	return c.ch.Close()
}

package rabbitmq

import (
	"context"
	"fmt"
	"time"

	"github.com/YelzhanWeb/comanda/internal/adapter/logger"
	"github.com/YelzhanWeb/comanda/internal/interfaces"
)

type consumer struct {
	conn           Connection
	logger         logger.Logger
	reconnectDelay time.Duration
}

func NewConsumer(conn Connection, logger logger.Logger, reconnectDelay time.Duration) interfaces.MessageConsumer {
	return &consumer{conn: conn, logger: logger, reconnectDelay: reconnectDelay}
}

// ConsumeEvents binds a private queue to the notifications exchange and feeds
// every message to handler until ctx is canceled. Lost channels and
// connections are retried after reconnectDelay.
func (c *consumer) ConsumeEvents(ctx context.Context, handler interfaces.EventMessageHandler) error {
	for {
		err := c.consume(ctx, handler)

		// Если контекст отменен - выходим
		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Error("consumer_disconnected",
			fmt.Sprintf("Events consumer disconnected, reconnecting in %s", c.reconnectDelay), "", nil, err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.reconnectDelay):
		}

		if c.conn.IsClosed() {
			if err := c.conn.Reconnect(); err != nil {
				c.logger.Error("rabbitmq_reconnect_failed", "Failed to reconnect to RabbitMQ", "", nil, err)
			}
		}
	}
}

func (c *consumer) consume(ctx context.Context, handler interfaces.EventMessageHandler) error {
	ch, err := c.conn.Channel()
	if err != nil {
		return fmt.Errorf("failed to open channel: %w", err)
	}
	defer ch.Close()

	// Отслеживаем закрытие канала
	closeChan := ch.NotifyClose()

	if err := ch.DeclareFanout(NotificationsExchange); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	// Временная эксклюзивная очередь на каждый экземпляр
	queue, err := ch.BindPrivateQueue(NotificationsExchange)
	if err != nil {
		return err
	}

	msgs, err := ch.Consume(queue)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	c.logger.Info("consumer_started", "Consuming venue events", "", map[string]interface{}{"queue": queue})

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case err := <-closeChan:
			if err != nil {
				return fmt.Errorf("channel closed: %w", err)
			}
			return fmt.Errorf("channel closed gracefully")

		case msg, ok := <-msgs:
			if !ok {
				return fmt.Errorf("messages channel closed")
			}

			// Уведомления at-most-once: ошибки обработки не повторяются
			if err := handler(ctx, msg.Body); err != nil {
				c.logger.Debug("event_handler_failed", err.Error(), "", nil)
			}
		}
	}
}

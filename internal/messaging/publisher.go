package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const publishTimeout = 10 * time.Second

// SessionUpdatePublisher публикует событие завершения хода.
//
//go:generate mockery --name SessionUpdatePublisher --output ./mocks --outpkg mocks --case=underscore
type SessionUpdatePublisher interface {
	PublishTurnCompleted(ctx context.Context, payload TurnCompletedPayload) error
}

// ElectionResultPublisher публикует итоги выборов провинции.
//
//go:generate mockery --name ElectionResultPublisher --output ./mocks --outpkg mocks --case=underscore
type ElectionResultPublisher interface {
	PublishElectionCompleted(ctx context.Context, payload ElectionCompletedPayload) error
}

// NewsEventPublisher публикует новостные события для клиентских нотификаций.
//
//go:generate mockery --name NewsEventPublisher --output ./mocks --outpkg mocks --case=underscore
type NewsEventPublisher interface {
	PublishNewsEvent(ctx context.Context, payload NewsEventPayload) error
}

// rabbitMQPublisher implements SessionUpdatePublisher and ElectionResultPublisher for RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
	logger    *zap.Logger
}

// NewRabbitMQSessionUpdatePublisher открывает канал и объявляет очередь
// обновлений сессии. Паблишер объявляет очередь сам, чтобы не зависеть от
// порядка запуска сервисов; параметры должны совпадать с консьюмером.
func NewRabbitMQSessionUpdatePublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (SessionUpdatePublisher, error) {
	p, err := newRabbitMQPublisher(conn, queueName, logger.Named("SessionUpdatePublisher"))
	if err != nil {
		return nil, fmt.Errorf("session update publisher: %w", err)
	}
	return p, nil
}

// NewRabbitMQElectionResultPublisher открывает канал и объявляет очередь
// результатов выборов.
func NewRabbitMQElectionResultPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (ElectionResultPublisher, error) {
	p, err := newRabbitMQPublisher(conn, queueName, logger.Named("ElectionResultPublisher"))
	if err != nil {
		return nil, fmt.Errorf("election result publisher: %w", err)
	}
	return p, nil
}

// NewRabbitMQNewsEventPublisher открывает канал и объявляет очередь
// новостных событий.
func NewRabbitMQNewsEventPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (NewsEventPublisher, error) {
	p, err := newRabbitMQPublisher(conn, queueName, logger.Named("NewsEventPublisher"))
	if err != nil {
		return nil, fmt.Errorf("news event publisher: %w", err)
	}
	return p, nil
}

func newRabbitMQPublisher(conn *amqp.Connection, queueName string, logger *zap.Logger) (*rabbitMQPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("не удалось открыть канал: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		ch.Close()
		return nil, fmt.Errorf("не удалось объявить очередь '%s': %w", queueName, err)
	}
	logger.Info("Queue declared", zap.String("queue", queueName))
	return &rabbitMQPublisher{channel: ch, queueName: queueName, logger: logger}, nil
}

func (p *rabbitMQPublisher) PublishTurnCompleted(ctx context.Context, payload TurnCompletedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации TurnCompletedPayload: %w", err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		return fmt.Errorf("ошибка публикации TurnCompleted для сессии %s: %w", payload.SessionID, err)
	}
	return nil
}

func (p *rabbitMQPublisher) PublishElectionCompleted(ctx context.Context, payload ElectionCompletedPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации ElectionCompletedPayload: %w", err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		return fmt.Errorf("ошибка публикации ElectionCompleted для провинции %s: %w", payload.ProvinceID, err)
	}
	return nil
}

func (p *rabbitMQPublisher) PublishNewsEvent(ctx context.Context, payload NewsEventPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("ошибка сериализации NewsEventPayload: %w", err)
	}
	if err := p.publishMessage(ctx, body); err != nil {
		return fmt.Errorf("ошибка публикации NewsEvent для сессии %s: %w", payload.SessionID, err)
	}
	return nil
}

// publishMessage is a helper method for publishing a message.
func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		return errors.New("канал RabbitMQ не инициализирован")
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	var err error
	// Попытка публикации с retry до 3 раз
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (используем default)
			p.queueName, // routing key (имя очереди)
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "polsim-engine",
			},
		)
		if err == nil {
			return nil
		}
		p.logger.Warn("Publish attempt failed",
			zap.String("queue", p.queueName),
			zap.Int("attempt", attempt),
			zap.Error(err))
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	return fmt.Errorf("ошибка публикации в очередь %s после retries: %w", p.queueName, err)
}

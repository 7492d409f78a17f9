package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"

	"github.com/asquebay/order-stats-service/internal/model"

	"github.com/segmentio/kafka-go"
)

// CommandHandler — это интерфейс, который абстрагирует консьюмер
// от конкретной реализации сервисного слоя
type CommandHandler interface {
	InvalidateAll(ctx context.Context) ([]string, error)
	GetAllStats(ctx context.Context, bypassCache bool) (model.AggregateResult, error)
}

// Consumer читает операторские команды дашборда из Kafka
type Consumer struct {
	reader  *kafka.Reader
	service CommandHandler
	log     *slog.Logger
}

// NewConsumer создает новый экземпляр консьюмера
func NewConsumer(brokers []string, topic, groupID string, service CommandHandler, log *slog.Logger) *Consumer {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: brokers,
		GroupID: groupID,
		Topic:   topic,

		// команды, отправленные до первого запуска группы, устарели
		StartOffset: kafka.LastOffset,
	})

	return &Consumer{
		reader:  reader,
		service: service,
		log:     log,
	}
}

// Run запускает цикл чтения сообщений из Kafka
// эта функция блокирующая, поэтому она запускается в отдельной горутине
func (c *Consumer) Run(ctx context.Context) {
	log := c.log.With(slog.String("component", "kafka_consumer"))
	log.Info("Kafka consumer started", slog.String("topic", c.reader.Config().Topic))

	for {
		select {
		case <-ctx.Done():
			log.Info("Context cancelled, stopping consumer.")
			return
		default:
			// FetchMessage блокирует до тех пор, пока не придет новое сообщение или не возникнет ошибка
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				if errors.Is(err, io.EOF) {
					log.Info("Kafka reader closed")
					return
				}
				log.Error("failed to fetch message", slog.String("error", err.Error()))
				continue
			}

			log.Info("received message", slog.String("topic", msg.Topic), slog.Int("partition", msg.Partition), slog.Int64("offset", msg.Offset))

			if err := c.handleMessage(ctx, msg); err != nil {
				log.Error("failed to handle message", slog.String("error", err.Error()))
				// сообщение НЕ подтверждаем — пусть Kafka отдаст его снова
				continue
			}

			// offset фиксируем только после успешной обработки
			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				log.Error("failed to commit message", slog.String("error", err.Error()))
			}
		}
	}
}

// handleMessage парсит и выполняет одну команду
// nil означает, что сообщение можно подтвердить
func (c *Consumer) handleMessage(ctx context.Context, msg kafka.Message) error {
	var cmd model.Command

	if err := json.Unmarshal(msg.Value, &cmd); err != nil {
		c.log.Warn("failed to unmarshal command, skipping", slog.String("error", err.Error()))
		return nil // перечитывать это сообщение бессмысленно
	}

	if err := cmd.Validate(); err != nil {
		c.log.Warn("command validation failed, skipping",
			slog.String("error", err.Error()),
			slog.String("command", cmd.Command),
		)
		return nil
	}

	log := c.log.With(slog.String("command", cmd.Command), slog.String("requested_by", cmd.RequestedBy))

	switch cmd.Command {
	case model.CommandInvalidateAll:
		keys, err := c.service.InvalidateAll(ctx)
		if err != nil {
			log.Error("cache invalidation failed", slog.String("error", err.Error()))
			return err
		}
		log.Info("cache invalidated by command", slog.Int("keys", len(keys)))

	case model.CommandRefresh:
		res, err := c.service.GetAllStats(ctx, true)
		if err != nil {
			log.Error("dashboard refresh failed", slog.String("error", err.Error()))
			return err
		}
		log.Info("dashboard refreshed by command", slog.Int("metrics", len(res.Metrics)))
	}

	return nil
}

// Close — graceful shutdown консьюмера
func (c *Consumer) Close() error {
	c.log.Info("Closing kafka consumer")
	return c.reader.Close()
}

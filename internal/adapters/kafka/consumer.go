// Package kafka consumes domain events published by the services that own posts,
// follows and messages, and parks the records it cannot use.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"notify-service/internal/config"
	"notify-service/internal/models"
	"notify-service/internal/services"

	kafkago "github.com/segmentio/kafka-go"
)

const fetchRetryDelay = time.Second

// EventHandler is satisfied by services.EventService.
type EventHandler interface {
	Handle(ctx context.Context, ev *models.DomainEvent) (services.EventResult, error)
}

// reader is the part of *kafkago.Reader the consumer uses.
type reader interface {
	FetchMessage(ctx context.Context) (kafkago.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

type Consumer struct {
	reader     reader
	handler    EventHandler
	deadLetter DeadLetterPublisher
	logger     *slog.Logger
}

// NewConsumer joins cfg.GroupID on cfg.Topic. deadLetter may be nil, in which case
// rejected records are only logged.
func NewConsumer(cfg config.KafkaConfig, handler EventHandler, deadLetter DeadLetterPublisher, logger *slog.Logger) *Consumer {
	r := kafkago.NewReader(kafkago.ReaderConfig{
		Brokers:        cfg.Brokers,
		Topic:          cfg.Topic,
		GroupID:        cfg.GroupID,
		MinBytes:       1,
		MaxBytes:       10e6,
		MaxWait:        500 * time.Millisecond,
		CommitInterval: 0,
	})
	return newConsumer(r, handler, deadLetter, logger)
}

func newConsumer(r reader, handler EventHandler, deadLetter DeadLetterPublisher, logger *slog.Logger) *Consumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Consumer{reader: r, handler: handler, deadLetter: deadLetter, logger: logger}
}

// Run consumes until ctx is cancelled. Each record is committed once it has been handled
// or dead-lettered, so a poison record never blocks the partition.
func (c *Consumer) Run(ctx context.Context) error {
	c.logger.Info("Kafka consumer started")
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.logger.Info("Kafka consumer stopped")
				return nil
			}
			c.logger.Error("Failed to fetch message", "error", err)
			select {
			case <-time.After(fetchRetryDelay):
				continue
			case <-ctx.Done():
				return nil
			}
		}

		c.process(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			c.logger.Error("Failed to commit message", "partition", msg.Partition, "offset", msg.Offset, "error", err)
		}
	}
}

func (c *Consumer) process(ctx context.Context, msg kafkago.Message) {
	var ev models.DomainEvent
	if err := json.Unmarshal(msg.Value, &ev); err != nil {
		c.reject(ctx, msg, fmt.Sprintf("undecodable event: %v", err))
		return
	}

	if _, err := c.handler.Handle(ctx, &ev); err != nil {
		if errors.Is(err, services.ErrInvalidEvent) {
			c.reject(ctx, msg, err.Error())
			return
		}
		c.logger.Error("Failed to handle event", "type", ev.Type, "offset", msg.Offset, "error", err)
	}
}

func (c *Consumer) reject(ctx context.Context, msg kafkago.Message, reason string) {
	c.logger.Warn("Rejecting event", "partition", msg.Partition, "offset", msg.Offset, "reason", reason)
	if c.deadLetter == nil {
		return
	}
	if err := c.deadLetter.Publish(ctx, msg, reason); err != nil {
		c.logger.Error("Failed to dead-letter event", "offset", msg.Offset, "error", err)
	}
}

func (c *Consumer) Close() error {
	return c.reader.Close()
}

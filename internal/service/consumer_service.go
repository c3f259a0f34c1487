package service

import (
	"context"
	"encoding/json"

	"marketplace-assistant-be/internal/dto"
	"marketplace-assistant-be/internal/pkg/logger"
	"marketplace-assistant-be/pkg/catalog"

	"github.com/ThreeDotsLabs/watermill/message"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

type consumerService struct {
	subscriber    message.Subscriber
	topicName     string
	ingestService IIngestService
	logger        logger.ILogger
}

func NewConsumerService(
	subscriber message.Subscriber,
	topicName string,
	ingestService IIngestService,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		subscriber:    subscriber,
		topicName:     topicName,
		ingestService: ingestService,
		logger:        logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.subscriber.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.IndexProductMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("CONSUMER", "Failed to unmarshal message", map[string]interface{}{
			"message_id": msg.UUID,
			"error":      err,
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	product := catalog.Product{
		Category: payload.Category,
		Name:     payload.Name,
		Price:    payload.Price,
		Line:     payload.Line,
		Source:   payload.Source,
		Raw:      payload.Raw,
	}
	if err := cs.ingestService.IndexOne(ctx, product); err != nil {
		cs.logger.Error("CONSUMER", "Failed to index product", map[string]interface{}{
			"source": payload.Source,
			"line":   payload.Line,
			"error":  err,
		})
		msg.Nack()
		return
	}

	cs.logger.Debug("CONSUMER", "Product indexed", map[string]interface{}{
		"source": payload.Source,
		"line":   payload.Line,
	})
	msg.Ack()
}

package service

import (
	"context"
	"encoding/json"

	"askdocs-be/internal/dto"
	"askdocs-be/internal/pkg/logger"
	"askdocs-be/internal/repository/unitofwork"
	"askdocs-be/pkg/index/master"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService runs master index reconciliation out-of-band. Activation
// transitions already apply their own add/remove synchronously; this pass
// catches drift from swallowed failures.
type consumerService struct {
	pubSub        *gochannel.GoChannel
	topicName     string
	uowFactory    unitofwork.RepositoryFactory
	masterManager *master.Manager
	logger        logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	uowFactory unitofwork.RepositoryFactory,
	masterManager *master.Manager,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:        pubSub,
		topicName:     topicName,
		uowFactory:    uowFactory,
		masterManager: masterManager,
		logger:        log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
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
	var payload dto.PublishMasterSyncMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("sync-consumer", "Failed to unmarshal sync message", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // invalid payloads never become valid; do not retry
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	fileIds, err := activeFileIds(ctx, uow)
	if err != nil {
		cs.logger.Error("sync-consumer", "Failed to load active documents", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Nack()
		return
	}

	result, err := cs.masterManager.Sync(ctx, fileIds)
	if err != nil {
		cs.logger.Error("sync-consumer", "Master sync failed", map[string]interface{}{
			"reason": payload.Reason, "error": err.Error(),
		})
		msg.Nack()
		return
	}

	cs.logger.Info("sync-consumer", "Master sync completed", map[string]interface{}{
		"reason": payload.Reason, "added": result.Added,
		"removed": result.Removed, "failed": result.Failed,
	})
	msg.Ack()
}

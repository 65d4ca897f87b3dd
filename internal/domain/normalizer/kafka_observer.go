package normalizer

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/model"
	"github.com/questx-lab/swapd/pkg/pubsub"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

// KafkaObserver publishes the public stream. Messages are keyed by swap id, so
// the updates of a swap keep their order.
type KafkaObserver struct {
	publisher pubsub.Publisher
}

func NewKafkaObserver(publisher pubsub.Publisher) *KafkaObserver {
	return &KafkaObserver{publisher: publisher}
}

func (o *KafkaObserver) SwapUpdate(ctx context.Context, id string, update *model.SwapUpdate) {
	o.publish(ctx, model.SwapUpdateTopic, id, model.SwapUpdateMessage{
		MessageID: uuid.NewString(),
		SwapID:    id,
		Update:    *update,
		Timestamp: time.Now(),
	})
}

func (o *KafkaObserver) SwapSuccess(
	ctx context.Context, record entity.SwapRecord, isReverse bool, channelCreation *entity.ChannelCreation,
) {
	msg := model.SwapOutcomeMessage{
		MessageID: uuid.NewString(),
		SwapID:    record.GetID(),
		IsReverse: isReverse,
		Status:    string(record.GetStatus()),
		Timestamp: time.Now(),
	}

	if channelCreation != nil {
		msg.ChannelCreation = channelInfo(channelCreation)
	}

	o.publish(ctx, model.SwapSuccessTopic, record.GetID(), msg)
}

func (o *KafkaObserver) SwapFailure(ctx context.Context, record entity.SwapRecord, isReverse bool, reason string) {
	o.publish(ctx, model.SwapFailureTopic, record.GetID(), model.SwapOutcomeMessage{
		MessageID: uuid.NewString(),
		SwapID:    record.GetID(),
		IsReverse: isReverse,
		Status:    string(record.GetStatus()),
		Reason:    reason,
		Timestamp: time.Now(),
	})
}

func (o *KafkaObserver) ChannelBackup(ctx context.Context, currency, backup string) {
	o.publish(ctx, model.ChannelBackupTopic, currency, model.ChannelBackupMessage{
		MessageID: uuid.NewString(),
		Currency:  currency,
		Backup:    backup,
		Timestamp: time.Now(),
	})
}

func (o *KafkaObserver) publish(ctx context.Context, topic, key string, msg any) {
	b, err := json.Marshal(msg)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Unable to marshal %s message: %v", topic, err)
		return
	}

	if err := o.publisher.Publish(ctx, topic, &pubsub.Pack{Key: []byte(key), Msg: b}); err != nil {
		xcontext.Logger(ctx).Errorf("Unable to publish %s message of %s: %v", topic, key, err)
	}
}

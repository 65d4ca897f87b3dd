package normalizer

import (
	"context"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/model"
)

// Observer receives the public stream of the normalizer. Callbacks may be
// invoked concurrently.
type Observer interface {
	SwapUpdate(ctx context.Context, id string, update *model.SwapUpdate)

	// SwapSuccess and SwapFailure are called once per terminal outcome of a
	// swap.
	SwapSuccess(ctx context.Context, record entity.SwapRecord, isReverse bool, channelCreation *entity.ChannelCreation)
	SwapFailure(ctx context.Context, record entity.SwapRecord, isReverse bool, reason string)

	ChannelBackup(ctx context.Context, currency, backup string)
}

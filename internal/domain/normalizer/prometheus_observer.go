package normalizer

import (
	"context"

	"github.com/questx-lab/swapd/internal/common"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/model"
)

// PrometheusObserver counts the terminal outcomes of swaps.
type PrometheusObserver struct{}

func NewPrometheusObserver() *PrometheusObserver {
	return &PrometheusObserver{}
}

func (o *PrometheusObserver) SwapUpdate(context.Context, string, *model.SwapUpdate) {}

func (o *PrometheusObserver) SwapSuccess(
	ctx context.Context, record entity.SwapRecord, isReverse bool, channelCreation *entity.ChannelCreation,
) {
	common.PromCounters[common.SwapOutcomesTotal].WithLabelValues("success", common.SwapKind(isReverse)).Inc()
}

func (o *PrometheusObserver) SwapFailure(ctx context.Context, record entity.SwapRecord, isReverse bool, reason string) {
	common.PromCounters[common.SwapOutcomesTotal].WithLabelValues("failure", common.SwapKind(isReverse)).Inc()
}

func (o *PrometheusObserver) ChannelBackup(context.Context, string, string) {}

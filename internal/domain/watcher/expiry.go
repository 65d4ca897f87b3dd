package watcher

import (
	"context"
	"time"

	"github.com/questx-lab/swapd/internal/common"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"golang.org/x/sync/errgroup"
)

// handleBlock expires the swaps and reverse swaps whose timeout is reached at
// height. The height is missed if either query fails.
func (w *ChainWatcher) handleBlock(ctx context.Context, height int64) {
	start := time.Now()

	var swaps []entity.Swap
	var reverseSwaps []entity.ReverseSwap

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		swaps, err = w.swapRepo.GetExpirable(gctx, height)
		return err
	})
	g.Go(func() error {
		var err error
		reverseSwaps, err = w.reverseSwapRepo.GetExpirable(gctx, height)
		return err
	})

	if err := g.Wait(); err != nil {
		xcontext.Logger(ctx).Errorf("Missed block height %d of chain %s: %v", height, w.Chain(), err)
		common.PromCounters[common.MissedBlockHeightsTotal].WithLabelValues(w.Chain()).Inc()
		return
	}

	for i := range swaps {
		w.expireSwap(ctx, &swaps[i])
	}

	for i := range reverseSwaps {
		w.expireReverseSwap(ctx, &reverseSwaps[i])
	}

	common.PromGauges[common.LatestBlockHeight].WithLabelValues(w.Chain()).Set(float64(height))
	common.PromHistograms[common.BlockProcessingDurationSec].
		WithLabelValues(w.Chain()).Observe(time.Since(start).Seconds())
}

func (w *ChainWatcher) expireSwap(ctx context.Context, swap *entity.Swap) {
	if _, ok := w.walletOf(ctx, swap); !ok {
		return
	}

	ok, err := w.swapRepo.SetFailed(ctx, swap, entity.SwapExpired, OnchainHTLCTimedOut().Error())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot expire swap %s: %v", swap.ID, err)
		return
	}

	if !ok {
		return
	}

	xcontext.Logger(ctx).Infof("Swap %s expired at height %d", swap.ID, swap.TimeoutBlockHeight)
	common.PromCounters[common.ExpiredSwapsTotal].WithLabelValues(w.Chain(), common.SwapKind(false)).Inc()
	w.emit(ctx, &swapevent.SwapExpired{Swap: swap})
}

func (w *ChainWatcher) expireReverseSwap(ctx context.Context, reverseSwap *entity.ReverseSwap) {
	if _, ok := w.walletOf(ctx, reverseSwap); !ok {
		return
	}

	ok, err := w.reverseSwapRepo.SetFailed(ctx, reverseSwap, entity.SwapExpired, OnchainHTLCTimedOut().Error())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot expire reverse swap %s: %v", reverseSwap.ID, err)
		return
	}

	if !ok {
		return
	}

	xcontext.Logger(ctx).Infof("Reverse swap %s expired at height %d", reverseSwap.ID, reverseSwap.TimeoutBlockHeight)
	common.PromCounters[common.ExpiredSwapsTotal].WithLabelValues(w.Chain(), common.SwapKind(true)).Inc()
	w.emit(ctx, &swapevent.ReverseSwapExpired{ReverseSwap: reverseSwap})
}

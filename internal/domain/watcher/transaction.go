package watcher

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/questx-lab/swapd/internal/common"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"gorm.io/gorm"
)

// CheckTransaction resolves our pending lockup of a reverse swap with the
// fetched transaction. It is shared by the reconciliation, its retries and
// the tracked transactions of the provider.
func (w *ChainWatcher) CheckTransaction(
	ctx context.Context, reverseSwap *entity.ReverseSwap, tx *types.Transaction,
) {
	if tx.Failed {
		reason := TransactionFailed(tx.FailureReason).Error()
		ok, err := w.reverseSwapRepo.SetFailed(ctx, reverseSwap, entity.TransactionFailed, reason)
		if err != nil {
			xcontext.Logger(ctx).Errorf("Cannot fail lockup of reverse swap %s: %v", reverseSwap.ID, err)
			return
		}

		if !ok {
			return
		}

		xcontext.Logger(ctx).Warnf("Lockup %s of reverse swap %s failed: %s", tx.Hash, reverseSwap.ID, reason)
		w.emit(ctx, &swapevent.LockupFailedToSend{ReverseSwap: reverseSwap, Reason: reason})
		return
	}

	ok, err := w.reverseSwapRepo.SetStatus(ctx, reverseSwap, entity.TransactionConfirmed)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot confirm lockup of reverse swap %s: %v", reverseSwap.ID, err)
		return
	}

	if !ok {
		return
	}

	xcontext.Logger(ctx).Infof("Lockup %s of reverse swap %s confirmed", tx.Hash, reverseSwap.ID)
	w.emit(ctx, &swapevent.LockupConfirmed{ReverseSwap: reverseSwap, Transaction: tx})
}

func (w *ChainWatcher) handleTrackedTransaction(ctx context.Context, tx *types.Transaction) {
	reverseSwap, err := w.reverseSwapRepo.GetByTransactionID(ctx, tx.Hash, entity.TransactionMempool)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get reverse swap of tx %s: %v", tx.Hash, err)
		}
		return
	}

	w.CheckTransaction(ctx, reverseSwap, tx)
}

func (w *ChainWatcher) handleRetriedTransaction(ctx context.Context, result *fetchResult) {
	reverseSwap, err := w.reverseSwapRepo.GetByID(ctx, result.reverseSwapID)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get reverse swap %s: %v", result.reverseSwapID, err)
		return
	}

	// Resolved in the meantime by a live event.
	if reverseSwap.Status != entity.TransactionMempool {
		return
	}

	w.CheckTransaction(ctx, reverseSwap, result.transaction)
}

// scheduleRetry fetches the lockup of a reverse swap with exponential backoff
// and hands the result to the watcher loop.
func (w *ChainWatcher) scheduleRetry(ctx context.Context, reverseSwap *entity.ReverseSwap) {
	id, txID := reverseSwap.ID, reverseSwap.TransactionID

	go func() {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = time.Second
		b.MaxElapsedTime = w.reconcileMaxElapsedTime

		var tx *types.Transaction
		operation := func() error {
			var err error
			tx, err = w.fetchTransaction(ctx, txID)
			return err
		}

		notify := func(err error, next time.Duration) {
			common.PromCounters[common.ReconcileRetriesTotal].WithLabelValues(w.Chain()).Inc()
			xcontext.Logger(ctx).Warnf("Cannot fetch lockup %s of reverse swap %s, retry in %s: %v",
				txID, id, next, err)
		}

		if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
			xcontext.Logger(ctx).Errorf("Gave up fetching lockup %s of reverse swap %s: %v", txID, id, err)
			return
		}

		select {
		case w.retryCh <- &fetchResult{reverseSwapID: id, transaction: tx}:
		case <-ctx.Done():
		}
	}()
}

package watcher

import (
	"context"
	"time"

	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/internal/domain/blockchain"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/domain/wallet"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/repository"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

const fetchTimeout = 10 * time.Second

// ChainWatcher follows the swap contracts of one chain. It validates lockups
// and claims against the ledger, expires swaps and confirms our reverse swap
// lockups. Every ledger transition is written before its event is emitted.
type ChainWatcher struct {
	cfg      config.ChainConfig
	provider blockchain.Provider
	wallets  *wallet.Registry

	swapRepo        repository.SwapRepository
	reverseSwapRepo repository.ReverseSwapRepository

	reconcileMaxElapsedTime time.Duration

	eventCh chan swapevent.Event
	retryCh chan *fetchResult
}

// fetchResult is a transaction fetched by a background retry.
type fetchResult struct {
	reverseSwapID string
	transaction   *types.Transaction
}

func NewChainWatcher(
	cfg config.ChainConfig,
	provider blockchain.Provider,
	wallets *wallet.Registry,
	swapRepo repository.SwapRepository,
	reverseSwapRepo repository.ReverseSwapRepository,
	bufferSize int,
	reconcileMaxElapsedTime time.Duration,
) *ChainWatcher {
	return &ChainWatcher{
		cfg:                     cfg,
		provider:                provider,
		wallets:                 wallets,
		swapRepo:                swapRepo,
		reverseSwapRepo:         reverseSwapRepo,
		reconcileMaxElapsedTime: reconcileMaxElapsedTime,
		eventCh:                 make(chan swapevent.Event, bufferSize),
		retryCh:                 make(chan *fetchResult),
	}
}

func (w *ChainWatcher) Chain() string {
	return w.cfg.Chain
}

func (w *ChainWatcher) Events() <-chan swapevent.Event {
	return w.eventCh
}

// Start reconciles the pending reverse swaps, then processes the streams of
// the provider until ctx is done.
func (w *ChainWatcher) Start(ctx context.Context) {
	go func() {
		w.Init(ctx)
		w.loop(ctx)
	}()
}

// Init resolves the reverse swaps whose lockup was broadcast but not seen
// confirmed yet. Transactions which cannot be fetched are retried in the
// background.
func (w *ChainWatcher) Init(ctx context.Context) {
	pending, err := w.reverseSwapRepo.GetByStatus(ctx, entity.TransactionMempool)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get pending reverse swaps of chain %s: %v", w.Chain(), err)
		return
	}

	for i := range pending {
		reverseSwap := &pending[i]
		if _, ok := w.walletOf(ctx, reverseSwap); !ok {
			continue
		}

		if reverseSwap.TransactionID == "" {
			xcontext.Logger(ctx).Errorf("Reverse swap %s is pending without lockup transaction", reverseSwap.ID)
			continue
		}

		xcontext.Logger(ctx).Infof("Checking pending lockup %s of reverse swap %s on chain %s",
			reverseSwap.TransactionID, reverseSwap.ID, w.Chain())

		tx, err := w.fetchTransaction(ctx, reverseSwap.TransactionID)
		if err != nil {
			xcontext.Logger(ctx).Warnf("Cannot fetch lockup %s of reverse swap %s: %v",
				reverseSwap.TransactionID, reverseSwap.ID, err)
			w.scheduleRetry(ctx, reverseSwap)
			continue
		}

		w.CheckTransaction(ctx, reverseSwap, tx)
	}
}

func (w *ChainWatcher) loop(ctx context.Context) {
	blocks := w.provider.SubscribeBlocks()
	logs := w.provider.SubscribeContractLogs()
	txs := w.provider.SubscribeTransactions()

	for {
		select {
		case <-ctx.Done():
			return

		case height := <-blocks:
			w.handleBlock(ctx, height)

		case log := <-logs:
			w.handleContractLog(ctx, log)

		case tx := <-txs:
			w.handleTrackedTransaction(ctx, tx)

		case result := <-w.retryCh:
			w.handleRetriedTransaction(ctx, result)
		}
	}
}

func (w *ChainWatcher) handleContractLog(ctx context.Context, log *types.ContractLog) {
	switch log.Kind {
	case types.EtherLockupLog, types.ERC20LockupLog:
		w.handleLockup(ctx, log)
	case types.ClaimLog:
		w.handleClaim(ctx, log)
	}
}

func (w *ChainWatcher) emit(ctx context.Context, event swapevent.Event) {
	xcontext.Logger(ctx).Debugf("Chain %s emits %s of swap %s", w.Chain(), event.Op(), event.SwapID())

	select {
	case w.eventCh <- event:
	case <-ctx.Done():
	}
}

// walletOf returns the wallet of the currency locked on chain by the record if
// it lives on the chain of this watcher.
func (w *ChainWatcher) walletOf(ctx context.Context, record interface {
	entity.SwapRecord
	ChainCurrency() (string, error)
}) (*wallet.Wallet, bool) {
	currency, err := record.ChainCurrency()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get chain currency of swap %s: %v", record.GetID(), err)
		return nil, false
	}

	chainWallet, ok := w.wallets.Get(currency)
	if !ok || !chainWallet.OnChain(w.Chain()) {
		return nil, false
	}

	return chainWallet, true
}

func (w *ChainWatcher) fetchTransaction(ctx context.Context, id string) (*types.Transaction, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	return w.provider.FetchTransaction(ctx, id)
}

package nursery

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"github.com/questx-lab/swapd/internal/domain/blockchain"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/domain/wallet"
	"github.com/questx-lab/swapd/internal/model"
	"github.com/questx-lab/swapd/internal/repository"
	"github.com/questx-lab/swapd/pkg/pubsub"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

// EventSource is a stream of watcher events, usually a chain watcher.
type EventSource interface {
	Chain() string
	Events() <-chan swapevent.Event
}

// SwapAggregator merges the events of all chain watchers and of the invoice
// layer into one stream of domain events.
type SwapAggregator struct {
	blockchainManager *blockchain.BlockchainManager
	wallets           *wallet.Registry
	publisher         pubsub.Publisher

	swapRepo            repository.SwapRepository
	reverseSwapRepo     repository.ReverseSwapRepository
	channelCreationRepo repository.ChannelCreationRepository

	sources []EventSource

	eventCh  chan swapevent.Event
	backupCh chan swapevent.ChannelBackup
}

func NewSwapAggregator(
	blockchainManager *blockchain.BlockchainManager,
	wallets *wallet.Registry,
	publisher pubsub.Publisher,
	swapRepo repository.SwapRepository,
	reverseSwapRepo repository.ReverseSwapRepository,
	channelCreationRepo repository.ChannelCreationRepository,
	bufferSize int,
) *SwapAggregator {
	return &SwapAggregator{
		blockchainManager:   blockchainManager,
		wallets:             wallets,
		publisher:           publisher,
		swapRepo:            swapRepo,
		reverseSwapRepo:     reverseSwapRepo,
		channelCreationRepo: channelCreationRepo,
		eventCh:             make(chan swapevent.Event, bufferSize),
		backupCh:            make(chan swapevent.ChannelBackup, bufferSize),
	}
}

// AddSource must be called before Start.
func (a *SwapAggregator) AddSource(source EventSource) {
	a.sources = append(a.sources, source)
}

func (a *SwapAggregator) Events() <-chan swapevent.Event {
	return a.eventCh
}

func (a *SwapAggregator) Backups() <-chan swapevent.ChannelBackup {
	return a.backupCh
}

// Start consumes every source in its own goroutine, so the order of the
// events of one source is kept. It returns after all sources are closed or
// ctx is done.
func (a *SwapAggregator) Start(ctx context.Context) {
	wg := sync.WaitGroup{}
	for _, source := range a.sources {
		wg.Add(1)
		go func(source EventSource) {
			defer wg.Done()
			a.consume(ctx, source)
		}(source)
	}

	wg.Wait()
}

func (a *SwapAggregator) consume(ctx context.Context, source EventSource) {
	xcontext.Logger(ctx).Infof("Aggregating events of chain %s", source.Chain())

	events := source.Events()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}

			a.handleWatcherEvent(ctx, event)
		}
	}
}

func (a *SwapAggregator) handleWatcherEvent(ctx context.Context, event swapevent.Event) {
	switch e := event.(type) {
	case *swapevent.EthLockup:
		a.emit(ctx, &swapevent.Transaction{
			Record:      e.Swap,
			Transaction: types.NewReferenceTransaction(e.TransactionHash),
			Confirmed:   true,
		})

	case *swapevent.ERC20Lockup:
		a.emit(ctx, &swapevent.Transaction{
			Record:      e.Swap,
			Transaction: types.NewReferenceTransaction(e.TransactionHash),
			Confirmed:   true,
		})

	case *swapevent.LockupFailed:
		a.emit(ctx, e)

	case *swapevent.SwapExpired:
		a.emit(ctx, &swapevent.Expiration{Record: e.Swap})

	case *swapevent.ReverseSwapExpired:
		a.emit(ctx, &swapevent.Expiration{Record: e.ReverseSwap, IsReverse: true})

	case *swapevent.LockupConfirmed:
		a.emit(ctx, &swapevent.Transaction{
			Record:      e.ReverseSwap,
			Transaction: e.Transaction,
			Confirmed:   true,
			IsReverse:   true,
		})

	case *swapevent.TxSent:
		a.emit(ctx, &swapevent.Transaction{
			Record:      e.ReverseSwap,
			Transaction: types.NewReferenceTransaction(e.TransactionHash),
			Confirmed:   true,
			IsReverse:   true,
		})

	case *swapevent.LockupFailedToSend:
		a.emit(ctx, &swapevent.CoinsFailedToSend{ReverseSwap: e.ReverseSwap})

	case *swapevent.Claim:
		a.settleInvoice(ctx, e)

	default:
		xcontext.Logger(ctx).Warnf("Unknown watcher event %s of swap %s", event.Op(), event.SwapID())
	}
}

// settleInvoice asks the invoice layer to settle the hold invoice of a
// claimed reverse swap. The invoice layer answers with invoice.settled.
func (a *SwapAggregator) settleInvoice(ctx context.Context, claim *swapevent.Claim) {
	b, err := json.Marshal(model.InvoiceSettleRequest{
		MessageID:     uuid.NewString(),
		ReverseSwapID: claim.ReverseSwap.ID,
		Preimage:      hex.EncodeToString(claim.Preimage),
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Unable to marshal settle request: %v", err)
		return
	}

	err = a.publisher.Publish(ctx, model.InvoiceSettleTopic, &pubsub.Pack{
		Key: []byte(claim.ReverseSwap.ID),
		Msg: b,
	})
	if err != nil {
		xcontext.Logger(ctx).Errorf("Unable to publish settle request of reverse swap %s: %v",
			claim.ReverseSwap.ID, err)
		return
	}

	xcontext.Logger(ctx).Infof("Requested settlement of invoice of reverse swap %s", claim.ReverseSwap.ID)
}

func (a *SwapAggregator) emit(ctx context.Context, event swapevent.Event) {
	select {
	case a.eventCh <- event:
	case <-ctx.Done():
	}
}

package normalizer

import (
	"context"

	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/model"
	"github.com/questx-lab/swapd/pkg/xcontext"
)

// ChannelBackupSource streams the channel backups of lightning nodes.
type ChannelBackupSource interface {
	Backups() <-chan swapevent.ChannelBackup
}

// EventNormalizer maps domain events to the public swap status protocol. It
// holds no state and never touches the ledger.
type EventNormalizer struct {
	observers []Observer

	// Expected blocks until our lockup of a reverse swap confirms.
	mempoolEta int
}

func NewEventNormalizer(mempoolEta int) *EventNormalizer {
	return &EventNormalizer{mempoolEta: mempoolEta}
}

// Register must be called before Start.
func (n *EventNormalizer) Register(observer Observer) {
	n.observers = append(n.observers, observer)
}

// Start consumes the domain events and every backup source until ctx is done.
func (n *EventNormalizer) Start(ctx context.Context, events <-chan swapevent.Event, sources ...ChannelBackupSource) {
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-events:
				if !ok {
					return
				}

				n.Handle(ctx, event)
			}
		}
	}()

	for _, source := range sources {
		go func(backups <-chan swapevent.ChannelBackup) {
			for {
				select {
				case <-ctx.Done():
					return
				case backup, ok := <-backups:
					if !ok {
						return
					}

					n.channelBackup(ctx, backup)
				}
			}
		}(source.Backups())
	}
}

func (n *EventNormalizer) EmitSwapCreation(ctx context.Context, id string) {
	n.update(ctx, id, &model.SwapUpdate{Status: string(entity.SwapCreated)})
}

func (n *EventNormalizer) EmitSwapInvoiceSet(ctx context.Context, id string) {
	n.update(ctx, id, &model.SwapUpdate{Status: string(entity.InvoiceSet)})
}

func (n *EventNormalizer) Handle(ctx context.Context, event swapevent.Event) {
	switch e := event.(type) {
	case *swapevent.SwapCreated:
		n.EmitSwapCreation(ctx, e.ID)

	case *swapevent.InvoiceSet:
		n.EmitSwapInvoiceSet(ctx, e.ID)

	case *swapevent.Transaction:
		n.transaction(ctx, e)

	case *swapevent.ZeroConfRejected:
		n.update(ctx, e.Swap.ID, &model.SwapUpdate{
			Status:           string(entity.TransactionMempool),
			ZeroConfRejected: true,
			Transaction:      e.Transaction.Info(0),
		})

	case *swapevent.InvoicePending:
		n.update(ctx, e.Swap.ID, &model.SwapUpdate{Status: string(entity.InvoicePending)})

	case *swapevent.InvoicePaid:
		n.update(ctx, e.Swap.ID, &model.SwapUpdate{Status: string(entity.InvoicePaid)})

	case *swapevent.ClaimSucceeded:
		n.update(ctx, e.Swap.ID, &model.SwapUpdate{Status: string(entity.TransactionClaimed)})
		n.success(ctx, e.Swap, false, e.ChannelCreation)

	case *swapevent.InvoiceSettled:
		n.update(ctx, e.ReverseSwap.ID, &model.SwapUpdate{Status: string(entity.InvoiceSettled)})
		n.success(ctx, e.ReverseSwap, true, nil)

	case *swapevent.InvoiceFailedToPay:
		n.failSwap(ctx, e.Swap, entity.InvoiceFailedToPay, e.Swap.FailureReason)

	case *swapevent.InvoiceExpired:
		// The terminal failure is notified by the refund or the expiration.
		n.update(ctx, e.ReverseSwap.ID, &model.SwapUpdate{Status: string(entity.InvoiceExpired)})

	case *swapevent.MinerFeePaid:
		n.update(ctx, e.ReverseSwap.ID, &model.SwapUpdate{Status: string(entity.MinerFeePaid)})

	case *swapevent.CoinsSent:
		n.update(ctx, e.ReverseSwap.ID, &model.SwapUpdate{
			Status:      string(entity.TransactionMempool),
			Transaction: e.Transaction.Info(n.mempoolEta),
		})

	case *swapevent.CoinsFailedToSend:
		n.failReverseSwap(ctx, e.ReverseSwap, entity.TransactionFailed, e.ReverseSwap.FailureReason)

	case *swapevent.Refund:
		n.failReverseSwap(ctx, e.ReverseSwap, entity.TransactionRefunded, e.ReverseSwap.FailureReason)

	case *swapevent.ChannelCreated:
		update := &model.SwapUpdate{Status: string(entity.ChannelCreated)}
		if e.ChannelCreation != nil {
			update.Channel = channelInfo(e.ChannelCreation)
		}
		n.update(ctx, e.Swap.ID, update)

	case *swapevent.LockupFailed:
		n.failSwap(ctx, e.Swap, entity.TransactionLockupFailed, e.Reason)

	case *swapevent.Expiration:
		if e.IsReverse {
			n.failReverseSwap(ctx, e.Record, entity.SwapExpired, e.Record.GetFailureReason())
		} else {
			n.failSwap(ctx, e.Record, entity.SwapExpired, e.Record.GetFailureReason())
		}

	default:
		xcontext.Logger(ctx).Warnf("Unknown domain event %s of swap %s", event.Op(), event.SwapID())
	}
}

// transaction reports lockups. Unconfirmed lockups of reverse swaps are
// reported by coins.sent.
func (n *EventNormalizer) transaction(ctx context.Context, e *swapevent.Transaction) {
	id := e.Record.GetID()

	if !e.IsReverse {
		status := entity.TransactionMempool
		if e.Confirmed {
			status = entity.TransactionConfirmed
		}

		n.update(ctx, id, &model.SwapUpdate{Status: string(status), Transaction: e.Transaction.Info(0)})
		return
	}

	if !e.Transaction.IsNative() && e.Record.GetStatus() != entity.TransactionConfirmed {
		return
	}

	n.update(ctx, id, &model.SwapUpdate{
		Status:      string(entity.TransactionConfirmed),
		Transaction: &model.TransactionInfo{ID: e.Transaction.Hash},
	})
}

func (n *EventNormalizer) failSwap(
	ctx context.Context, swap entity.SwapRecord, status entity.SwapUpdateEvent, reason string,
) {
	n.fail(ctx, swap, false, status, reason)
}

func (n *EventNormalizer) failReverseSwap(
	ctx context.Context, reverseSwap entity.SwapRecord, status entity.SwapUpdateEvent, reason string,
) {
	n.fail(ctx, reverseSwap, true, status, reason)
}

// fail emits exactly one update and one failure notification.
func (n *EventNormalizer) fail(
	ctx context.Context, record entity.SwapRecord, isReverse bool, status entity.SwapUpdateEvent, reason string,
) {
	if reason == "" {
		reason = record.GetFailureReason()
	}

	if reason == "" {
		reason = defaultFailureReason(status)
	}

	n.update(ctx, record.GetID(), &model.SwapUpdate{Status: string(status), FailureReason: reason})

	for _, observer := range n.observers {
		observer.SwapFailure(ctx, record, isReverse, reason)
	}
}

func (n *EventNormalizer) success(
	ctx context.Context, record entity.SwapRecord, isReverse bool, channelCreation *entity.ChannelCreation,
) {
	xcontext.Logger(ctx).Infof("Swap %s succeeded", record.GetID())

	for _, observer := range n.observers {
		observer.SwapSuccess(ctx, record, isReverse, channelCreation)
	}
}

func (n *EventNormalizer) update(ctx context.Context, id string, update *model.SwapUpdate) {
	xcontext.Logger(ctx).Debugf("Swap %s update: %s", id, update.Status)

	for _, observer := range n.observers {
		observer.SwapUpdate(ctx, id, update)
	}
}

func (n *EventNormalizer) channelBackup(ctx context.Context, backup swapevent.ChannelBackup) {
	for _, observer := range n.observers {
		observer.ChannelBackup(ctx, backup.Currency, backup.Backup)
	}
}

func channelInfo(channelCreation *entity.ChannelCreation) *model.ChannelInfo {
	return &model.ChannelInfo{
		FundingTransactionID:   channelCreation.FundingTransactionID.String,
		FundingTransactionVout: int(channelCreation.FundingTransactionVout.Int32),
	}
}

var defaultFailureReasons = map[entity.SwapUpdateEvent]string{
	entity.SwapExpired:             "onchain HTLC timed out",
	entity.InvoiceFailedToPay:      "invoice could not be paid",
	entity.TransactionFailed:       "onchain coins could not be sent",
	entity.TransactionRefunded:     "onchain coins were refunded",
	entity.TransactionLockupFailed: "lockup failed",
}

func defaultFailureReason(status entity.SwapUpdateEvent) string {
	if reason, ok := defaultFailureReasons[status]; ok {
		return reason
	}

	return string(status)
}

package nursery

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/questx-lab/swapd/internal/domain/blockchain"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/model"
	"github.com/questx-lab/swapd/pkg/pubsub"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"gorm.io/gorm"
)

// Operations of the invoice layer.
const (
	OpSwapCreated        = "swap.created"
	OpInvoiceSet         = "invoice.set"
	OpInvoicePending     = "invoice.pending"
	OpInvoicePaid        = "invoice.paid"
	OpInvoiceFailedToPay = "invoice.failedToPay"
	OpClaim              = "claim"
	OpZeroConfRejected   = "zeroconf.rejected"
	OpChannelCreated     = "channel.created"

	OpMinerFeePaid      = "minerfee.paid"
	OpCoinsSent         = "coins.sent"
	OpCoinsFailedToSend = "coins.failedToSend"
	OpInvoiceSettled    = "invoice.settled"
	OpInvoiceExpired    = "invoice.expired"
	OpRefund            = "refund"

	OpChannelBackup = "channel.backup"
)

var ErrUnknownOp = errors.New("unknown operation")

// Subscribe handles the messages of the invoice layer topic.
func (a *SwapAggregator) Subscribe(ctx context.Context, pack *pubsub.Pack, t time.Time) {
	var msg model.InvoiceMessage
	if err := json.Unmarshal(pack.Msg, &msg); err != nil {
		xcontext.Logger(ctx).Errorf("Unable to unmarshal invoice message: %v", err)
		return
	}

	if err := a.HandleInvoiceMessage(ctx, &msg); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot handle %s of swap %s: %v", msg.Op, msg.SwapID, err)
	}
}

// HandleInvoiceMessage applies the ledger transition owned by the invoice
// layer, then emits the domain event. A transition which was already applied
// emits nothing.
func (a *SwapAggregator) HandleInvoiceMessage(ctx context.Context, msg *model.InvoiceMessage) error {
	if msg.Op == OpChannelBackup {
		return a.handleChannelBackup(ctx, msg)
	}

	if msg.Op == OpSwapCreated {
		a.emit(ctx, &swapevent.SwapCreated{ID: msg.SwapID})
		return nil
	}

	if msg.IsReverse {
		return a.handleReverseSwapMessage(ctx, msg)
	}

	return a.handleSwapMessage(ctx, msg)
}

func (a *SwapAggregator) handleSwapMessage(ctx context.Context, msg *model.InvoiceMessage) error {
	swap, err := a.swapRepo.GetByID(ctx, msg.SwapID)
	if err != nil {
		return fmt.Errorf("cannot get swap: %w", err)
	}

	switch msg.Op {
	case OpInvoiceSet:
		return a.setSwapStatus(ctx, swap, entity.InvoiceSet, &swapevent.InvoiceSet{ID: swap.ID})

	case OpInvoicePending:
		return a.setSwapStatus(ctx, swap, entity.InvoicePending, &swapevent.InvoicePending{Swap: swap})

	case OpInvoicePaid:
		return a.setSwapStatus(ctx, swap, entity.InvoicePaid, &swapevent.InvoicePaid{Swap: swap})

	case OpInvoiceFailedToPay:
		var data model.InvoiceFailedData
		if err := mapstructure.Decode(msg.Data, &data); err != nil {
			return fmt.Errorf("cannot decode data: %w", err)
		}

		ok, err := a.swapRepo.SetFailed(ctx, swap, entity.InvoiceFailedToPay, data.Reason)
		if err != nil || !ok {
			return err
		}

		a.emit(ctx, &swapevent.InvoiceFailedToPay{Swap: swap})

	case OpClaim:
		channelCreation, err := a.getChannelCreation(ctx, swap.ID)
		if err != nil {
			return err
		}

		return a.setSwapStatus(ctx, swap, entity.TransactionClaimed,
			&swapevent.ClaimSucceeded{Swap: swap, ChannelCreation: channelCreation})

	case OpZeroConfRejected:
		var data model.ZeroConfRejectedData
		if err := mapstructure.Decode(msg.Data, &data); err != nil {
			return fmt.Errorf("cannot decode data: %w", err)
		}

		a.emit(ctx, &swapevent.ZeroConfRejected{
			Swap:        swap,
			Transaction: transactionOf(data.TransactionID, data.TransactionHex),
		})

	case OpChannelCreated:
		var data model.ChannelCreatedData
		if err := mapstructure.Decode(msg.Data, &data); err != nil {
			return fmt.Errorf("cannot decode data: %w", err)
		}

		channelCreation, err := a.getChannelCreation(ctx, swap.ID)
		if err != nil {
			return err
		}

		if channelCreation == nil {
			return fmt.Errorf("swap %s has no channel creation", swap.ID)
		}

		err = a.channelCreationRepo.SetFundingTransaction(
			ctx, channelCreation, data.FundingTransactionID, data.FundingTransactionVout)
		if err != nil {
			return fmt.Errorf("cannot set funding transaction: %w", err)
		}

		return a.setSwapStatus(ctx, swap, entity.ChannelCreated,
			&swapevent.ChannelCreated{Swap: swap, ChannelCreation: channelCreation})

	default:
		return ErrUnknownOp
	}

	return nil
}

func (a *SwapAggregator) handleReverseSwapMessage(ctx context.Context, msg *model.InvoiceMessage) error {
	reverseSwap, err := a.reverseSwapRepo.GetByID(ctx, msg.SwapID)
	if err != nil {
		return fmt.Errorf("cannot get reverse swap: %w", err)
	}

	switch msg.Op {
	case OpMinerFeePaid:
		return a.setReverseSwapStatus(ctx, reverseSwap, entity.MinerFeePaid,
			&swapevent.MinerFeePaid{ReverseSwap: reverseSwap})

	case OpCoinsSent:
		var data model.CoinsSentData
		if err := mapstructure.Decode(msg.Data, &data); err != nil {
			return fmt.Errorf("cannot decode data: %w", err)
		}

		provider, hasProvider := a.providerOf(ctx, reverseSwap)

		txID := data.TransactionID
		if hasProvider {
			txID = provider.NormalizeTransactionID(txID)
		}

		ok, err := a.reverseSwapRepo.SetLockupTransaction(ctx, reverseSwap, txID)
		if err != nil || !ok {
			return err
		}

		if hasProvider {
			a.trackTransaction(ctx, provider, reverseSwap)
		}

		a.emit(ctx, &swapevent.CoinsSent{
			ReverseSwap: reverseSwap,
			Transaction: transactionOf(txID, data.TransactionHex),
		})

	case OpCoinsFailedToSend:
		var data model.CoinsFailedToSendData
		if err := mapstructure.Decode(msg.Data, &data); err != nil {
			return fmt.Errorf("cannot decode data: %w", err)
		}

		ok, err := a.reverseSwapRepo.SetFailed(ctx, reverseSwap, entity.TransactionFailed, data.Reason)
		if err != nil || !ok {
			return err
		}

		a.emit(ctx, &swapevent.CoinsFailedToSend{ReverseSwap: reverseSwap})

	case OpInvoiceSettled:
		return a.setReverseSwapStatus(ctx, reverseSwap, entity.InvoiceSettled,
			&swapevent.InvoiceSettled{ReverseSwap: reverseSwap})

	case OpInvoiceExpired:
		return a.setReverseSwapStatus(ctx, reverseSwap, entity.InvoiceExpired,
			&swapevent.InvoiceExpired{ReverseSwap: reverseSwap})

	case OpRefund:
		var data model.RefundData
		if err := mapstructure.Decode(msg.Data, &data); err != nil {
			return fmt.Errorf("cannot decode data: %w", err)
		}

		return a.setReverseSwapStatus(ctx, reverseSwap, entity.TransactionRefunded,
			&swapevent.Refund{ReverseSwap: reverseSwap, TransactionID: data.TransactionID})

	default:
		return ErrUnknownOp
	}

	return nil
}

func (a *SwapAggregator) handleChannelBackup(ctx context.Context, msg *model.InvoiceMessage) error {
	var data model.ChannelBackupData
	if err := mapstructure.Decode(msg.Data, &data); err != nil {
		return fmt.Errorf("cannot decode data: %w", err)
	}

	select {
	case a.backupCh <- swapevent.ChannelBackup{Currency: data.Currency, Backup: data.Backup}:
	case <-ctx.Done():
	}

	return nil
}

func (a *SwapAggregator) setSwapStatus(
	ctx context.Context, swap *entity.Swap, status entity.SwapUpdateEvent, event swapevent.Event,
) error {
	ok, err := a.swapRepo.SetStatus(ctx, swap, status)
	if err != nil {
		return fmt.Errorf("cannot set status %s: %w", status, err)
	}

	if !ok {
		xcontext.Logger(ctx).Debugf("Swap %s cannot move from %s to %s", swap.ID, swap.Status, status)
		return nil
	}

	a.emit(ctx, event)
	return nil
}

func (a *SwapAggregator) setReverseSwapStatus(
	ctx context.Context, reverseSwap *entity.ReverseSwap, status entity.SwapUpdateEvent, event swapevent.Event,
) error {
	ok, err := a.reverseSwapRepo.SetStatus(ctx, reverseSwap, status)
	if err != nil {
		return fmt.Errorf("cannot set status %s: %w", status, err)
	}

	if !ok {
		xcontext.Logger(ctx).Debugf("Reverse swap %s cannot move from %s to %s",
			reverseSwap.ID, reverseSwap.Status, status)
		return nil
	}

	a.emit(ctx, event)
	return nil
}

// getChannelCreation returns nil if the swap does not open a channel.
func (a *SwapAggregator) getChannelCreation(ctx context.Context, swapID string) (*entity.ChannelCreation, error) {
	channelCreation, err := a.channelCreationRepo.GetBySwapID(ctx, swapID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("cannot get channel creation: %w", err)
	}

	return channelCreation, nil
}

// providerOf returns the provider of the chain of the reverse swap lockup.
// Chains without provider are not watched.
func (a *SwapAggregator) providerOf(
	ctx context.Context, reverseSwap *entity.ReverseSwap,
) (blockchain.Provider, bool) {
	currency, err := reverseSwap.ChainCurrency()
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot get chain currency of reverse swap %s: %v", reverseSwap.ID, err)
		return nil, false
	}

	chainWallet, ok := a.wallets.Get(currency)
	if !ok {
		xcontext.Logger(ctx).Warnf("No wallet of %s for reverse swap %s", currency, reverseSwap.ID)
		return nil, false
	}

	return a.blockchainManager.Provider(chainWallet.Chain)
}

// trackTransaction asks the provider to report the receipt of the reverse
// swap lockup.
func (a *SwapAggregator) trackTransaction(
	ctx context.Context, provider blockchain.Provider, reverseSwap *entity.ReverseSwap,
) {
	if err := provider.TrackTransaction(ctx, reverseSwap.TransactionID); err != nil {
		xcontext.Logger(ctx).Errorf("Cannot track lockup %s of reverse swap %s: %v",
			reverseSwap.TransactionID, reverseSwap.ID, err)
	}
}

// transactionOf returns a native transaction if its serialization is known.
func transactionOf(id, rawHex string) *types.Transaction {
	if rawHex == "" {
		return types.NewReferenceTransaction(id)
	}

	raw, err := hex.DecodeString(rawHex)
	if err != nil {
		return types.NewReferenceTransaction(id)
	}

	return types.NewNativeTransaction(id, raw)
}

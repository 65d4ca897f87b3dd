package swapevent

import (
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/entity"
)

// Events emitted by the aggregator. LockupFailed is passed through from the
// watchers unchanged.

type SwapCreated struct {
	ID string
}

func (e *SwapCreated) Op() string     { return "swap.created" }
func (e *SwapCreated) SwapID() string { return e.ID }

type InvoiceSet struct {
	ID string
}

func (e *InvoiceSet) Op() string     { return "invoice.set" }
func (e *InvoiceSet) SwapID() string { return e.ID }

type Transaction struct {
	Record      entity.SwapRecord
	Transaction *types.Transaction
	Confirmed   bool
	IsReverse   bool
}

func (e *Transaction) Op() string     { return "transaction" }
func (e *Transaction) SwapID() string { return e.Record.GetID() }

type ZeroConfRejected struct {
	Swap        *entity.Swap
	Transaction *types.Transaction
}

func (e *ZeroConfRejected) Op() string     { return "zeroconf.rejected" }
func (e *ZeroConfRejected) SwapID() string { return e.Swap.ID }

type InvoicePending struct {
	Swap *entity.Swap
}

func (e *InvoicePending) Op() string     { return "invoice.pending" }
func (e *InvoicePending) SwapID() string { return e.Swap.ID }

type InvoicePaid struct {
	Swap *entity.Swap
}

func (e *InvoicePaid) Op() string     { return "invoice.paid" }
func (e *InvoicePaid) SwapID() string { return e.Swap.ID }

type InvoiceFailedToPay struct {
	Swap *entity.Swap
}

func (e *InvoiceFailedToPay) Op() string     { return "invoice.failedToPay" }
func (e *InvoiceFailedToPay) SwapID() string { return e.Swap.ID }

// ClaimSucceeded is our claim of the lockup of a swap.
type ClaimSucceeded struct {
	Swap            *entity.Swap
	ChannelCreation *entity.ChannelCreation
}

func (e *ClaimSucceeded) Op() string     { return "claim.succeeded" }
func (e *ClaimSucceeded) SwapID() string { return e.Swap.ID }

type ChannelCreated struct {
	Swap            *entity.Swap
	ChannelCreation *entity.ChannelCreation
}

func (e *ChannelCreated) Op() string     { return "channel.created" }
func (e *ChannelCreated) SwapID() string { return e.Swap.ID }

type InvoiceSettled struct {
	ReverseSwap *entity.ReverseSwap
}

func (e *InvoiceSettled) Op() string     { return "invoice.settled" }
func (e *InvoiceSettled) SwapID() string { return e.ReverseSwap.ID }

type InvoiceExpired struct {
	ReverseSwap *entity.ReverseSwap
}

func (e *InvoiceExpired) Op() string     { return "invoice.expired" }
func (e *InvoiceExpired) SwapID() string { return e.ReverseSwap.ID }

type MinerFeePaid struct {
	ReverseSwap *entity.ReverseSwap
}

func (e *MinerFeePaid) Op() string     { return "minerfee.paid" }
func (e *MinerFeePaid) SwapID() string { return e.ReverseSwap.ID }

type CoinsSent struct {
	ReverseSwap *entity.ReverseSwap
	Transaction *types.Transaction
}

func (e *CoinsSent) Op() string     { return "coins.sent" }
func (e *CoinsSent) SwapID() string { return e.ReverseSwap.ID }

type CoinsFailedToSend struct {
	ReverseSwap *entity.ReverseSwap
}

func (e *CoinsFailedToSend) Op() string     { return "coins.failedToSend" }
func (e *CoinsFailedToSend) SwapID() string { return e.ReverseSwap.ID }

type Refund struct {
	ReverseSwap   *entity.ReverseSwap
	TransactionID string
}

func (e *Refund) Op() string     { return "refund" }
func (e *Refund) SwapID() string { return e.ReverseSwap.ID }

// Expiration wraps an entity.Swap or an entity.ReverseSwap.
type Expiration struct {
	Record    entity.SwapRecord
	IsReverse bool
}

func (e *Expiration) Op() string     { return "expiration" }
func (e *Expiration) SwapID() string { return e.Record.GetID() }

package entity

import "github.com/questx-lab/swapd/pkg/enum"

// SwapUpdateEvent is the lifecycle status of swaps and reverse swaps. Its value
// is the status string sent to clients.
type SwapUpdateEvent string

var (
	SwapCreated  = enum.New(SwapUpdateEvent("swap.created"))
	SwapExpired  = enum.New(SwapUpdateEvent("swap.expired"))
	MinerFeePaid = enum.New(SwapUpdateEvent("minerfee.paid"))

	InvoiceSet         = enum.New(SwapUpdateEvent("invoice.set"))
	InvoicePaid        = enum.New(SwapUpdateEvent("invoice.paid"))
	InvoicePending     = enum.New(SwapUpdateEvent("invoice.pending"))
	InvoiceSettled     = enum.New(SwapUpdateEvent("invoice.settled"))
	InvoiceFailedToPay = enum.New(SwapUpdateEvent("invoice.failedToPay"))
	InvoiceExpired     = enum.New(SwapUpdateEvent("invoice.expired"))

	ChannelCreated = enum.New(SwapUpdateEvent("channel.created"))

	TransactionFailed       = enum.New(SwapUpdateEvent("transaction.failed"))
	TransactionMempool      = enum.New(SwapUpdateEvent("transaction.mempool"))
	TransactionClaimed      = enum.New(SwapUpdateEvent("transaction.claimed"))
	TransactionRefunded     = enum.New(SwapUpdateEvent("transaction.refunded"))
	TransactionConfirmed    = enum.New(SwapUpdateEvent("transaction.confirmed"))
	TransactionLockupFailed = enum.New(SwapUpdateEvent("transaction.lockupFailed"))
)

// TerminalStatuses are never left again. Expirable queries exclude them.
var TerminalStatuses = []SwapUpdateEvent{
	SwapExpired,
	InvoiceSettled,
	InvoiceFailedToPay,
	InvoiceExpired,
	TransactionFailed,
	TransactionClaimed,
	TransactionRefunded,
	TransactionLockupFailed,
}

// LockupPendingStatuses are the statuses of a swap waiting for the
// counterparty lockup. A lockup log is only processed for swaps in them.
var LockupPendingStatuses = []SwapUpdateEvent{
	SwapCreated,
	InvoiceSet,
}

func (s SwapUpdateEvent) IsTerminal() bool {
	for _, status := range TerminalStatuses {
		if s == status {
			return true
		}
	}

	return false
}

// FinalStatusesFor returns the statuses which cannot be left for next. Only a
// refund may follow the expiration of a swap or of its invoice.
func FinalStatusesFor(next SwapUpdateEvent) []SwapUpdateEvent {
	if next != TransactionRefunded {
		return TerminalStatuses
	}

	result := make([]SwapUpdateEvent, 0, len(TerminalStatuses))
	for _, status := range TerminalStatuses {
		if status != SwapExpired && status != InvoiceExpired {
			result = append(result, status)
		}
	}

	return result
}

package swapevent

import (
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/entity"
)

// Events emitted by chain watchers.

// EthLockup is an accepted ether lockup of a swap.
type EthLockup struct {
	Swap            *entity.Swap
	TransactionHash string
	Amount          int64
	Timelock        int64
}

func (e *EthLockup) Op() string     { return "eth.lockup" }
func (e *EthLockup) SwapID() string { return e.Swap.ID }

// ERC20Lockup is an accepted token lockup of a swap.
type ERC20Lockup struct {
	Swap            *entity.Swap
	TransactionHash string
	Amount          int64
	TokenAddress    string
	Timelock        int64
}

func (e *ERC20Lockup) Op() string     { return "erc20.lockup" }
func (e *ERC20Lockup) SwapID() string { return e.Swap.ID }

type LockupFailed struct {
	Swap   *entity.Swap
	Reason string
}

func (e *LockupFailed) Op() string     { return "lockup.failed" }
func (e *LockupFailed) SwapID() string { return e.Swap.ID }

// Claim carries the preimage revealed by the claim of a reverse swap lockup.
type Claim struct {
	ReverseSwap *entity.ReverseSwap
	Preimage    []byte
}

func (e *Claim) Op() string     { return "claim" }
func (e *Claim) SwapID() string { return e.ReverseSwap.ID }

type SwapExpired struct {
	Swap *entity.Swap
}

func (e *SwapExpired) Op() string     { return "swap.expired" }
func (e *SwapExpired) SwapID() string { return e.Swap.ID }

type ReverseSwapExpired struct {
	ReverseSwap *entity.ReverseSwap
}

func (e *ReverseSwapExpired) Op() string     { return "reverseSwap.expired" }
func (e *ReverseSwapExpired) SwapID() string { return e.ReverseSwap.ID }

// LockupConfirmed is the confirmation of our lockup of a reverse swap.
type LockupConfirmed struct {
	ReverseSwap *entity.ReverseSwap
	Transaction *types.Transaction
}

func (e *LockupConfirmed) Op() string     { return "lockup.confirmed" }
func (e *LockupConfirmed) SwapID() string { return e.ReverseSwap.ID }

type LockupFailedToSend struct {
	ReverseSwap *entity.ReverseSwap
	Reason      string
}

func (e *LockupFailedToSend) Op() string     { return "lockup.failedToSend" }
func (e *LockupFailedToSend) SwapID() string { return e.ReverseSwap.ID }

// TxSent is our lockup of a reverse swap seen in the contract logs.
type TxSent struct {
	ReverseSwap     *entity.ReverseSwap
	TransactionHash string
}

func (e *TxSent) Op() string     { return "tx.sent" }
func (e *TxSent) SwapID() string { return e.ReverseSwap.ID }

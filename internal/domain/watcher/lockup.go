package watcher

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/questx-lab/swapd/internal/common"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/domain/wallet"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/pkg/errorx"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"gorm.io/gorm"
)

// handleLockup processes a lockup of a swap contract. Forward swaps waiting
// for a lockup are looked up first, then our own pending reverse swap lockups.
func (w *ChainWatcher) handleLockup(ctx context.Context, log *types.ContractLog) {
	lockup := log.Lockup

	swap, err := w.swapRepo.GetByPreimageHash(ctx, lockup.PreimageHash, entity.LockupPendingStatuses)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get swap of lockup %s: %v", log.TransactionHash, err)
			return
		}

		w.handleOwnLockup(ctx, log)
		return
	}

	chainWallet, ok := w.walletOf(ctx, swap)
	if !ok {
		xcontext.Logger(ctx).Debugf("Lockup %s of swap %s is not on chain %s",
			log.TransactionHash, swap.ID, w.Chain())
		return
	}

	if (log.Kind == types.ERC20LockupLog) != chainWallet.IsToken() {
		xcontext.Logger(ctx).Warnf("Lockup %s of swap %s does not lock %s",
			log.TransactionHash, swap.ID, chainWallet.Symbol)
		return
	}

	amount := toInt64(chainWallet.NormalizeAmount(lockup.Amount))
	ok, err = w.swapRepo.SetLockupTransaction(ctx, swap, log.TransactionHash, amount, false)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot set lockup %s of swap %s: %v", log.TransactionHash, swap.ID, err)
		return
	}

	if !ok {
		xcontext.Logger(ctx).Debugf("Swap %s already has a lockup", swap.ID)
		return
	}

	if err := w.validateLockup(swap, chainWallet, lockup, amount); err != nil {
		w.failLockup(ctx, swap, err)
		return
	}

	ok, err = w.swapRepo.SetStatus(ctx, swap, entity.TransactionConfirmed)
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot confirm lockup %s of swap %s: %v", log.TransactionHash, swap.ID, err)
		return
	}

	if !ok {
		return
	}

	xcontext.Logger(ctx).Infof("Accepted lockup %s of swap %s on chain %s",
		log.TransactionHash, swap.ID, w.Chain())

	if chainWallet.IsToken() {
		w.emit(ctx, &swapevent.ERC20Lockup{
			Swap:            swap,
			TransactionHash: log.TransactionHash,
			Amount:          amount,
			TokenAddress:    lockup.TokenAddress,
			Timelock:        swap.TimeoutBlockHeight,
		})
	} else {
		w.emit(ctx, &swapevent.EthLockup{
			Swap:            swap,
			TransactionHash: log.TransactionHash,
			Amount:          amount,
			Timelock:        swap.TimeoutBlockHeight,
		})
	}
}

// validateLockup checks the terms of a lockup against the swap and returns
// the first violation.
func (w *ChainWatcher) validateLockup(
	swap *entity.Swap, chainWallet *wallet.Wallet, lockup *types.Lockup, amount int64,
) error {
	if lockup.Timelock == nil || lockup.Timelock.Cmp(big.NewInt(swap.TimeoutBlockHeight)) != 0 {
		return InvalidTimelock(lockup.Timelock, swap.TimeoutBlockHeight)
	}

	if chainWallet.IsToken() && !chainWallet.SameToken(lockup.TokenAddress) {
		return InvalidTokenLocked(lockup.TokenAddress, chainWallet.TokenAddress)
	}

	if swap.ExpectedAmount.Valid && amount < swap.ExpectedAmount.Int64 {
		return InsufficientAmount(amount, swap.ExpectedAmount.Int64)
	}

	if w.cfg.ClaimAddressValidated() && !strings.EqualFold(lockup.ClaimAddress, w.cfg.ClaimAddress) {
		return InvalidClaimAddress(lockup.ClaimAddress, w.cfg.ClaimAddress)
	}

	return nil
}

func (w *ChainWatcher) failLockup(ctx context.Context, swap *entity.Swap, reason error) {
	xcontext.Logger(ctx).Warnf("Lockup of swap %s failed: %v", swap.ID, reason)

	ok, err := w.swapRepo.SetFailed(ctx, swap, entity.TransactionLockupFailed, reason.Error())
	if err != nil {
		xcontext.Logger(ctx).Errorf("Cannot set lockup failure of swap %s: %v", swap.ID, err)
		return
	}

	if !ok {
		return
	}

	code := errorx.Internal
	var xerr errorx.Error
	if errors.As(reason, &xerr) {
		code = xerr.Code
	}
	common.PromCounters[common.LockupFailuresTotal].
		WithLabelValues(w.Chain(), strconv.Itoa(int(code))).Inc()

	w.emit(ctx, &swapevent.LockupFailed{Swap: swap, Reason: reason.Error()})
}

// handleOwnLockup handles the lockup of a reverse swap broadcast by us, the
// contract emits the same log for both directions.
func (w *ChainWatcher) handleOwnLockup(ctx context.Context, log *types.ContractLog) {
	reverseSwap, err := w.reverseSwapRepo.GetByPreimageHash(
		ctx, log.Lockup.PreimageHash, []entity.SwapUpdateEvent{entity.TransactionMempool})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get reverse swap of lockup %s: %v", log.TransactionHash, err)
		} else {
			xcontext.Logger(ctx).Debugf("Ignored foreign lockup %s on chain %s", log.TransactionHash, w.Chain())
		}
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

	// The id recorded when the lockup was sent is the one known to clients.
	txID := reverseSwap.TransactionID
	if txID == "" {
		txID = log.TransactionHash
	}

	xcontext.Logger(ctx).Infof("Found our lockup %s of reverse swap %s", txID, reverseSwap.ID)
	w.emit(ctx, &swapevent.TxSent{ReverseSwap: reverseSwap, TransactionHash: txID})
}

// handleClaim forwards the preimage revealed by the claim of a reverse swap
// lockup.
func (w *ChainWatcher) handleClaim(ctx context.Context, log *types.ContractLog) {
	claim := log.Claim

	reverseSwap, err := w.reverseSwapRepo.GetByPreimageHashNotIn(
		ctx, claim.PreimageHash, []entity.SwapUpdateEvent{entity.InvoiceSettled})
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			xcontext.Logger(ctx).Errorf("Cannot get reverse swap of claim %s: %v", log.TransactionHash, err)
		}
		return
	}

	hash := sha256.Sum256(claim.Preimage)
	if !strings.EqualFold(hex.EncodeToString(hash[:]), claim.PreimageHash) {
		xcontext.Logger(ctx).Warnf("Preimage of claim %s does not match reverse swap %s",
			log.TransactionHash, reverseSwap.ID)
		return
	}

	xcontext.Logger(ctx).Infof("Found claim %s of reverse swap %s", log.TransactionHash, reverseSwap.ID)
	w.emit(ctx, &swapevent.Claim{ReverseSwap: reverseSwap, Preimage: claim.Preimage})
}

func toInt64(amount *big.Int) int64 {
	if !amount.IsInt64() {
		if amount.Sign() < 0 {
			return 0
		}
		return math.MaxInt64
	}

	return amount.Int64()
}

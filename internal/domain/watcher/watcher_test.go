package watcher

import (
	"context"
	"database/sql"
	"errors"
	"math/big"
	"testing"
	"time"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/internal/common"
	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
	"github.com/questx-lab/swapd/internal/domain/swapevent"
	"github.com/questx-lab/swapd/internal/domain/wallet"
	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/repository"
	"github.com/questx-lab/swapd/pkg/testutil"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, ctx context.Context, chainCfg *config.ChainConfig) (*ChainWatcher, *mockProvider) {
	cfg := xcontext.Configs(ctx)
	wallets, err := wallet.NewRegistryFromConfig(cfg.Wallets)
	require.NoError(t, err)

	if chainCfg == nil {
		chainCfg = &cfg.Chains[0]
	}

	provider := newMockProvider(chainCfg.Chain)
	w := NewChainWatcher(
		*chainCfg,
		provider,
		wallets,
		repository.NewSwapRepository(),
		repository.NewReverseSwapRepository(),
		16,
		10*time.Second,
	)

	return w, provider
}

// weiOf converts an amount in base units to wei.
func weiOf(amount int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(amount), big.NewInt(10_000_000_000))
}

func etherLockup(preimageHash string, timelock, amount int64) *types.ContractLog {
	return &types.ContractLog{
		Kind:            types.EtherLockupLog,
		TransactionHash: "0xlockup",
		Lockup: &types.Lockup{
			PreimageHash: preimageHash,
			Amount:       weiOf(amount),
			ClaimAddress: testutil.ClaimAddress,
			Timelock:     big.NewInt(timelock),
		},
	}
}

func nextEvent(t *testing.T, w *ChainWatcher) swapevent.Event {
	select {
	case event := <-w.Events():
		return event
	case <-time.After(5 * time.Second):
		require.FailNow(t, "no event emitted")
		return nil
	}
}

func requireNoEvent(t *testing.T, w *ChainWatcher) {
	select {
	case event := <-w.Events():
		require.FailNowf(t, "unexpected event", "%s of swap %s", event.Op(), event.SwapID())
	default:
	}
}

func requireSwapStatus(t *testing.T, ctx context.Context, id string, status entity.SwapUpdateEvent) *entity.Swap {
	swap, err := repository.NewSwapRepository().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, status, swap.Status)
	return swap
}

func requireReverseSwapStatus(t *testing.T, ctx context.Context, id string, status entity.SwapUpdateEvent) *entity.ReverseSwap {
	reverseSwap, err := repository.NewReverseSwapRepository().GetByID(ctx, id)
	require.NoError(t, err)
	require.Equal(t, status, reverseSwap.Status)
	return reverseSwap
}

func TestChainWatcher_LockupAccepted(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	w.handleContractLog(ctx, etherLockup(hash, 100, 500))

	event := nextEvent(t, w)
	lockup, ok := event.(*swapevent.EthLockup)
	require.True(t, ok)
	require.Equal(t, "swap1", lockup.Swap.ID)
	require.Equal(t, int64(500), lockup.Amount)
	require.Equal(t, int64(100), lockup.Timelock)
	require.Equal(t, "0xlockup", lockup.TransactionHash)

	swap := requireSwapStatus(t, ctx, "swap1", entity.TransactionConfirmed)
	require.Equal(t, "0xlockup", swap.LockupTransactionID)
	require.Equal(t, int64(500), swap.OnchainAmount.Int64)
}

func TestChainWatcher_LockupInvoiceSet(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.InvoiceSet, 100, 0)

	w.handleContractLog(ctx, etherLockup(hash, 100, 1))

	_, ok := nextEvent(t, w).(*swapevent.EthLockup)
	require.True(t, ok)
	requireSwapStatus(t, ctx, "swap1", entity.TransactionConfirmed)
}

func TestChainWatcher_LockupInvalidTimelock(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	before := promtestutil.ToFloat64(
		common.PromCounters[common.LockupFailuresTotal].WithLabelValues(testutil.ChainEth, "200001"))

	w.handleContractLog(ctx, etherLockup(hash, 99, 500))

	failed, ok := nextEvent(t, w).(*swapevent.LockupFailed)
	require.True(t, ok)
	require.Equal(t, InvalidTimelock(big.NewInt(99), 100).Error(), failed.Reason)

	swap := requireSwapStatus(t, ctx, "swap1", entity.TransactionLockupFailed)
	require.Equal(t, failed.Reason, swap.FailureReason)
	requireNoEvent(t, w)

	after := promtestutil.ToFloat64(
		common.PromCounters[common.LockupFailuresTotal].WithLabelValues(testutil.ChainEth, "200001"))
	require.Equal(t, before+1, after)
}

func TestChainWatcher_LockupTimelockOutOfRange(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	// The low 64 bits equal the timeout block height.
	timelock := new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(100))
	log := etherLockup(hash, 0, 500)
	log.Lockup.Timelock = timelock
	w.handleContractLog(ctx, log)

	failed, ok := nextEvent(t, w).(*swapevent.LockupFailed)
	require.True(t, ok)
	require.Equal(t, InvalidTimelock(timelock, 100).Error(), failed.Reason)
	requireSwapStatus(t, ctx, "swap1", entity.TransactionLockupFailed)
}

func TestChainWatcher_LockupAmount(t *testing.T) {
	tests := []struct {
		name     string
		amount   int64
		expected int64
		accepted bool
	}{
		{name: "more than expected", amount: 501, expected: 500, accepted: true},
		{name: "exactly expected", amount: 500, expected: 500, accepted: true},
		{name: "less than expected", amount: 499, expected: 500, accepted: false},
		{name: "no expectation", amount: 1, expected: 0, accepted: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := testutil.NewMockContext()
			w, _ := newTestWatcher(t, ctx, nil)

			_, hash := testutil.Preimage(1)
			testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, tt.expected)

			w.handleContractLog(ctx, etherLockup(hash, 100, tt.amount))

			event := nextEvent(t, w)
			if tt.accepted {
				require.IsType(t, &swapevent.EthLockup{}, event)
				requireSwapStatus(t, ctx, "swap1", entity.TransactionConfirmed)
			} else {
				require.IsType(t, &swapevent.LockupFailed{}, event)
				require.Equal(t, InsufficientAmount(tt.amount, tt.expected).Error(), event.(*swapevent.LockupFailed).Reason)
				requireSwapStatus(t, ctx, "swap1", entity.TransactionLockupFailed)
			}
		})
	}
}

func TestChainWatcher_LockupIdempotent(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	log := etherLockup(hash, 100, 500)
	w.handleContractLog(ctx, log)
	require.IsType(t, &swapevent.EthLockup{}, nextEvent(t, w))
	first := requireSwapStatus(t, ctx, "swap1", entity.TransactionConfirmed)

	w.handleContractLog(ctx, log)
	requireNoEvent(t, w)

	second := requireSwapStatus(t, ctx, "swap1", entity.TransactionConfirmed)
	require.Equal(t, first.UpdatedAt, second.UpdatedAt)
}

func TestChainWatcher_LockupClaimAddress(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	log := etherLockup(hash, 100, 500)
	log.Lockup.ClaimAddress = "0x0000000000000000000000000000000000000001"
	w.handleContractLog(ctx, log)

	failed, ok := nextEvent(t, w).(*swapevent.LockupFailed)
	require.True(t, ok)
	require.Equal(t, InvalidClaimAddress(log.Lockup.ClaimAddress, testutil.ClaimAddress).Error(), failed.Reason)
}

func TestChainWatcher_LockupClaimAddressNotValidated(t *testing.T) {
	ctx := testutil.NewMockContext()

	chainCfg := xcontext.Configs(ctx).Chains[0]
	validates := false
	chainCfg.ValidatesClaimAddress = &validates
	w, _ := newTestWatcher(t, ctx, &chainCfg)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	log := etherLockup(hash, 100, 500)
	log.Lockup.ClaimAddress = "0x0000000000000000000000000000000000000001"
	w.handleContractLog(ctx, log)

	require.IsType(t, &swapevent.EthLockup{}, nextEvent(t, w))
}

func TestChainWatcher_ERC20Lockup(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash1 := testutil.Preimage(1)
	_, hash2 := testutil.Preimage(2)
	for id, hash := range map[string]string{"swap1": hash1, "swap2": hash2} {
		err := repository.NewSwapRepository().Create(ctx, &entity.Swap{
			Base:               entity.Base{ID: id},
			Pair:               testutil.SymbolBTC + "/" + testutil.SymbolUSDT,
			OrderSide:          entity.OrderSideBuy,
			Status:             entity.SwapCreated,
			PreimageHash:       hash,
			TimeoutBlockHeight: 100,
			ExpectedAmount:     sql.NullInt64{Int64: 150_000_000, Valid: true},
		})
		require.NoError(t, err)
	}

	tokenLockup := func(hash, token string) *types.ContractLog {
		return &types.ContractLog{
			Kind:            types.ERC20LockupLog,
			TransactionHash: "0xtoken",
			Lockup: &types.Lockup{
				PreimageHash: hash,
				Amount:       big.NewInt(1_500_000),
				ClaimAddress: testutil.ClaimAddress,
				Timelock:     big.NewInt(100),
				TokenAddress: token,
			},
		}
	}

	w.handleContractLog(ctx, tokenLockup(hash1, testutil.USDTAddress))
	lockup, ok := nextEvent(t, w).(*swapevent.ERC20Lockup)
	require.True(t, ok)
	require.Equal(t, int64(150_000_000), lockup.Amount)
	require.Equal(t, testutil.USDTAddress, lockup.TokenAddress)

	other := "0x0000000000000000000000000000000000000002"
	w.handleContractLog(ctx, tokenLockup(hash2, other))
	failed, ok := nextEvent(t, w).(*swapevent.LockupFailed)
	require.True(t, ok)
	require.Equal(t, InvalidTokenLocked(other, testutil.USDTAddress).Error(), failed.Reason)
}

func TestChainWatcher_LockupKindMismatch(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertSwap(ctx, "swap1", hash, entity.SwapCreated, 100, 500)

	log := etherLockup(hash, 100, 500)
	log.Kind = types.ERC20LockupLog
	w.handleContractLog(ctx, log)

	requireNoEvent(t, w)
	requireSwapStatus(t, ctx, "swap1", entity.SwapCreated)
}

func TestChainWatcher_OwnLockup(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionMempool, 100, "0xours")

	w.handleContractLog(ctx, etherLockup(hash, 100, 500))

	sent, ok := nextEvent(t, w).(*swapevent.TxSent)
	require.True(t, ok)
	require.Equal(t, "rswap1", sent.ReverseSwap.ID)
	require.Equal(t, "0xours", sent.TransactionHash)
	requireReverseSwapStatus(t, ctx, "rswap1", entity.TransactionConfirmed)

	// Delivered again, the reverse swap is not pending anymore.
	w.handleContractLog(ctx, etherLockup(hash, 100, 500))
	requireNoEvent(t, w)
}

func TestChainWatcher_OwnLockupWithoutTransactionID(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionMempool, 100, "")

	w.handleContractLog(ctx, etherLockup(hash, 100, 500))

	sent, ok := nextEvent(t, w).(*swapevent.TxSent)
	require.True(t, ok)
	require.Equal(t, "0xlockup", sent.TransactionHash)
}

func TestChainWatcher_ForeignLockup(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	w.handleContractLog(ctx, etherLockup(hash, 100, 500))
	requireNoEvent(t, w)
}

func TestChainWatcher_Claim(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	preimage, hash := testutil.Preimage(1)
	reverseSwap := testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionConfirmed, 100, "0xours")

	claim := &types.ContractLog{
		Kind:            types.ClaimLog,
		TransactionHash: "0xclaim",
		Claim:           &types.Claim{PreimageHash: hash, Preimage: preimage},
	}
	w.handleContractLog(ctx, claim)

	event, ok := nextEvent(t, w).(*swapevent.Claim)
	require.True(t, ok)
	require.Equal(t, "rswap1", event.ReverseSwap.ID)
	require.Equal(t, preimage, event.Preimage)

	_, err := repository.NewReverseSwapRepository().SetStatus(ctx, reverseSwap, entity.InvoiceSettled)
	require.NoError(t, err)

	w.handleContractLog(ctx, claim)
	requireNoEvent(t, w)
}

func TestChainWatcher_ClaimWrongPreimage(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	wrong, _ := testutil.Preimage(2)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionConfirmed, 100, "0xours")

	w.handleContractLog(ctx, &types.ContractLog{
		Kind:  types.ClaimLog,
		Claim: &types.Claim{PreimageHash: hash, Preimage: wrong},
	})
	requireNoEvent(t, w)
}

func TestChainWatcher_Expiry(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	_, hash1 := testutil.Preimage(1)
	_, hash2 := testutil.Preimage(2)
	_, hash3 := testutil.Preimage(3)
	testutil.InsertSwap(ctx, "swap1", hash1, entity.SwapCreated, 100, 0)
	testutil.InsertSwap(ctx, "swap2", hash2, entity.SwapCreated, 105, 0)
	testutil.InsertReverseSwap(ctx, "rswap1", hash3, entity.TransactionConfirmed, 100, "0xours")

	w.handleBlock(ctx, 100)

	expired := map[string]string{}
	for i := 0; i < 2; i++ {
		event := nextEvent(t, w)
		expired[event.SwapID()] = event.Op()
	}
	require.Equal(t, map[string]string{"swap1": "swap.expired", "rswap1": "reverseSwap.expired"}, expired)
	requireNoEvent(t, w)

	swap := requireSwapStatus(t, ctx, "swap1", entity.SwapExpired)
	require.Equal(t, OnchainHTLCTimedOut().Error(), swap.FailureReason)
	requireReverseSwapStatus(t, ctx, "rswap1", entity.SwapExpired)

	// Expired swaps are never emitted again.
	w.handleBlock(ctx, 101)
	w.handleBlock(ctx, 102)
	requireNoEvent(t, w)

	w.handleBlock(ctx, 105)
	require.Equal(t, "swap2", nextEvent(t, w).SwapID())
}

func TestChainWatcher_ExpiryOtherChain(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)

	// The chain currency of a buy swap of ETH/BTC is BTC.
	_, hash := testutil.Preimage(1)
	err := repository.NewSwapRepository().Create(ctx, &entity.Swap{
		Base:               entity.Base{ID: "swap1"},
		Pair:               testutil.SymbolETH + "/" + testutil.SymbolBTC,
		OrderSide:          entity.OrderSideBuy,
		Status:             entity.SwapCreated,
		PreimageHash:       hash,
		TimeoutBlockHeight: 100,
	})
	require.NoError(t, err)

	w.handleBlock(ctx, 100)
	requireNoEvent(t, w)
	requireSwapStatus(t, ctx, "swap1", entity.SwapCreated)
}

type failingSwapRepository struct {
	repository.SwapRepository
}

func (r *failingSwapRepository) GetExpirable(ctx context.Context, height int64) ([]entity.Swap, error) {
	return nil, errors.New("database is down")
}

func TestChainWatcher_MissedBlockHeight(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, _ := newTestWatcher(t, ctx, nil)
	w.swapRepo = &failingSwapRepository{SwapRepository: w.swapRepo}

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionConfirmed, 100, "0xours")

	counter := common.PromCounters[common.MissedBlockHeightsTotal].WithLabelValues(testutil.ChainEth)
	before := promtestutil.ToFloat64(counter)

	w.handleBlock(ctx, 100)

	// Nothing of the height is processed.
	requireNoEvent(t, w)
	requireReverseSwapStatus(t, ctx, "rswap1", entity.TransactionConfirmed)
	require.Equal(t, before+1, promtestutil.ToFloat64(counter))
}

func TestChainWatcher_InitConfirmed(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, provider := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionMempool, 100, "0xours")
	provider.setTransaction(types.NewNativeTransaction("0xours", []byte{1, 2}), 0)

	w.Init(ctx)

	confirmed, ok := nextEvent(t, w).(*swapevent.LockupConfirmed)
	require.True(t, ok)
	require.Equal(t, "0xours", confirmed.Transaction.Hash)
	requireReverseSwapStatus(t, ctx, "rswap1", entity.TransactionConfirmed)
}

func TestChainWatcher_InitFailed(t *testing.T) {
	ctx := testutil.NewMockContext()
	w, provider := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionMempool, 100, "0xours")

	tx := types.NewNativeTransaction("0xours", []byte{1, 2})
	tx.Failed = true
	tx.FailureReason = "transaction reverted"
	provider.setTransaction(tx, 0)

	w.Init(ctx)

	failed, ok := nextEvent(t, w).(*swapevent.LockupFailedToSend)
	require.True(t, ok)
	require.Equal(t, "transaction reverted", failed.Reason)

	reverseSwap := requireReverseSwapStatus(t, ctx, "rswap1", entity.TransactionFailed)
	require.Equal(t, "transaction reverted", reverseSwap.FailureReason)
}

func TestChainWatcher_InitRetry(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.NewMockContext())
	defer cancel()
	w, provider := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionMempool, 100, "0xours")

	// The fetch of the reconciliation fails, the retry succeeds.
	provider.setTransaction(types.NewNativeTransaction("0xours", nil), 1)

	w.Start(ctx)

	confirmed, ok := nextEvent(t, w).(*swapevent.LockupConfirmed)
	require.True(t, ok)
	require.Equal(t, "rswap1", confirmed.ReverseSwap.ID)
	requireReverseSwapStatus(t, ctx, "rswap1", entity.TransactionConfirmed)
}

func TestChainWatcher_TrackedTransaction(t *testing.T) {
	ctx, cancel := context.WithCancel(testutil.NewMockContext())
	defer cancel()
	w, provider := newTestWatcher(t, ctx, nil)

	_, hash := testutil.Preimage(1)
	testutil.InsertReverseSwap(ctx, "rswap1", hash, entity.TransactionMempool, 100, "0xours")
	provider.setTransaction(types.NewNativeTransaction("0xours", nil), 0)

	w.Start(ctx)
	require.IsType(t, &swapevent.LockupConfirmed{}, nextEvent(t, w))

	_, hash2 := testutil.Preimage(2)
	testutil.InsertReverseSwap(ctx, "rswap2", hash2, entity.TransactionMempool, 100, "0xlater")
	provider.txCh <- types.NewNativeTransaction("0xlater", []byte{3})

	confirmed, ok := nextEvent(t, w).(*swapevent.LockupConfirmed)
	require.True(t, ok)
	require.Equal(t, "rswap2", confirmed.ReverseSwap.ID)

	// Unknown transactions are ignored.
	provider.txCh <- types.NewNativeTransaction("0xunknown", nil)
	provider.heightCh <- 1
	time.Sleep(100 * time.Millisecond)
	requireNoEvent(t, w)
}

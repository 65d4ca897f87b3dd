package testutil

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"

	"github.com/questx-lab/swapd/internal/entity"
	"github.com/questx-lab/swapd/internal/repository"
)

const (
	ChainEth     = "eth"
	ChainBitcoin = "bitcoin"

	SymbolETH  = "ETH"
	SymbolUSDT = "USDT"
	SymbolBTC  = "BTC"

	EtherSwapAddress = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a101"
	ERC20SwapAddress = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a102"
	ClaimAddress     = "0x8Ea1C1aA3b0E5dB7F1a2b1d9A6aD2c4E5f60a103"
	USDTAddress      = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
)

// Preimage returns a deterministic preimage and its hex encoded sha256 hash.
func Preimage(seed byte) ([]byte, string) {
	preimage := make([]byte, 32)
	for i := range preimage {
		preimage[i] = seed
	}

	hash := sha256.Sum256(preimage)
	return preimage, hex.EncodeToString(hash[:])
}

// InsertSwap stores a forward swap which pays ETH on chain for BTC off chain.
func InsertSwap(
	ctx context.Context, id, preimageHash string, status entity.SwapUpdateEvent,
	timeout int64, expectedAmount int64,
) *entity.Swap {
	swap := &entity.Swap{
		Base:               entity.Base{ID: id},
		Pair:               SymbolBTC + "/" + SymbolETH,
		OrderSide:          entity.OrderSideBuy,
		Status:             status,
		PreimageHash:       preimageHash,
		TimeoutBlockHeight: timeout,
	}

	if expectedAmount > 0 {
		swap.ExpectedAmount = sql.NullInt64{Int64: expectedAmount, Valid: true}
	}

	if err := repository.NewSwapRepository().Create(ctx, swap); err != nil {
		panic(err)
	}

	return swap
}

// InsertReverseSwap stores a reverse swap which locks ETH on chain.
func InsertReverseSwap(
	ctx context.Context, id, preimageHash string, status entity.SwapUpdateEvent,
	timeout int64, transactionID string,
) *entity.ReverseSwap {
	reverseSwap := &entity.ReverseSwap{
		Base:               entity.Base{ID: id},
		Pair:               SymbolETH + "/" + SymbolBTC,
		OrderSide:          entity.OrderSideBuy,
		Status:             status,
		PreimageHash:       preimageHash,
		TimeoutBlockHeight: timeout,
		OnchainAmount:      100000,
		TransactionID:      transactionID,
	}

	if err := repository.NewReverseSwapRepository().Create(ctx, reverseSwap); err != nil {
		panic(err)
	}

	return reverseSwap
}

package wallet

import (
	"math/big"
	"testing"

	"github.com/questx-lab/swapd/config"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryFromConfig(t *testing.T) {
	r, err := NewRegistryFromConfig([]config.WalletConfig{
		{Symbol: "ETH", Chain: "eth", Type: "ether", Decimals: 18},
		{Symbol: "USDT", Chain: "eth", Type: "erc20", TokenAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7", Decimals: 6},
		{Symbol: "BTC", Chain: "bitcoin", Type: "utxo", Decimals: 8},
	})
	require.NoError(t, err)

	w, ok := r.Get("USDT")
	require.True(t, ok)
	require.True(t, w.IsToken())
	require.True(t, w.SameToken("0xdac17f958d2ee523a2206206994597c13d831ec7"))

	_, ok = r.Get("DOGE")
	require.False(t, ok)

	require.Len(t, r.ForChain("eth"), 2)
	require.Len(t, r.ForChain("bitcoin"), 1)
}

func TestNewRegistryFromConfig_Invalid(t *testing.T) {
	_, err := NewRegistryFromConfig([]config.WalletConfig{
		{Symbol: "ETH", Chain: "eth", Type: "unknown"},
	})
	require.Error(t, err)

	_, err = NewRegistryFromConfig([]config.WalletConfig{
		{Symbol: "USDT", Chain: "eth", Type: "erc20"},
	})
	require.Error(t, err)

	_, err = NewRegistryFromConfig([]config.WalletConfig{
		{Symbol: "ETH", Chain: "eth", Type: "ether"},
		{Symbol: "ETH", Chain: "eth", Type: "ether"},
	})
	require.Error(t, err)
}

func TestWallet_NormalizeAmount(t *testing.T) {
	ether := &Wallet{Decimals: 18}
	oneEther, _ := new(big.Int).SetString("1000000000000000000", 10)
	require.Equal(t, int64(100_000_000), ether.NormalizeAmount(oneEther).Int64())

	// Precision below the base unit is cut off.
	dust, _ := new(big.Int).SetString("1000000009999999999", 10)
	require.Equal(t, int64(100_000_000), ether.NormalizeAmount(dust).Int64())

	usdt := &Wallet{Decimals: 6}
	require.Equal(t, int64(150_000_000), usdt.NormalizeAmount(big.NewInt(1_500_000)).Int64())

	btc := &Wallet{Decimals: 8}
	require.Equal(t, int64(12345), btc.NormalizeAmount(big.NewInt(12345)).Int64())
}

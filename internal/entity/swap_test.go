package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChainCurrency(t *testing.T) {
	tests := []struct {
		name      string
		side      OrderSide
		isReverse bool
		want      string
	}{
		{name: "swap buy", side: OrderSideBuy, isReverse: false, want: "STX"},
		{name: "swap sell", side: OrderSideSell, isReverse: false, want: "BTC"},
		{name: "reverse swap buy", side: OrderSideBuy, isReverse: true, want: "BTC"},
		{name: "reverse swap sell", side: OrderSideSell, isReverse: true, want: "STX"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ChainCurrency("BTC/STX", tt.side, tt.isReverse)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestChainCurrency_InvalidPair(t *testing.T) {
	_, err := ChainCurrency("BTCSTX", OrderSideBuy, false)
	require.Error(t, err)

	_, err = ChainCurrency("BTC/", OrderSideBuy, false)
	require.Error(t, err)
}

func TestSwapUpdateEvent_IsTerminal(t *testing.T) {
	require.True(t, SwapExpired.IsTerminal())
	require.True(t, TransactionLockupFailed.IsTerminal())
	require.False(t, SwapCreated.IsTerminal())
	require.False(t, TransactionMempool.IsTerminal())
	require.False(t, TransactionConfirmed.IsTerminal())
}

func TestFinalStatusesFor(t *testing.T) {
	require.Equal(t, TerminalStatuses, FinalStatusesFor(TransactionConfirmed))
	require.Equal(t, TerminalStatuses, FinalStatusesFor(SwapExpired))

	final := FinalStatusesFor(TransactionRefunded)
	require.NotContains(t, final, SwapExpired)
	require.NotContains(t, final, InvoiceExpired)
	require.Contains(t, final, InvoiceSettled)
	require.Contains(t, final, TransactionRefunded)
}

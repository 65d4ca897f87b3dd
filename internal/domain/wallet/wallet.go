package wallet

import (
	"math/big"
	"strings"

	"github.com/questx-lab/swapd/pkg/enum"
)

type Type string

var (
	TypeEther = enum.New(Type("ether"))
	TypeERC20 = enum.New(Type("erc20"))
	TypeUTXO  = enum.New(Type("utxo"))
)

// BaseDecimals is the precision of amounts stored in the ledger.
const BaseDecimals = 8

type Wallet struct {
	Symbol       string
	Chain        string
	Type         Type
	TokenAddress string
	Decimals     int
}

func (w *Wallet) IsToken() bool {
	return w.Type == TypeERC20
}

func (w *Wallet) OnChain(chain string) bool {
	return w.Chain == chain
}

// SameToken reports whether address is the token contract of this wallet.
func (w *Wallet) SameToken(address string) bool {
	return strings.EqualFold(w.TokenAddress, address)
}

// NormalizeAmount converts an amount in the smallest unit of the wallet to the
// base unit of the ledger, rounding down.
func (w *Wallet) NormalizeAmount(amount *big.Int) *big.Int {
	result := new(big.Int).Set(amount)
	switch {
	case w.Decimals > BaseDecimals:
		divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(w.Decimals-BaseDecimals)), nil)
		result.Quo(result, divisor)
	case w.Decimals < BaseDecimals:
		multiplier := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(BaseDecimals-w.Decimals)), nil)
		result.Mul(result, multiplier)
	}

	return result
}

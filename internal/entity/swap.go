package entity

import (
	"database/sql"
	"fmt"
	"strings"
)

type OrderSide int

const (
	OrderSideBuy OrderSide = iota
	OrderSideSell
)

// SwapRecord is implemented by *Swap and *ReverseSwap.
type SwapRecord interface {
	GetID() string
	GetStatus() SwapUpdateEvent
	GetFailureReason() string
}

type Swap struct {
	Base

	Pair               string
	OrderSide          OrderSide
	Status             SwapUpdateEvent `gorm:"index"`
	PreimageHash       string          `gorm:"index"`
	TimeoutBlockHeight int64           `gorm:"index"`

	// Minimum amount in base units the counterparty has to lock.
	ExpectedAmount sql.NullInt64

	LockupTransactionID string
	OnchainAmount       sql.NullInt64
	FailureReason       string
}

func (s *Swap) GetID() string                  { return s.ID }
func (s *Swap) GetStatus() SwapUpdateEvent     { return s.Status }
func (s *Swap) GetFailureReason() string       { return s.FailureReason }
func (s *Swap) ChainCurrency() (string, error) { return ChainCurrency(s.Pair, s.OrderSide, false) }

type ReverseSwap struct {
	Base

	Pair               string
	OrderSide          OrderSide
	Status             SwapUpdateEvent `gorm:"index"`
	PreimageHash       string          `gorm:"index"`
	TimeoutBlockHeight int64           `gorm:"index"`

	OnchainAmount int64

	// Lockup transaction broadcast by us.
	TransactionID string `gorm:"index"`

	FundingTransactionID   sql.NullString
	FundingTransactionVout sql.NullInt32

	FailureReason string
}

func (s *ReverseSwap) GetID() string                  { return s.ID }
func (s *ReverseSwap) GetStatus() SwapUpdateEvent     { return s.Status }
func (s *ReverseSwap) GetFailureReason() string       { return s.FailureReason }
func (s *ReverseSwap) ChainCurrency() (string, error) { return ChainCurrency(s.Pair, s.OrderSide, true) }

func SplitPairID(pair string) (string, string, error) {
	parts := strings.Split(pair, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid pair id %q", pair)
	}

	return parts[0], parts[1], nil
}

// ChainCurrency returns the currency of the pair which is locked on a chain
// with a contract. For swaps it is the currency the counterparty sends, for
// reverse swaps it is the one we send.
func ChainCurrency(pair string, side OrderSide, isReverse bool) (string, error) {
	base, quote, err := SplitPairID(pair)
	if err != nil {
		return "", err
	}

	if isReverse {
		if side == OrderSideBuy {
			return base, nil
		}
		return quote, nil
	}

	if side == OrderSideBuy {
		return quote, nil
	}
	return base, nil
}

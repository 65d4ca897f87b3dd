package types

import (
	"encoding/hex"

	"github.com/questx-lab/swapd/internal/model"
)

type TransactionKind int

const (
	// The chain-native transaction, its serialization is known.
	TransactionNative TransactionKind = iota

	// Only the id of the transaction is known.
	TransactionReference
)

type Transaction struct {
	Kind TransactionKind

	// Hash is the canonical id on both kinds.
	Hash string
	Raw  []byte

	// Failed is the chain-native failure indicator, eg. a reverted receipt.
	Failed        bool
	FailureReason string
	BlockHeight   int64
}

func NewNativeTransaction(hash string, raw []byte) *Transaction {
	return &Transaction{Kind: TransactionNative, Hash: hash, Raw: raw}
}

func NewReferenceTransaction(id string) *Transaction {
	return &Transaction{Kind: TransactionReference, Hash: id}
}

func (t *Transaction) IsNative() bool {
	return t.Kind == TransactionNative
}

// Info is the public projection of the transaction. A zero eta is omitted.
func (t *Transaction) Info(eta int) *model.TransactionInfo {
	info := &model.TransactionInfo{ID: t.Hash, Eta: eta}
	if t.IsNative() && len(t.Raw) > 0 {
		info.Hex = hex.EncodeToString(t.Raw)
	}

	return info
}

package blockchain

import (
	"context"

	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
)

// Provider is the source of blocks, swap contract logs and transactions of a
// chain. Each subscription channel has a single consumer.
type Provider interface {
	Chain() string
	Start(ctx context.Context)

	SubscribeBlocks() <-chan int64

	// Lockup and claim logs are delivered in the order of the chain.
	SubscribeContractLogs() <-chan *types.ContractLog

	// Transactions registered by TrackTransaction are delivered once mined.
	SubscribeTransactions() <-chan *types.Transaction

	TrackTransaction(ctx context.Context, id string) error
	FetchTransaction(ctx context.Context, id string) (*types.Transaction, error)

	// NormalizeTransactionID returns the id in the form the provider reports
	// transactions with.
	NormalizeTransactionID(id string) string
}

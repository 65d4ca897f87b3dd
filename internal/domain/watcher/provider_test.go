package watcher

import (
	"context"
	"errors"
	"sync"

	"github.com/questx-lab/swapd/internal/domain/blockchain/types"
)

type mockProvider struct {
	chain string

	heightCh chan int64
	logCh    chan *types.ContractLog
	txCh     chan *types.Transaction

	mu       sync.Mutex
	txs      map[string]*types.Transaction
	failures map[string]int
	tracked  []string
}

func newMockProvider(chain string) *mockProvider {
	return &mockProvider{
		chain:    chain,
		heightCh: make(chan int64, 16),
		logCh:    make(chan *types.ContractLog, 16),
		txCh:     make(chan *types.Transaction, 16),
		txs:      make(map[string]*types.Transaction),
		failures: make(map[string]int),
	}
}

// setTransaction makes FetchTransaction fail n times before returning tx.
func (p *mockProvider) setTransaction(tx *types.Transaction, failures int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.txs[tx.Hash] = tx
	p.failures[tx.Hash] = failures
}

func (p *mockProvider) Chain() string                                    { return p.chain }
func (p *mockProvider) Start(ctx context.Context)                        {}
func (p *mockProvider) SubscribeBlocks() <-chan int64                    { return p.heightCh }
func (p *mockProvider) SubscribeContractLogs() <-chan *types.ContractLog { return p.logCh }
func (p *mockProvider) SubscribeTransactions() <-chan *types.Transaction { return p.txCh }

func (p *mockProvider) TrackTransaction(ctx context.Context, id string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.tracked = append(p.tracked, id)
	return nil
}

func (p *mockProvider) NormalizeTransactionID(id string) string {
	return id
}

func (p *mockProvider) FetchTransaction(ctx context.Context, id string) (*types.Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.failures[id] > 0 {
		p.failures[id]--
		return nil, errors.New("rpc unavailable")
	}

	tx, ok := p.txs[id]
	if !ok {
		return nil, errors.New("not found")
	}

	return tx, nil
}

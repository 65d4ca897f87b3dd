package blockchain

import (
	"context"
	"fmt"
	"sort"

	"github.com/questx-lab/swapd/internal/domain/blockchain/eth"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"github.com/questx-lab/swapd/pkg/xredis"
)

type BlockchainManager struct {
	providers map[string]Provider
}

func NewBlockchainManager() *BlockchainManager {
	return &BlockchainManager{providers: make(map[string]Provider)}
}

// NewBlockchainManagerFromConfig creates an EVM provider for every configured
// chain.
func NewBlockchainManagerFromConfig(ctx context.Context, redisClient xredis.Client) (*BlockchainManager, error) {
	m := NewBlockchainManager()
	cfg := xcontext.Configs(ctx)

	for _, chain := range cfg.Chains {
		if len(chain.Rpcs) == 0 {
			return nil, fmt.Errorf("chain %s has no rpc", chain.Chain)
		}

		provider, err := eth.NewEthProvider(
			chain, eth.NewEthClients(chain), redisClient, cfg.Nursery.EventBufferSize)
		if err != nil {
			return nil, fmt.Errorf("cannot create provider of chain %s: %w", chain.Chain, err)
		}

		if err := m.Register(provider); err != nil {
			return nil, err
		}
	}

	return m, nil
}

func (m *BlockchainManager) Register(provider Provider) error {
	if _, ok := m.providers[provider.Chain()]; ok {
		return fmt.Errorf("chain %s is already registered", provider.Chain())
	}

	m.providers[provider.Chain()] = provider
	return nil
}

func (m *BlockchainManager) Provider(chain string) (Provider, bool) {
	provider, ok := m.providers[chain]
	return provider, ok
}

// Providers returns the providers sorted by chain name.
func (m *BlockchainManager) Providers() []Provider {
	result := make([]Provider, 0, len(m.providers))
	for _, provider := range m.providers {
		result = append(result, provider)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Chain() < result[j].Chain()
	})

	return result
}

func (m *BlockchainManager) Start(ctx context.Context) {
	for _, provider := range m.Providers() {
		provider.Start(ctx)
	}
}

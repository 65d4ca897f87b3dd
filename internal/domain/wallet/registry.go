package wallet

import (
	"fmt"

	"github.com/puzpuzpuz/xsync"
	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/pkg/enum"
)

// Registry holds the wallets keyed by currency symbol. It is filled during
// startup and only read afterwards.
type Registry struct {
	wallets *xsync.MapOf[string, *Wallet]
}

func NewRegistry() *Registry {
	return &Registry{wallets: xsync.NewMapOf[*Wallet]()}
}

func NewRegistryFromConfig(cfgs []config.WalletConfig) (*Registry, error) {
	r := NewRegistry()
	for _, cfg := range cfgs {
		walletType, err := enum.ToEnum[Type](cfg.Type)
		if err != nil {
			return nil, fmt.Errorf("invalid type of wallet %s: %w", cfg.Symbol, err)
		}

		if walletType == TypeERC20 && cfg.TokenAddress == "" {
			return nil, fmt.Errorf("wallet %s has no token address", cfg.Symbol)
		}

		err = r.Register(&Wallet{
			Symbol:       cfg.Symbol,
			Chain:        cfg.Chain,
			Type:         walletType,
			TokenAddress: cfg.TokenAddress,
			Decimals:     cfg.Decimals,
		})
		if err != nil {
			return nil, err
		}
	}

	return r, nil
}

func (r *Registry) Register(w *Wallet) error {
	if _, loaded := r.wallets.LoadOrStore(w.Symbol, w); loaded {
		return fmt.Errorf("wallet %s is already registered", w.Symbol)
	}

	return nil
}

func (r *Registry) Get(symbol string) (*Wallet, bool) {
	return r.wallets.Load(symbol)
}

func (r *Registry) ForChain(chain string) []*Wallet {
	var result []*Wallet
	r.wallets.Range(func(_ string, w *Wallet) bool {
		if w.OnChain(chain) {
			result = append(result, w)
		}
		return true
	})

	return result
}

package testutil

import (
	"context"
	"time"

	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/migration"
	"github.com/questx-lab/swapd/pkg/logger"
	"github.com/questx-lab/swapd/pkg/xcontext"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewMockContext returns a context carrying an in-memory database with the
// latest schema and the configuration of the fixtures.
func NewMockContext() context.Context {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	// Every connection to :memory: opens a new database.
	sqlDB, err := db.DB()
	if err != nil {
		panic(err)
	}
	sqlDB.SetMaxOpenConns(1)

	validatesClaimAddress := true
	cfg := config.Configs{
		Env:      "test",
		LogLevel: "debug",
		Nursery: config.NurseryConfigs{
			EventBufferSize:         64,
			ReverseSwapMempoolEta:   2,
			ReconcileMaxElapsedTime: time.Second,
		},
		Chains: []config.ChainConfig{
			{
				Chain:                 ChainEth,
				Rpcs:                  []string{"http://localhost:8545"},
				BlockTime:             12,
				AdjustTime:            1,
				ThresholdUpdateBlock:  1,
				EtherSwapAddress:      EtherSwapAddress,
				ERC20SwapAddress:      ERC20SwapAddress,
				ClaimAddress:          ClaimAddress,
				ValidatesClaimAddress: &validatesClaimAddress,
			},
		},
		Wallets: []config.WalletConfig{
			{Symbol: SymbolETH, Chain: ChainEth, Type: "ether", Decimals: 18},
			{Symbol: SymbolUSDT, Chain: ChainEth, Type: "erc20", TokenAddress: USDTAddress, Decimals: 6},
			{Symbol: SymbolBTC, Chain: ChainBitcoin, Type: "utxo", Decimals: 8},
		},
	}

	ctx := context.Background()
	ctx = xcontext.WithConfigs(ctx, cfg)
	ctx = xcontext.WithLogger(ctx, logger.NewLogger(logger.DEBUG))
	ctx = xcontext.WithDB(ctx, db)

	if err := migration.AutoMigrate(ctx); err != nil {
		panic(err)
	}

	return ctx
}

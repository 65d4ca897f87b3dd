package config

import (
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

type Configs struct {
	Env      string
	LogLevel string

	Database         DatabaseConfigs
	PrometheusServer ServerConfigs
	Redis            RedisConfigs
	Kafka            KafkaConfigs
	Nursery          NurseryConfigs

	Chains  []ChainConfig
	Wallets []WalletConfig
}

type DatabaseConfigs struct {
	Host     string
	Port     string
	Database string
	User     string
	Password string
}

func (d *DatabaseConfigs) ConnectionString() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.User,
		d.Password,
		d.Host,
		d.Port,
		d.Database,
	)
}

type ServerConfigs struct {
	Host string
	Port string
}

func (c ServerConfigs) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

type RedisConfigs struct {
	Addr string
}

type KafkaConfigs struct {
	Addr     string
	ClientID string
	GroupID  string
}

type NurseryConfigs struct {
	// Size of the buffered channels between watchers, the aggregator and the
	// normalizer.
	EventBufferSize int

	// Expected time until a reverse swap lockup is confirmed, reported to
	// clients together with the mempool transaction.
	ReverseSwapMempoolEta int

	// Upper bound of the background retries of a reconciliation fetch.
	ReconcileMaxElapsedTime time.Duration
}

type ChainConfig struct {
	Chain string   `toml:"chain" json:"chain"`
	Rpcs  []string `toml:"rpcs" json:"rpcs"`

	BlockTime            int `toml:"block_time" json:"block_time"`
	AdjustTime           int `toml:"adjust_time" json:"adjust_time"`
	ThresholdUpdateBlock int `toml:"threshold_update_block" json:"threshold_update_block"`

	EtherSwapAddress string `toml:"ether_swap_address" json:"ether_swap_address"`
	ERC20SwapAddress string `toml:"erc20_swap_address" json:"erc20_swap_address"`

	// Address that must be the claim address of counterparty lockups.
	ClaimAddress string `toml:"claim_address" json:"claim_address"`

	// Some chains put placeholder values into the claim address field of
	// lockups, the claim address cannot be checked on them.
	ValidatesClaimAddress *bool `toml:"validates_claim_address" json:"validates_claim_address"`
}

func (c ChainConfig) ClaimAddressValidated() bool {
	return c.ValidatesClaimAddress == nil || *c.ValidatesClaimAddress
}

type WalletConfig struct {
	Symbol       string `toml:"symbol" json:"symbol"`
	Chain        string `toml:"chain" json:"chain"`
	Type         string `toml:"type" json:"type"`
	TokenAddress string `toml:"token_address" json:"token_address"`
	Decimals     int    `toml:"decimals" json:"decimals"`
}

func Load(path string) (Configs, error) {
	cfg := Configs{
		Env:      "local",
		LogLevel: "info",
		Nursery: NurseryConfigs{
			EventBufferSize:         1024,
			ReverseSwapMempoolEta:   2,
			ReconcileMaxElapsedTime: 30 * time.Minute,
		},
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Configs{}, fmt.Errorf("cannot decode config file %s: %w", path, err)
	}

	return cfg, nil
}

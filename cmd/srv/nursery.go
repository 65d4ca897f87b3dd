package main

import (
	"fmt"

	"github.com/questx-lab/swapd/internal/domain/blockchain"
	"github.com/questx-lab/swapd/internal/domain/normalizer"
	"github.com/questx-lab/swapd/internal/domain/nursery"
	"github.com/questx-lab/swapd/internal/domain/wallet"
	"github.com/questx-lab/swapd/internal/domain/watcher"
	"github.com/questx-lab/swapd/internal/model"
	"github.com/questx-lab/swapd/pkg/kafka"
	"github.com/questx-lab/swapd/pkg/logger"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"github.com/urfave/cli/v2"
)

func (s *srv) startNursery(*cli.Context) error {
	s.ctx = xcontext.WithDB(s.ctx, s.newDatabase())
	s.migrateDB()
	s.loadRedisClient()
	s.loadPublisher()
	s.loadRepos()

	cfg := xcontext.Configs(s.ctx)

	wallets, err := wallet.NewRegistryFromConfig(cfg.Wallets)
	if err != nil {
		return err
	}

	blockchainManager, err := blockchain.NewBlockchainManagerFromConfig(s.ctx, s.redisClient)
	if err != nil {
		return err
	}

	aggregator := nursery.NewSwapAggregator(
		blockchainManager,
		wallets,
		s.publisher,
		s.swapRepo,
		s.reverseSwapRepo,
		s.channelCreationRepo,
		cfg.Nursery.EventBufferSize,
	)

	for _, chain := range cfg.Chains {
		provider, ok := blockchainManager.Provider(chain.Chain)
		if !ok {
			return fmt.Errorf("no provider of chain %s", chain.Chain)
		}

		chainWatcher := watcher.NewChainWatcher(
			chain,
			provider,
			wallets,
			s.swapRepo,
			s.reverseSwapRepo,
			cfg.Nursery.EventBufferSize,
			cfg.Nursery.ReconcileMaxElapsedTime,
		)
		aggregator.AddSource(chainWatcher)

		chainCtx := xcontext.WithLogger(s.ctx,
			logger.NewLoggerWithPrefix(logger.ParseLevel(cfg.LogLevel), chain.Chain))
		chainWatcher.Start(chainCtx)
	}

	eventNormalizer := normalizer.NewEventNormalizer(cfg.Nursery.ReverseSwapMempoolEta)
	eventNormalizer.Register(normalizer.NewKafkaObserver(s.publisher))
	eventNormalizer.Register(normalizer.NewPrometheusObserver())
	eventNormalizer.Start(s.ctx, aggregator.Events(), aggregator)

	invoiceSubscriber, err := kafka.NewSubscriber(
		cfg.Kafka.GroupID,
		[]string{cfg.Kafka.Addr},
		[]string{model.SwapInvoiceTopic},
		aggregator.Subscribe,
	)
	if err != nil {
		return err
	}

	go aggregator.Start(s.ctx)
	blockchainManager.Start(s.ctx)
	go invoiceSubscriber.Subscribe(s.ctx)

	xcontext.Logger(s.ctx).Infof("Started nursery of %d chains", len(cfg.Chains))
	return s.startPrometheus()
}

package main

import (
	"context"
	"net/http"

	"github.com/questx-lab/swapd/config"
	"github.com/questx-lab/swapd/internal/repository"
	"github.com/questx-lab/swapd/migration"
	"github.com/questx-lab/swapd/pkg/kafka"
	"github.com/questx-lab/swapd/pkg/logger"
	"github.com/questx-lab/swapd/pkg/prometheus"
	"github.com/questx-lab/swapd/pkg/pubsub"
	"github.com/questx-lab/swapd/pkg/xcontext"
	"github.com/questx-lab/swapd/pkg/xredis"
	"github.com/urfave/cli/v2"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

type srv struct {
	app *cli.App
	ctx context.Context

	redisClient xredis.Client
	publisher   pubsub.Publisher

	swapRepo            repository.SwapRepository
	reverseSwapRepo     repository.ReverseSwapRepository
	channelCreationRepo repository.ChannelCreationRepository
}

func (s *srv) loadConfig(cctx *cli.Context) error {
	cfg, err := config.Load(cctx.String("config"))
	if err != nil {
		return err
	}

	s.ctx = context.Background()
	s.ctx = xcontext.WithConfigs(s.ctx, cfg)
	s.ctx = xcontext.WithLogger(s.ctx, logger.NewLogger(logger.ParseLevel(cfg.LogLevel)))
	return nil
}

func (s *srv) newDatabase() *gorm.DB {
	cfg := xcontext.Configs(s.ctx)

	db, err := gorm.Open(mysql.New(mysql.Config{
		DSN:                       cfg.Database.ConnectionString(), // data source name
		DefaultStringSize:         256,                             // default size for string fields
		DisableDatetimePrecision:  true,                            // disable datetime precision, which not supported before MySQL 5.6
		DontSupportRenameIndex:    true,                            // drop & create when rename index, rename index not supported before MySQL 5.7, MariaDB
		DontSupportRenameColumn:   true,                            // `change` when rename column, rename column not supported before MySQL 8, MariaDB
		SkipInitializeWithVersion: false,                           // auto configure based on currently MySQL version
	}), &gorm.Config{})
	if err != nil {
		panic(err)
	}

	return db
}

func (s *srv) migrateDB() {
	if err := migration.AutoMigrate(s.ctx); err != nil {
		panic(err)
	}
}

func (s *srv) loadRedisClient() {
	var err error
	s.redisClient, err = xredis.NewClient(s.ctx)
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadPublisher() {
	cfg := xcontext.Configs(s.ctx)

	var err error
	s.publisher, err = kafka.NewPublisher(cfg.Kafka.ClientID, []string{cfg.Kafka.Addr})
	if err != nil {
		panic(err)
	}
}

func (s *srv) loadRepos() {
	s.swapRepo = repository.NewSwapRepository()
	s.reverseSwapRepo = repository.NewReverseSwapRepository()
	s.channelCreationRepo = repository.NewChannelCreationRepository()
}

func (s *srv) startPrometheus() error {
	cfg := xcontext.Configs(s.ctx)

	httpSrv := &http.Server{
		Addr:    cfg.PrometheusServer.Address(),
		Handler: prometheus.NewHandler(),
	}

	xcontext.Logger(s.ctx).Infof("Starting prometheus on port: %s", cfg.PrometheusServer.Port)
	if err := httpSrv.ListenAndServe(); err != nil {
		xcontext.Logger(s.ctx).Errorf("An error occurs when running prometheus server: %v", err)
		return err
	}

	return nil
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/config"
	"github.com/tdex-network/nftswap-daemon/internal/core/application"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	ledgerhttp "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/http"
	ledgerinmemory "github.com/tdex-network/nftswap-daemon/internal/infrastructure/ledger/inmemory"
	"github.com/tdex-network/nftswap-daemon/internal/infrastructure/pubsub"
	postgresdb "github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/pg"
	httpinterface "github.com/tdex-network/nftswap-daemon/internal/interfaces/http"
	"github.com/tdex-network/nftswap-daemon/pkg/stats"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := config.InitConfig(); err != nil {
		log.WithError(err).Fatal("failed to initialize config")
	}

	log.SetLevel(log.Level(config.GetInt(config.LogLevelKey)))

	datadir := config.GetDatadir()
	dbType := config.GetString(config.DBTypeKey)
	httpAddress := fmt.Sprintf(":%d", config.GetInt(config.HTTPListeningPortKey))
	metricsAddress := fmt.Sprintf(":%d", config.GetInt(config.MetricsListeningPortKey))
	profilerEnabled := config.GetBool(config.EnableProfilerKey)
	statsInterval := config.GetDuration(config.StatsIntervalKey)

	metrics := stats.NewMetrics()

	ledger, err := newLedger(metrics)
	if err != nil {
		log.WithError(err).Fatal("failed to initialize ledger")
	}
	defer ledger.Close()

	// Webhook subscriptions live next to the swap db, in memory if the db is.
	pubsubDir := datadir
	if dbType == application.DBInMemory {
		pubsubDir = ""
	}
	pubsubSvc, err := pubsub.NewService(pubsubDir, log.New())
	if err != nil {
		log.WithError(err).Fatal("failed to initialize pubsub")
	}
	defer pubsubSvc.Close()

	var dbConfig interface{}
	switch dbType {
	case application.DBBadger:
		dbConfig = filepath.Join(datadir, config.DbLocation)
	case application.DBPostgres:
		dbConfig = postgresdb.DbConfig{
			DataSourceURL:      config.GetString(config.PgConnectAddrKey),
			MigrationSourceURL: config.GetString(config.PgMigrationSourceKey),
		}
	}

	appConfig := &application.Config{
		DBType:         dbType,
		DBConfig:       dbConfig,
		Ledger:         ledger,
		PubSub:         pubsubSvc,
		AdminAccount:   config.GetString(config.AdminAccountKey),
		FeeCollector:   config.GetFeeCollector(),
		EscrowAccount:  config.GetString(config.EscrowAccountKey),
		InitialFeeRate: config.GetUint64(config.InitialFeeRateKey),
		DefaultSwapTTL: config.GetDuration(config.DefaultSwapTTLKey),
		MaxSwapTTL:     config.GetDuration(config.MaxSwapTTLKey),
		Metrics:        metrics,
	}
	if err := appConfig.Validate(); err != nil {
		log.WithError(err).Fatal("failed to initialize application services")
	}
	defer appConfig.RepoManager().Close()

	httpSvc, err := httpinterface.NewService(httpinterface.ServiceOpts{
		Address:           httpAddress,
		AdminToken:        config.GetString(config.AdminTokenKey),
		AdminAccount:      config.GetString(config.AdminAccountKey),
		FeeTokenPrecision: uint(config.GetInt(config.FeeTokenPrecisionKey)),
		MaxConnections:    config.GetInt(config.HTTPMaxConnectionsKey),
		SwapSvc:           appConfig.SwapService(),
		FeeSvc:            appConfig.FeeService(),
		WebhookSvc:        appConfig.WebhookService(),
	})
	if err != nil {
		log.WithError(err).Fatal("failed to initialize http interface")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if profilerEnabled {
		stats.EnableMemoryStatistics(
			ctx, statsInterval,
			filepath.Join(datadir, config.ProfilerLocation), metrics.Registry,
		)
	}

	log.Debug("starting daemon")

	if err := httpSvc.Start(); err != nil {
		log.WithError(err).Fatal("failed to start http interface")
	}
	defer httpSvc.Stop()

	metricsServer := &http.Server{
		Addr: metricsAddress,
		Handler: promhttp.HandlerFor(
			metrics.Registry, promhttp.HandlerOpts{Registry: metrics.Registry},
		),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egCtx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		log.Infof("metrics listening on %s", metricsAddress)
		if err := metricsServer.ListenAndServe(); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	eg.Go(func() error {
		<-egCtx.Done()
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(), 5*time.Second,
		)
		defer cancel()
		return metricsServer.Shutdown(shutdownCtx)
	})

	log.Info("daemon started")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT)

	select {
	case <-sigChan:
	case <-egCtx.Done():
		log.Warn("a listener stopped unexpectedly, shutting down")
	}
	cancel()

	if err := eg.Wait(); err != nil {
		log.WithError(err).Warn("failed to stop metrics listener")
	}

	log.Info("shutting down daemon")
}

func newLedger(metrics *stats.Metrics) (ports.Ledger, error) {
	switch config.GetString(config.LedgerTypeKey) {
	case config.LedgerInMemory:
		seedFile := config.GetString(config.LedgerSeedFileKey)
		if len(seedFile) <= 0 {
			log.Warn("using an empty inmemory ledger")
			return ledgerinmemory.NewLedger(), nil
		}
		ledger, err := ledgerinmemory.NewLedgerFromFile(seedFile)
		if err != nil {
			return nil, err
		}
		return ledger, nil
	default:
		return ledgerhttp.NewLedger(ledgerhttp.Config{
			URL:       config.GetString(config.LedgerAddrKey),
			Timeout:   config.GetDuration(config.LedgerTimeoutKey),
			RateLimit: config.GetInt(config.LedgerRateLimitKey),
			Metrics:   metrics,
		})
	}
}

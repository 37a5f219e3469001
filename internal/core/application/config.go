package application

import (
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	dbbadger "github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/badger"
	"github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/inmemory"
	postgresdb "github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/pg"
	"github.com/tdex-network/nftswap-daemon/pkg/stats"
)

const (
	DBBadger   = "badger"
	DBPostgres = "postgres"
	DBInMemory = "inmemory"

	// DefaultEscrowAccount is the ledger account holding the assets in
	// custody if none is configured.
	DefaultEscrowAccount = "nftswap-escrow"
)

var (
	SupportedDBType = map[string]struct{}{
		DBBadger:   {},
		DBPostgres: {},
		DBInMemory: {},
	}
)

// Config wires the services of the daemon. DBConfig is the datadir for
// badger and a postgresdb.DbConfig for postgres.
type Config struct {
	DBType   string
	DBConfig interface{}

	Ledger         ports.Ledger
	PubSub         ports.PubSub
	AdminAccount   string
	FeeCollector   string
	EscrowAccount  string
	InitialFeeRate uint64
	DefaultSwapTTL time.Duration
	MaxSwapTTL     time.Duration
	Metrics        *stats.Metrics
	Now            func() time.Time

	repo    ports.RepoManager
	fee     FeeService
	swap    SwapService
	webhook WebhookService
}

func (c *Config) Validate() error {
	if _, ok := SupportedDBType[c.DBType]; !ok {
		return fmt.Errorf("%w: %s", ErrUnknownDBType, c.DBType)
	}
	if c.Ledger == nil {
		return ErrMissingLedger
	}
	if _, err := c.repoManager(); err != nil {
		return err
	}
	if _, err := c.feeService(); err != nil {
		return err
	}
	if _, err := c.swapService(); err != nil {
		return err
	}
	return nil
}

func (c *Config) RepoManager() ports.RepoManager {
	svc, _ := c.repoManager()
	return svc
}

func (c *Config) FeeService() FeeService {
	svc, _ := c.feeService()
	return svc
}

func (c *Config) SwapService() SwapService {
	svc, _ := c.swapService()
	return svc
}

// WebhookService returns nil if no PubSub is configured.
func (c *Config) WebhookService() WebhookService {
	svc, _ := c.webhookService()
	return svc
}

func (c *Config) repoManager() (ports.RepoManager, error) {
	if c.repo == nil {
		switch c.DBType {
		case DBBadger:
			datadir, _ := c.DBConfig.(string)
			repoManager, err := dbbadger.NewRepoManager(datadir, log.New())
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBPostgres:
			dbConfig, ok := c.DBConfig.(postgresdb.DbConfig)
			if !ok {
				return nil, fmt.Errorf("invalid postgres db config")
			}
			repoManager, err := postgresdb.NewService(dbConfig)
			if err != nil {
				return nil, err
			}
			c.repo = repoManager
		case DBInMemory:
			c.repo = inmemory.NewRepoManager()
		default:
			return nil, fmt.Errorf("%w: %s", ErrUnknownDBType, c.DBType)
		}
	}
	return c.repo, nil
}

func (c *Config) feeService() (FeeService, error) {
	if c.fee == nil {
		repo, err := c.repoManager()
		if err != nil {
			return nil, err
		}
		fee, err := NewFeeService(
			repo, c.AdminAccount, c.FeeCollector, c.InitialFeeRate, c.Now,
		)
		if err != nil {
			return nil, err
		}
		c.fee = fee
	}
	return c.fee, nil
}

func (c *Config) swapService() (SwapService, error) {
	if c.swap == nil {
		// The fee policy must exist before any proposal.
		if _, err := c.feeService(); err != nil {
			return nil, err
		}
		escrowAccount := c.EscrowAccount
		if len(escrowAccount) <= 0 {
			escrowAccount = DefaultEscrowAccount
		}
		repo, _ := c.repoManager()
		swap, err := NewSwapService(
			repo, c.Ledger, c.PubSub, escrowAccount,
			c.DefaultSwapTTL, c.MaxSwapTTL, c.Metrics, c.Now,
		)
		if err != nil {
			return nil, err
		}
		c.swap = swap
	}
	return c.swap, nil
}

func (c *Config) webhookService() (WebhookService, error) {
	if c.webhook == nil {
		webhook, err := NewWebhookService(c.PubSub)
		if err != nil {
			return nil, err
		}
		c.webhook = webhook
	}
	return c.webhook, nil
}

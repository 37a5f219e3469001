package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/btcsuite/btcd/btcutil"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
	"github.com/tdex-network/nftswap-daemon/internal/core/ports"
	dbbadger "github.com/tdex-network/nftswap-daemon/internal/infrastructure/storage/db/badger"
)

const dbLocation = "db"

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"

	defaultDatadir = btcutil.AppDataDir("nftswap-daemon", false)

	app = &cobra.Command{
		Use:   "nftswapdb",
		Short: "offline inspection of a nftswapd badger datadir",
		Long: "nftswapdb opens the badger store of a stopped nftswapd and " +
			"exports its content as JSON",
		Version:       formatVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	datadir string
	status  string
	party   string
)

func init() {
	app.PersistentFlags().StringVarP(&datadir, "datadir", "d", defaultDatadir, "the daemon datadir")

	swapsCmd := &cobra.Command{
		Use:   "swaps",
		Short: "export swaps, optionally filtered by party and status",
		RunE:  exportSwaps,
	}
	swapsCmd.Flags().StringVarP(&status, "status", "s", "", "only swaps in the given status")
	swapsCmd.Flags().StringVarP(&party, "party", "p", "", "only swaps involving the given account")

	app.AddCommand(
		swapsCmd,
		&cobra.Command{
			Use:   "events",
			Short: "export the history of every swap",
			RunE:  exportEvents,
		},
		&cobra.Command{
			Use:   "custody",
			Short: "export the active custody entries",
			RunE:  exportCustody,
		},
		&cobra.Command{
			Use:   "fee",
			Short: "export the fee policy",
			RunE:  exportFeePolicy,
		},
	)
}

func main() {
	if err := app.Execute(); err != nil {
		log.Fatal(err)
	}
}

func exportSwaps(cmd *cobra.Command, args []string) error {
	filter := domain.SwapFilter{Party: party}
	if len(status) > 0 {
		s, err := domain.ParseSwapStatus(status)
		if err != nil {
			return err
		}
		filter.Status = s
	}

	return withRepoManager(func(ctx context.Context, repo ports.RepoManager) error {
		swaps, err := repo.SwapRepository().GetSwaps(ctx, filter, nil)
		if err != nil {
			return err
		}
		out := make([]swapView, 0, len(swaps))
		for _, s := range swaps {
			out = append(out, newSwapView(s))
		}
		return printJSON(os.Stdout, out)
	})
}

func exportEvents(cmd *cobra.Command, args []string) error {
	return withRepoManager(func(ctx context.Context, repo ports.RepoManager) error {
		events, err := repo.SwapEventRepository().GetAllEvents(ctx)
		if err != nil {
			return err
		}
		out := make([]eventView, 0, len(events))
		for _, e := range events {
			out = append(out, newEventView(e))
		}
		return printJSON(os.Stdout, out)
	})
}

func exportCustody(cmd *cobra.Command, args []string) error {
	return withRepoManager(func(ctx context.Context, repo ports.RepoManager) error {
		entries, err := repo.EscrowRepository().GetAllEntries(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, entries)
	})
}

func exportFeePolicy(cmd *cobra.Command, args []string) error {
	return withRepoManager(func(ctx context.Context, repo ports.RepoManager) error {
		policy, err := repo.FeePolicyRepository().GetFeePolicy(ctx)
		if err != nil {
			return err
		}
		return printJSON(os.Stdout, policy)
	})
}

func withRepoManager(
	fn func(ctx context.Context, repo ports.RepoManager) error,
) error {
	dbDir := filepath.Join(datadir, dbLocation)
	if _, err := os.Stat(dbDir); err != nil {
		return fmt.Errorf("datadir %s has no db: %w", datadir, err)
	}

	logger := log.New()
	logger.SetLevel(log.WarnLevel)
	repo, err := dbbadger.NewRepoManager(dbDir, logger)
	if err != nil {
		return err
	}
	defer repo.Close()

	ctx := context.Background()
	_, err = repo.RunTransaction(
		ctx, true, func(ctx context.Context) (interface{}, error) {
			return nil, fn(ctx, repo)
		},
	)
	return err
}

type swapView struct {
	domain.Swap
	Status  string `json:"Status"`
	FeeOwed uint64
}

func newSwapView(s domain.Swap) swapView {
	return swapView{s, s.Status.String(), s.FeeOwed()}
}

type eventView struct {
	domain.SwapEvent
	Status string `json:"Status"`
}

func newEventView(e domain.SwapEvent) eventView {
	return eventView{e, e.Status.String()}
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatVersion() string {
	return fmt.Sprintf(
		"Version: %s\nCommit: %s\nDate: %s",
		version, commit, date,
	)
}

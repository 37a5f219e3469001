package ports

import (
	"context"

	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

// RepoManager groups the repositories of the daemon and allows to run
// handlers that read from and write to several of them atomically.
type RepoManager interface {
	SwapRepository() domain.SwapRepository
	EscrowRepository() domain.EscrowRepository
	FeePolicyRepository() domain.FeePolicyRepository
	SwapEventRepository() domain.SwapEventRepository

	// RunTransaction invokes handler with a context bound to a new
	// transaction. The transaction is committed if handler returns no error,
	// discarded otherwise.
	RunTransaction(
		ctx context.Context,
		readOnly bool,
		handler func(ctx context.Context) (interface{}, error),
	) (interface{}, error)

	Close()
}

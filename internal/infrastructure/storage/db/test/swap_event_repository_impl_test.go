package db_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

func TestSwapEventRepositoryImplementations(t *testing.T) {
	repositories := createRepoManagers(t)

	for i := range repositories {
		repo := repositories[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Parallel()
			testSwapEvents(t, repo)
		})
	}
}

func testSwapEvents(t *testing.T, repo repoManager) {
	ctx := context.Background()
	eventRepo := repo.DBManager.SwapEventRepository()
	swap := addRandomSwap(t, repo, randomHex(10))
	other := addRandomSwap(t, repo, randomHex(10))

	events, err := eventRepo.GetEventsForSwap(ctx, swap.ID)
	require.NoError(t, err)
	require.Empty(t, events)

	proposed := domain.NewSwapEvent(
		swap, domain.SwapEventProposed, swap.Proposer, swap.CreatedAt,
	)
	otherProposed := domain.NewSwapEvent(
		other, domain.SwapEventProposed, other.Proposer, other.CreatedAt,
	)
	err = eventRepo.AddEvents(ctx, proposed, otherProposed)
	require.NoError(t, err)

	_, err = repo.write(func(ctx context.Context) (interface{}, error) {
		if _, err := swap.Cancel(swap.Proposer, swap.CreatedAt+5); err != nil {
			return nil, err
		}
		return nil, eventRepo.AddEvents(ctx, domain.NewSwapEvent(
			swap, domain.SwapEventCancelled, swap.Proposer, swap.CreatedAt+5,
		))
	})
	require.NoError(t, err)

	events, err = eventRepo.GetEventsForSwap(ctx, swap.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
	require.Equal(t, domain.SwapEventProposed, events[0].Type)
	require.Equal(t, domain.SwapStatusProposed, events[0].Status)
	require.Equal(t, domain.SwapEventCancelled, events[1].Type)
	require.Equal(t, domain.SwapStatusCancelled, events[1].Status)
	require.Greater(t, events[1].Seq, events[0].Seq)
	require.Equal(t, proposed.ID, events[0].ID)

	all, err := eventRepo.GetAllEvents(ctx)
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(all), 3)
	for i := 1; i < len(all); i++ {
		require.Greater(t, all[i].Seq, all[i-1].Seq)
	}
}

package db_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/tdex-network/nftswap-daemon/internal/core/domain"
)

func TestSwapRepositoryImplementations(t *testing.T) {
	repositories := createRepoManagers(t)

	for i := range repositories {
		repo := repositories[i]

		t.Run(repo.Name, func(t *testing.T) {
			t.Parallel()

			t.Run("testAddAndGetSwap", func(t *testing.T) {
				t.Parallel()
				testAddAndGetSwap(t, repo)
			})

			t.Run("testGetSwaps", func(t *testing.T) {
				t.Parallel()
				testGetSwaps(t, repo)
			})

			t.Run("testGetActiveSwaps", func(t *testing.T) {
				t.Parallel()
				testGetActiveSwaps(t, repo)
			})

			t.Run("testUpdateSwap", func(t *testing.T) {
				t.Parallel()
				testUpdateSwap(t, repo)
			})

			t.Run("testUpdateSwap_rollback", func(t *testing.T) {
				t.Parallel()
				testUpdateSwapRollback(t, repo)
			})
		})
	}
}

func testAddAndGetSwap(t *testing.T, repo repoManager) {
	ctx := context.Background()
	swapRepo := repo.DBManager.SwapRepository()

	swap, err := swapRepo.GetSwap(ctx, 1<<40)
	require.ErrorIs(t, err, domain.ErrSwapNotFound)
	require.Nil(t, swap)

	first := makeRandomSwap(randomHex(10))
	firstID, err := swapRepo.AddSwap(ctx, first)
	require.NoError(t, err)
	require.Equal(t, firstID, first.ID)

	second := makeRandomSwap(randomHex(10))
	secondID, err := swapRepo.AddSwap(ctx, second)
	require.NoError(t, err)
	require.Greater(t, secondID, firstID)

	swap, err = swapRepo.GetSwap(ctx, firstID)
	require.NoError(t, err)
	require.Exactly(t, *first, *swap)
}

func testGetSwaps(t *testing.T, repo repoManager) {
	ctx := context.Background()
	swapRepo := repo.DBManager.SwapRepository()
	party := randomHex(10)

	swaps := []*domain.Swap{
		addRandomSwap(t, repo, party),
		addRandomSwap(t, repo, party),
		addRandomSwap(t, repo, party),
	}
	addRandomSwap(t, repo, randomHex(10))

	err := swapRepo.UpdateSwap(
		ctx, swaps[1].ID, func(s *domain.Swap) (*domain.Swap, error) {
			_, err := s.Cancel(party, s.CreatedAt+1)
			return s, err
		},
	)
	require.NoError(t, err)

	found, err := swapRepo.GetSwaps(ctx, domain.SwapFilter{Party: party}, nil)
	require.NoError(t, err)
	require.Len(t, found, 3)
	for i, s := range found {
		require.Equal(t, swaps[i].ID, s.ID)
	}

	found, err = swapRepo.GetSwaps(ctx, domain.SwapFilter{
		Party:  party,
		Status: domain.SwapStatusCancelled,
	}, nil)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, swaps[1].ID, found[0].ID)

	page := domain.NewPage(2, 2)
	found, err = swapRepo.GetSwaps(ctx, domain.SwapFilter{Party: party}, &page)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, swaps[2].ID, found[0].ID)

	page = domain.NewPage(3, 2)
	found, err = swapRepo.GetSwaps(ctx, domain.SwapFilter{Party: party}, &page)
	require.NoError(t, err)
	require.Empty(t, found)
}

func testGetActiveSwaps(t *testing.T, repo repoManager) {
	ctx := context.Background()
	swapRepo := repo.DBManager.SwapRepository()
	party := randomHex(10)

	active := addRandomSwap(t, repo, party)
	cancelled := addRandomSwap(t, repo, party)
	err := swapRepo.UpdateSwap(
		ctx, cancelled.ID, func(s *domain.Swap) (*domain.Swap, error) {
			_, err := s.Cancel(party, s.CreatedAt+1)
			return s, err
		},
	)
	require.NoError(t, err)

	swaps, err := swapRepo.GetActiveSwaps(ctx)
	require.NoError(t, err)

	ids := make(map[uint64]struct{})
	for _, s := range swaps {
		require.True(t, s.Status.IsActive())
		ids[s.ID] = struct{}{}
	}
	require.Contains(t, ids, active.ID)
	require.NotContains(t, ids, cancelled.ID)
}

func testUpdateSwap(t *testing.T, repo repoManager) {
	ctx := context.Background()
	swapRepo := repo.DBManager.SwapRepository()
	swap := addRandomSwap(t, repo, randomHex(10))
	counterparty := randomHex(10)

	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		return nil, swapRepo.UpdateSwap(
			ctx, swap.ID, func(s *domain.Swap) (*domain.Swap, error) {
				if err := s.Accept(counterparty, s.CreatedAt+10); err != nil {
					return nil, err
				}
				if _, err := s.Cancel(counterparty, s.CreatedAt+20); err != nil {
					return nil, err
				}
				return s, nil
			},
		)
	})
	require.NoError(t, err)

	updated, err := swapRepo.GetSwap(ctx, swap.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SwapStatusAccepted, updated.Status)
	require.Equal(t, counterparty, updated.Counterparty)
	require.Equal(t, swap.CreatedAt+10, updated.AcceptedAt)
	require.Equal(t, []string{counterparty}, updated.CancelConsents)

	err = swapRepo.UpdateSwap(
		ctx, 1<<40, func(s *domain.Swap) (*domain.Swap, error) {
			return s, nil
		},
	)
	require.ErrorIs(t, err, domain.ErrSwapNotFound)
}

func testUpdateSwapRollback(t *testing.T, repo repoManager) {
	ctx := context.Background()
	swapRepo := repo.DBManager.SwapRepository()
	swap := addRandomSwap(t, repo, randomHex(10))
	expectedErr := errors.New("something went wrong")

	var newSwapID uint64
	_, err := repo.write(func(ctx context.Context) (interface{}, error) {
		if err := swapRepo.UpdateSwap(
			ctx, swap.ID, func(s *domain.Swap) (*domain.Swap, error) {
				err := s.Accept(randomHex(10), s.CreatedAt+1)
				return s, err
			},
		); err != nil {
			return nil, err
		}

		id, err := swapRepo.AddSwap(ctx, makeRandomSwap(randomHex(10)))
		if err != nil {
			return nil, err
		}
		newSwapID = id

		return nil, expectedErr
	})
	require.EqualError(t, err, expectedErr.Error())

	current, err := swapRepo.GetSwap(ctx, swap.ID)
	require.NoError(t, err)
	require.Equal(t, domain.SwapStatusProposed, current.Status)
	require.Empty(t, current.Counterparty)

	_, err = swapRepo.GetSwap(ctx, newSwapID)
	require.ErrorIs(t, err, domain.ErrSwapNotFound)

	_, err = repo.read(func(ctx context.Context) (interface{}, error) {
		return swapRepo.AddSwap(ctx, makeRandomSwap(randomHex(10)))
	})
	require.Error(t, err)
}

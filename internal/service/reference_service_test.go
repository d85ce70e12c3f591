package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ludium-Official/ludium-world-payment/internal/repository"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

func newReferenceService(f *fixture) *ReferenceService {
	return NewReferenceService(
		repository.NewCoinRepository(f.db),
		repository.NewNetworkRepository(f.db),
		repository.NewCoinNetworkRepository(f.db),
	)
}

func TestReferenceService_Coins(t *testing.T) {
	f := newFixture(t)
	svc := newReferenceService(f)
	ctx := context.Background()

	coins, err := svc.ListCoins(ctx)
	require.NoError(t, err)
	assert.Len(t, coins, 3)

	coin, err := svc.GetCoin(ctx, coins[0].ID)
	require.NoError(t, err)
	assert.Equal(t, coins[0].Symbol, coin.Symbol)

	_, err = svc.GetCoin(ctx, uuid.NewString())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestReferenceService_Networks(t *testing.T) {
	f := newFixture(t)
	svc := newReferenceService(f)
	ctx := context.Background()

	networks, err := svc.ListNetworks(ctx)
	require.NoError(t, err)
	require.Len(t, networks, 1)
	assert.Equal(t, "LOCAL", networks[0].Code)

	network, err := svc.GetNetwork(ctx, networks[0].ID)
	require.NoError(t, err)
	assert.Equal(t, "Local", network.Name)

	_, err = svc.GetNetwork(ctx, uuid.NewString())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

func TestReferenceService_CoinNetworks(t *testing.T) {
	f := newFixture(t)
	svc := newReferenceService(f)
	ctx := context.Background()

	all, err := svc.ListCoinNetworks(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)

	var ft string
	for _, cn := range all {
		require.NotNil(t, cn.Network)
		if cn.ID == f.ftCoinNetwork {
			require.NotNil(t, cn.Coin)
			assert.Equal(t, "FT", cn.Coin.CoinType)
			require.NotNil(t, cn.ContractAddress)
			ft = cn.Coin.ID
		}
		if cn.ID == f.orphanCoinNetwork {
			assert.Nil(t, cn.Coin)
		}
	}
	require.NotEmpty(t, ft)

	byCoin, err := svc.ListCoinNetworksByCoin(ctx, ft)
	require.NoError(t, err)
	require.Len(t, byCoin, 1)
	assert.Equal(t, f.ftCoinNetwork, byCoin[0].ID)

	_, err = svc.ListCoinNetworksByCoin(ctx, uuid.NewString())
	assert.True(t, apperrors.IsKind(err, apperrors.KindNotFound))
}

package service

import (
	"context"
	"errors"

	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
	"github.com/Ludium-Official/ludium-world-payment/internal/model"
	"github.com/Ludium-Official/ludium-world-payment/internal/repository"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

// ReferenceService 代币/网络参考数据查询
type ReferenceService struct {
	coins        repository.CoinRepository
	networks     repository.NetworkRepository
	coinNetworks repository.CoinNetworkRepository
}

// NewReferenceService 创建参考数据服务
func NewReferenceService(coins repository.CoinRepository, networks repository.NetworkRepository, coinNetworks repository.CoinNetworkRepository) *ReferenceService {
	return &ReferenceService{
		coins:        coins,
		networks:     networks,
		coinNetworks: coinNetworks,
	}
}

func (s *ReferenceService) ListCoins(ctx context.Context) ([]*dto.CoinResponse, error) {
	coins, err := s.coins.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list coins")
	}
	result := make([]*dto.CoinResponse, 0, len(coins))
	for _, c := range coins {
		result = append(result, dto.NewCoinResponse(c))
	}
	return result, nil
}

func (s *ReferenceService) GetCoin(ctx context.Context, id string) (*dto.CoinResponse, error) {
	coin, err := s.coins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrCoinNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "coin not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load coin")
	}
	return dto.NewCoinResponse(coin), nil
}

// ListCoinNetworksByCoin 代币部署的所有网络
func (s *ReferenceService) ListCoinNetworksByCoin(ctx context.Context, coinID string) ([]*dto.CoinNetworkResponse, error) {
	coin, err := s.coins.GetByID(ctx, coinID)
	if err != nil {
		if errors.Is(err, repository.ErrCoinNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "coin not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load coin")
	}

	cns, err := s.coinNetworks.ListByCoin(ctx, coinID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list coin networks")
	}
	return s.withNetworks(ctx, cns, func(*model.CoinNetwork) *model.Coin { return coin })
}

func (s *ReferenceService) ListNetworks(ctx context.Context) ([]*dto.NetworkResponse, error) {
	networks, err := s.networks.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list networks")
	}
	result := make([]*dto.NetworkResponse, 0, len(networks))
	for _, n := range networks {
		result = append(result, dto.NewNetworkResponse(n))
	}
	return result, nil
}

func (s *ReferenceService) GetNetwork(ctx context.Context, id string) (*dto.NetworkResponse, error) {
	network, err := s.networks.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNetworkNotFound) {
			return nil, apperrors.New(apperrors.KindNotFound, "network not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load network")
	}
	return dto.NewNetworkResponse(network), nil
}

// ListCoinNetworks 所有代币-网络组合, 附带代币与网络
func (s *ReferenceService) ListCoinNetworks(ctx context.Context) ([]*dto.CoinNetworkResponse, error) {
	cns, err := s.coinNetworks.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list coin networks")
	}

	coins, err := s.coins.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list coins")
	}
	byID := make(map[string]*model.Coin, len(coins))
	for _, c := range coins {
		byID[c.ID] = c
	}
	return s.withNetworks(ctx, cns, func(cn *model.CoinNetwork) *model.Coin { return byID[cn.CoinID] })
}

func (s *ReferenceService) withNetworks(ctx context.Context, cns []*model.CoinNetwork, coinOf func(*model.CoinNetwork) *model.Coin) ([]*dto.CoinNetworkResponse, error) {
	networks, err := s.networks.List(ctx)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list networks")
	}
	byID := make(map[string]*model.Network, len(networks))
	for _, n := range networks {
		byID[n.ID] = n
	}

	result := make([]*dto.CoinNetworkResponse, 0, len(cns))
	for _, cn := range cns {
		result = append(result, dto.NewCoinNetworkResponse(cn, coinOf(cn), byID[cn.NetworkID]))
	}
	return result, nil
}

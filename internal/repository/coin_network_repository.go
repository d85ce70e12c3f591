package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Ludium-Official/ludium-world-payment/internal/model"
)

var (
	ErrCoinNotFound        = errors.New("coin not found")
	ErrNetworkNotFound     = errors.New("network not found")
	ErrCoinNetworkNotFound = errors.New("coin network not found")
)

// CoinRepository 代币仓储接口
type CoinRepository interface {
	GetByID(ctx context.Context, id string) (*model.Coin, error)
	List(ctx context.Context) ([]*model.Coin, error)
}

// NetworkRepository 网络仓储接口
type NetworkRepository interface {
	GetByID(ctx context.Context, id string) (*model.Network, error)
	List(ctx context.Context) ([]*model.Network, error)
}

// CoinNetworkRepository 代币网络仓储接口
type CoinNetworkRepository interface {
	GetByID(ctx context.Context, id string) (*model.CoinNetwork, error)
	// GetDetail 解析 (CoinNetwork, Coin, Network) 三元组, 任一缺失视为不存在
	GetDetail(ctx context.Context, id string) (*model.CoinNetworkDetail, error)
	List(ctx context.Context) ([]*model.CoinNetwork, error)
	ListByCoin(ctx context.Context, coinID string) ([]*model.CoinNetwork, error)
}

type coinRepository struct {
	*Repository
}

// NewCoinRepository 创建代币仓储
func NewCoinRepository(db *gorm.DB) CoinRepository {
	return &coinRepository{Repository: NewRepository(db)}
}

func (r *coinRepository) GetByID(ctx context.Context, id string) (*model.Coin, error) {
	var coin model.Coin
	err := r.DB(ctx).Where("id = ?", id).Take(&coin).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCoinNotFound
	}
	if err != nil {
		return nil, err
	}
	return &coin, nil
}

func (r *coinRepository) List(ctx context.Context) ([]*model.Coin, error) {
	var coins []*model.Coin
	err := r.DB(ctx).Order("created_date ASC").Find(&coins).Error
	return coins, err
}

type networkRepository struct {
	*Repository
}

// NewNetworkRepository 创建网络仓储
func NewNetworkRepository(db *gorm.DB) NetworkRepository {
	return &networkRepository{Repository: NewRepository(db)}
}

func (r *networkRepository) GetByID(ctx context.Context, id string) (*model.Network, error) {
	var network model.Network
	err := r.DB(ctx).Where("id = ?", id).Take(&network).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNetworkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &network, nil
}

func (r *networkRepository) List(ctx context.Context) ([]*model.Network, error) {
	var networks []*model.Network
	err := r.DB(ctx).Order("created_date ASC").Find(&networks).Error
	return networks, err
}

type coinNetworkRepository struct {
	*Repository
	coins    CoinRepository
	networks NetworkRepository
}

// NewCoinNetworkRepository 创建代币网络仓储
func NewCoinNetworkRepository(db *gorm.DB) CoinNetworkRepository {
	return &coinNetworkRepository{
		Repository: NewRepository(db),
		coins:      NewCoinRepository(db),
		networks:   NewNetworkRepository(db),
	}
}

func (r *coinNetworkRepository) GetByID(ctx context.Context, id string) (*model.CoinNetwork, error) {
	var cn model.CoinNetwork
	err := r.DB(ctx).Where("id = ?", id).Take(&cn).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrCoinNetworkNotFound
	}
	if err != nil {
		return nil, err
	}
	return &cn, nil
}

func (r *coinNetworkRepository) GetDetail(ctx context.Context, id string) (*model.CoinNetworkDetail, error) {
	cn, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	coin, err := r.coins.GetByID(ctx, cn.CoinID)
	if errors.Is(err, ErrCoinNotFound) {
		return nil, ErrCoinNetworkNotFound
	}
	if err != nil {
		return nil, err
	}

	network, err := r.networks.GetByID(ctx, cn.NetworkID)
	if errors.Is(err, ErrNetworkNotFound) {
		return nil, ErrCoinNetworkNotFound
	}
	if err != nil {
		return nil, err
	}

	return &model.CoinNetworkDetail{CoinNetwork: cn, Coin: coin, Network: network}, nil
}

func (r *coinNetworkRepository) List(ctx context.Context) ([]*model.CoinNetwork, error) {
	var items []*model.CoinNetwork
	err := r.DB(ctx).Order("created_date ASC").Find(&items).Error
	return items, err
}

func (r *coinNetworkRepository) ListByCoin(ctx context.Context, coinID string) ([]*model.CoinNetwork, error) {
	var items []*model.CoinNetwork
	err := r.DB(ctx).Where("coin_id = ?", coinID).Order("created_date ASC").Find(&items).Error
	return items, err
}

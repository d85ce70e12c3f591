package blockchain

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
	"go.uber.org/zap"

	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

var (
	ErrNoHealthyRPC = errors.New("no healthy RPC endpoint available")
	ErrTxNotFound   = errors.New("transaction not found")
)

// ChainClient 执行器依赖的链上接口
type ChainClient interface {
	ChainID() int64
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// RPCEndpoint RPC 端点信息
type RPCEndpoint struct {
	URL        string
	IsHealthy  bool
	ErrorCount int
	LastCheck  time.Time
}

// Client 带故障切换的 RPC 客户端, 不持有私钥
type Client struct {
	chainID int64

	endpoints  []*RPCEndpoint
	currentIdx int
	mu         sync.RWMutex

	client *ethclient.Client

	maxRetries      int
	retryInterval   time.Duration
	healthCheckFreq time.Duration
}

// ClientConfig 客户端配置
type ClientConfig struct {
	ChainID         int64
	RPCURLs         []string
	MaxRetries      int
	RetryInterval   time.Duration
	HealthCheckFreq time.Duration
}

// NewClient 创建区块链客户端
func NewClient(ctx context.Context, cfg *ClientConfig) (*Client, error) {
	if len(cfg.RPCURLs) == 0 {
		return nil, errors.New("at least one RPC URL is required")
	}

	endpoints := make([]*RPCEndpoint, len(cfg.RPCURLs))
	for i, url := range cfg.RPCURLs {
		endpoints[i] = &RPCEndpoint{URL: url, IsHealthy: true}
	}

	c := &Client{
		chainID:         cfg.ChainID,
		endpoints:       endpoints,
		maxRetries:      cfg.MaxRetries,
		retryInterval:   cfg.RetryInterval,
		healthCheckFreq: cfg.HealthCheckFreq,
	}
	if c.maxRetries == 0 {
		c.maxRetries = 3
	}
	if c.retryInterval == 0 {
		c.retryInterval = 500 * time.Millisecond
	}
	if c.healthCheckFreq == 0 {
		c.healthCheckFreq = 30 * time.Second
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}
	return c, nil
}

// connect 连接到可用的 RPC
func (c *Client) connect(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i := range c.endpoints {
		idx := (c.currentIdx + i) % len(c.endpoints)
		ep := c.endpoints[idx]

		if !ep.IsHealthy && time.Since(ep.LastCheck) < c.healthCheckFreq {
			continue
		}

		client, err := ethclient.DialContext(ctx, ep.URL)
		if err == nil {
			var chainID *big.Int
			chainID, err = client.ChainID(ctx)
			if err == nil && chainID.Int64() != c.chainID {
				err = errors.New("chain id mismatch")
			}
			if err != nil {
				client.Close()
			}
		}
		if err != nil {
			ep.IsHealthy = false
			ep.ErrorCount++
			ep.LastCheck = time.Now()
			logger.Warn("rpc endpoint unavailable", zap.String("url", ep.URL), zap.Error(err))
			continue
		}

		if c.client != nil {
			c.client.Close()
		}
		c.client = client
		c.currentIdx = idx
		ep.IsHealthy = true
		ep.ErrorCount = 0
		ep.LastCheck = time.Now()
		return nil
	}

	return ErrNoHealthyRPC
}

func (c *Client) getClient(ctx context.Context) (*ethclient.Client, error) {
	c.mu.RLock()
	client := c.client
	c.mu.RUnlock()
	if client != nil {
		return client, nil
	}

	if err := c.connect(ctx); err != nil {
		return nil, err
	}

	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.client, nil
}

// isApplicationError 节点已处理请求并返回业务错误, 切换端点没有意义
func isApplicationError(err error) bool {
	if errors.Is(err, ethereum.NotFound) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var rpcErr rpc.Error
	return errors.As(err, &rpcErr)
}

// withRetry 传输层错误时切换端点重试
func (c *Client) withRetry(ctx context.Context, fn func(*ethclient.Client) error) error {
	var lastErr error
	for i := 0; i < c.maxRetries; i++ {
		client, err := c.getClient(ctx)
		if err != nil {
			lastErr = err
			time.Sleep(c.retryInterval)
			continue
		}

		err = fn(client)
		if err == nil || isApplicationError(err) {
			return err
		}
		lastErr = err

		c.mu.Lock()
		if c.currentIdx < len(c.endpoints) {
			c.endpoints[c.currentIdx].IsHealthy = false
			c.endpoints[c.currentIdx].ErrorCount++
			c.endpoints[c.currentIdx].LastCheck = time.Now()
		}
		c.mu.Unlock()

		if i < c.maxRetries-1 {
			c.connect(ctx)
			time.Sleep(c.retryInterval)
		}
	}
	return lastErr
}

// ChainID 返回链 ID
func (c *Client) ChainID() int64 {
	return c.chainID
}

// BlockNumber 获取最新区块号
func (c *Client) BlockNumber(ctx context.Context) (uint64, error) {
	var blockNum uint64
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		blockNum, err = client.BlockNumber(ctx)
		return err
	})
	return blockNum, err
}

// GetTransactionReceipt 获取交易回执
func (c *Client) GetTransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	var receipt *types.Receipt
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		receipt, err = client.TransactionReceipt(ctx, txHash)
		return err
	})
	if errors.Is(err, ethereum.NotFound) {
		return nil, ErrTxNotFound
	}
	return receipt, err
}

// PendingNonceAt 获取待处理 Nonce
func (c *Client) PendingNonceAt(ctx context.Context, account common.Address) (uint64, error) {
	var nonce uint64
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		nonce, err = client.PendingNonceAt(ctx, account)
		return err
	})
	return nonce, err
}

// SuggestGasPrice 获取建议 Gas 价格
func (c *Client) SuggestGasPrice(ctx context.Context) (*big.Int, error) {
	var gasPrice *big.Int
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		gasPrice, err = client.SuggestGasPrice(ctx)
		return err
	})
	return gasPrice, err
}

// SendTransaction 发送交易
func (c *Client) SendTransaction(ctx context.Context, tx *types.Transaction) error {
	return c.withRetry(ctx, func(client *ethclient.Client) error {
		return client.SendTransaction(ctx, tx)
	})
}

// CallContract 调用合约
func (c *Client) CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error) {
	var result []byte
	err := c.withRetry(ctx, func(client *ethclient.Client) error {
		var err error
		result, err = client.CallContract(ctx, msg, blockNumber)
		return err
	})
	return result, err
}

// Close 关闭客户端
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.client != nil {
		c.client.Close()
		c.client = nil
	}
}

// HealthCheck 健康检查
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BlockNumber(ctx)
	return err
}

// GetHealthyEndpoints 获取健康的端点列表
func (c *Client) GetHealthyEndpoints() []*RPCEndpoint {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var healthy []*RPCEndpoint
	for _, ep := range c.endpoints {
		if ep.IsHealthy {
			healthy = append(healthy, ep)
		}
	}
	return healthy
}

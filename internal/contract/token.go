// Package contract 提供结算所需的合约 ABI 编解码
package contract

import (
	"errors"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var ErrUnexpectedLog = errors.New("log is not a transfer event")

// TokenABI ERC20 转账 + 存储注册 (storage_deposit 风格) 的最小 ABI
const TokenABI = `[
	{
		"type": "function",
		"name": "transfer",
		"inputs": [
			{"name": "to", "type": "address"},
			{"name": "amount", "type": "uint256"}
		],
		"outputs": [{"name": "", "type": "bool"}],
		"stateMutability": "nonpayable"
	},
	{
		"type": "function",
		"name": "balanceOf",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "storageBalanceOf",
		"inputs": [{"name": "account", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "storageDeposit",
		"inputs": [
			{"name": "account", "type": "address"},
			{"name": "registrationOnly", "type": "bool"}
		],
		"outputs": [],
		"stateMutability": "payable"
	},
	{
		"type": "event",
		"name": "Transfer",
		"inputs": [
			{"name": "from", "type": "address", "indexed": true},
			{"name": "to", "type": "address", "indexed": true},
			{"name": "value", "type": "uint256", "indexed": false}
		],
		"anonymous": false
	}
]`

// TransferEvent ERC20 Transfer 事件
type TransferEvent struct {
	From  common.Address
	To    common.Address
	Value *big.Int
}

// Token 代币合约编解码
type Token struct {
	address common.Address
	abi     abi.ABI
}

// NewToken 创建代币合约
func NewToken(address common.Address) (*Token, error) {
	parsed, err := abi.JSON(strings.NewReader(TokenABI))
	if err != nil {
		return nil, err
	}
	return &Token{address: address, abi: parsed}, nil
}

// Address 合约地址
func (t *Token) Address() common.Address {
	return t.address
}

// PackTransfer 编码 transfer(to, amount)
func (t *Token) PackTransfer(to common.Address, amount *big.Int) ([]byte, error) {
	return t.abi.Pack("transfer", to, amount)
}

// PackStorageBalanceOf 编码 storageBalanceOf(account)
func (t *Token) PackStorageBalanceOf(account common.Address) ([]byte, error) {
	return t.abi.Pack("storageBalanceOf", account)
}

// UnpackStorageBalanceOf 解码 storageBalanceOf 返回值
func (t *Token) UnpackStorageBalanceOf(data []byte) (*big.Int, error) {
	out, err := t.abi.Unpack("storageBalanceOf", data)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// PackStorageDeposit 编码 storageDeposit(account, registrationOnly)
func (t *Token) PackStorageDeposit(account common.Address, registrationOnly bool) ([]byte, error) {
	return t.abi.Pack("storageDeposit", account, registrationOnly)
}

// TransferEventTopic Transfer 事件签名
func (t *Token) TransferEventTopic() common.Hash {
	return t.abi.Events["Transfer"].ID
}

// ParseTransfer 解析 Transfer 日志
func (t *Token) ParseTransfer(log *types.Log) (*TransferEvent, error) {
	if len(log.Topics) != 3 || log.Topics[0] != t.TransferEventTopic() {
		return nil, ErrUnexpectedLog
	}
	out, err := t.abi.Unpack("Transfer", log.Data)
	if err != nil {
		return nil, err
	}
	return &TransferEvent{
		From:  common.BytesToAddress(log.Topics[1].Bytes()),
		To:    common.BytesToAddress(log.Topics[2].Bytes()),
		Value: abi.ConvertType(out[0], new(big.Int)).(*big.Int),
	}, nil
}

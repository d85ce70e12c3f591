package contract

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// ForwarderABI ERC-2771 MinimalForwarder ABI
const ForwarderABI = `[
	{
		"type": "function",
		"name": "getNonce",
		"inputs": [{"name": "from", "type": "address"}],
		"outputs": [{"name": "", "type": "uint256"}],
		"stateMutability": "view"
	},
	{
		"type": "function",
		"name": "execute",
		"inputs": [
			{
				"name": "req",
				"type": "tuple",
				"components": [
					{"name": "from", "type": "address"},
					{"name": "to", "type": "address"},
					{"name": "value", "type": "uint256"},
					{"name": "gas", "type": "uint256"},
					{"name": "nonce", "type": "uint256"},
					{"name": "data", "type": "bytes"}
				]
			},
			{"name": "signature", "type": "bytes"}
		],
		"outputs": [
			{"name": "", "type": "bool"},
			{"name": "", "type": "bytes"}
		],
		"stateMutability": "payable"
	}
]`

// ForwardRequest 代付请求, 字段顺序与合约 tuple 保持一致
type ForwardRequest struct {
	From  common.Address
	To    common.Address
	Value *big.Int
	Gas   *big.Int
	Nonce *big.Int
	Data  []byte
}

// Forwarder MinimalForwarder 合约编解码
type Forwarder struct {
	address common.Address
	abi     abi.ABI
}

// NewForwarder 创建 Forwarder
func NewForwarder(address common.Address) (*Forwarder, error) {
	parsed, err := abi.JSON(strings.NewReader(ForwarderABI))
	if err != nil {
		return nil, err
	}
	return &Forwarder{address: address, abi: parsed}, nil
}

// Address 合约地址
func (f *Forwarder) Address() common.Address {
	return f.address
}

// PackGetNonce 编码 getNonce(from)
func (f *Forwarder) PackGetNonce(from common.Address) ([]byte, error) {
	return f.abi.Pack("getNonce", from)
}

// UnpackGetNonce 解码 getNonce 返回值
func (f *Forwarder) UnpackGetNonce(data []byte) (*big.Int, error) {
	out, err := f.abi.Unpack("getNonce", data)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// PackExecute 编码 execute(req, signature)
func (f *Forwarder) PackExecute(req *ForwardRequest, signature []byte) ([]byte, error) {
	return f.abi.Pack("execute", *req, signature)
}

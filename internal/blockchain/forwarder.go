package blockchain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/Ludium-Official/ludium-world-payment/internal/contract"
)

// ForwarderDomain EIP-712 域
type ForwarderDomain struct {
	Name              string
	Version           string
	ChainID           int64
	VerifyingContract common.Address
}

var forwardRequestTypes = apitypes.Types{
	"EIP712Domain": {
		{Name: "name", Type: "string"},
		{Name: "version", Type: "string"},
		{Name: "chainId", Type: "uint256"},
		{Name: "verifyingContract", Type: "address"},
	},
	"ForwardRequest": {
		{Name: "from", Type: "address"},
		{Name: "to", Type: "address"},
		{Name: "value", Type: "uint256"},
		{Name: "gas", Type: "uint256"},
		{Name: "nonce", Type: "uint256"},
		{Name: "data", Type: "bytes"},
	},
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// ForwardRequestHash 计算 ForwardRequest 的 EIP-712 摘要
func ForwardRequestHash(domain ForwarderDomain, req *contract.ForwardRequest) ([]byte, error) {
	typed := apitypes.TypedData{
		Types:       forwardRequestTypes,
		PrimaryType: "ForwardRequest",
		Domain: apitypes.TypedDataDomain{
			Name:              domain.Name,
			Version:           domain.Version,
			ChainId:           math.NewHexOrDecimal256(domain.ChainID),
			VerifyingContract: domain.VerifyingContract.Hex(),
		},
		Message: apitypes.TypedDataMessage{
			"from":  req.From.Hex(),
			"to":    req.To.Hex(),
			"value": orZero(req.Value).String(),
			"gas":   orZero(req.Gas).String(),
			"nonce": orZero(req.Nonce).String(),
			"data":  hexutil.Encode(req.Data),
		},
	}

	hash, _, err := apitypes.TypedDataAndHash(typed)
	if err != nil {
		return nil, err
	}
	return hash, nil
}

// SignForwardRequest 签名代付请求, 签名地址必须等于 req.From
func SignForwardRequest(signer *Signer, domain ForwarderDomain, req *contract.ForwardRequest) ([]byte, error) {
	if req.From != signer.Address() {
		return nil, newTxError(TxErrorInvalidDelegate, "forward request sender does not match signer")
	}
	hash, err := ForwardRequestHash(domain, req)
	if err != nil {
		return nil, &TxError{Kind: TxErrorInvalidDelegate, Reason: err.Error(), Err: err}
	}
	return signer.SignHash(hash)
}

package blockchain

import (
	"crypto/ecdsa"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"os"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
)

var ErrEmptyKeyPool = errors.New("at least one relayer private key is required")

// Signer 中继账户的一把签名私钥
type Signer struct {
	key     *ecdsa.PrivateKey
	address common.Address
}

// NewSigner 从十六进制私钥创建, 允许 0x 前缀
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("invalid private key: %w", err)
	}
	return &Signer{key: key, address: crypto.PubkeyToAddress(key.PublicKey)}, nil
}

// Address 签名地址
func (s *Signer) Address() common.Address {
	return s.address
}

// SignTx EIP-155 签名
func (s *Signer) SignTx(tx *types.Transaction, chainID int64) (*types.Transaction, error) {
	return types.SignTx(tx, types.NewEIP155Signer(big.NewInt(chainID)), s.key)
}

// SignHash 对 32 字节摘要签名, v 取 27/28
func (s *Signer) SignHash(hash []byte) ([]byte, error) {
	sig, err := crypto.Sign(hash, s.key)
	if err != nil {
		return nil, err
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// KeyPool 轮转使用的签名私钥池
// 由调用方持有并注入执行器, 轮转状态受自身互斥锁保护
type KeyPool struct {
	mu      sync.Mutex
	signers []*Signer
	next    int
}

// NewKeyPool 创建私钥池, 重复私钥只保留一份
func NewKeyPool(keys []string) (*KeyPool, error) {
	seen := make(map[common.Address]struct{}, len(keys))
	signers := make([]*Signer, 0, len(keys))
	for i, k := range keys {
		if strings.TrimSpace(k) == "" {
			continue
		}
		s, err := NewSigner(k)
		if err != nil {
			return nil, fmt.Errorf("key #%d: %w", i, err)
		}
		if _, dup := seen[s.address]; dup {
			continue
		}
		seen[s.address] = struct{}{}
		signers = append(signers, s)
	}
	if len(signers) == 0 {
		return nil, ErrEmptyKeyPool
	}
	return &KeyPool{signers: signers}, nil
}

// keysFile 私钥文件格式
type keysFile struct {
	PrivateKeys []string `json:"private_keys"`
}

// LoadKeyPool 合并私钥文件与内联配置中的私钥
func LoadKeyPool(path string, inline []string) (*KeyPool, error) {
	keys := append([]string{}, inline...)
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read keys file: %w", err)
		}
		var f keysFile
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("parse keys file: %w", err)
		}
		keys = append(keys, f.PrivateKeys...)
	}
	return NewKeyPool(keys)
}

// Next 轮转取下一把私钥
func (p *KeyPool) Next() *Signer {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := p.signers[p.next]
	p.next = (p.next + 1) % len(p.signers)
	return s
}

// Len 私钥数量
func (p *KeyPool) Len() int {
	return len(p.signers)
}

// Addresses 所有签名地址
func (p *KeyPool) Addresses() []common.Address {
	addrs := make([]common.Address, len(p.signers))
	for i, s := range p.signers {
		addrs[i] = s.address
	}
	return addrs
}

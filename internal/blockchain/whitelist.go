package blockchain

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
)

// Whitelist 发送方与合约白名单, 空列表表示不限制
type Whitelist struct {
	senders   map[common.Address]struct{}
	contracts map[common.Address]struct{}
}

// NewWhitelist 创建白名单
func NewWhitelist(senders, contracts []string) (*Whitelist, error) {
	s, err := toAddressSet(senders)
	if err != nil {
		return nil, fmt.Errorf("whitelisted sender: %w", err)
	}
	c, err := toAddressSet(contracts)
	if err != nil {
		return nil, fmt.Errorf("whitelisted contract: %w", err)
	}
	return &Whitelist{senders: s, contracts: c}, nil
}

func toAddressSet(list []string) (map[common.Address]struct{}, error) {
	set := make(map[common.Address]struct{}, len(list))
	for _, a := range list {
		if !common.IsHexAddress(a) {
			return nil, fmt.Errorf("invalid address %q", a)
		}
		set[common.HexToAddress(a)] = struct{}{}
	}
	return set, nil
}

// CheckSender 签名地址必须在白名单内
func (w *Whitelist) CheckSender(addr common.Address) error {
	if w == nil || len(w.senders) == 0 {
		return nil
	}
	if _, ok := w.senders[addr]; !ok {
		return newTxError(TxErrorNotWhitelisted, fmt.Sprintf("sender %s is not whitelisted", addr.Hex()))
	}
	return nil
}

// CheckContract 调用的合约必须在白名单内
func (w *Whitelist) CheckContract(addr common.Address) error {
	if w == nil || len(w.contracts) == 0 {
		return nil
	}
	if _, ok := w.contracts[addr]; !ok {
		return newTxError(TxErrorNotWhitelisted, fmt.Sprintf("contract %s is not whitelisted", addr.Hex()))
	}
	return nil
}

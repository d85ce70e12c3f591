package service

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common/math"
	"github.com/shopspring/decimal"

	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

// maxDecimals 代币精度上限, uint256 最多 78 位
const maxDecimals = 77

// ToSmallestUnit 将十进制金额换算为最小单位整数: amount × 10^decimals
// 结果必须为正, 精确 (小数位数不超过 decimals), 且不超过 uint256
func ToSmallestUnit(amount string, decimals int) (*big.Int, error) {
	if decimals < 0 || decimals > maxDecimals {
		return nil, apperrors.Newf(apperrors.KindAmountConversion, "unsupported coin decimals %d", decimals)
	}

	s := strings.TrimSpace(amount)
	if s == "" || strings.ContainsAny(s, "eE") {
		return nil, apperrors.Newf(apperrors.KindAmountConversion, "invalid amount %q", amount)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindAmountConversion, err, "invalid amount")
	}
	if !d.IsPositive() {
		return nil, apperrors.New(apperrors.KindAmountConversion, "amount must be positive")
	}

	scaled := d.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, apperrors.Newf(apperrors.KindAmountConversion, "amount %s has more than %d fractional digits", s, decimals)
	}

	result := scaled.BigInt()
	if result.Cmp(math.MaxBig256) > 0 {
		return nil, apperrors.New(apperrors.KindAmountConversion, "amount overflows uint256")
	}
	return result, nil
}

package service

import (
	"math/big"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

func TestToSmallestUnit(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
		want     string
	}{
		{"24 位精度", "1.5", 24, "1500000000000000000000000"},
		{"整数零精度", "2", 0, "2"},
		{"补零", "0.000001", 6, "1"},
		{"尾随零不算小数位", "1.500", 1, "15"},
		{"去除空白", " 10 ", 18, "10000000000000000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSmallestUnit(tt.amount, tt.decimals)
			require.NoError(t, err)
			want, _ := new(big.Int).SetString(tt.want, 10)
			assert.Equal(t, 0, want.Cmp(got), "got %s", got)
		})
	}
}

func TestToSmallestUnit_Errors(t *testing.T) {
	tests := []struct {
		name     string
		amount   string
		decimals int
	}{
		{"非数字", "abc", 6},
		{"空串", "", 6},
		{"零", "0", 6},
		{"负数", "-1", 6},
		{"小数位超过精度", "1.5", 0},
		{"科学计数法", "1e5", 0},
		{"负精度", "1", -1},
		{"超过 uint256", "1" + strings.Repeat("0", 78), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ToSmallestUnit(tt.amount, tt.decimals)
			assert.Nil(t, got)
			assert.True(t, apperrors.IsKind(err, apperrors.KindAmountConversion), "err = %v", err)
		})
	}
}

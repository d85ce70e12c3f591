package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var allKinds = []Kind{
	KindInternal,
	KindInvalidParams,
	KindUnauthorized,
	KindForbidden,
	KindNotFound,
	KindUserNotFound,
	KindResourceNotFound,
	KindResourceNotApproved,
	KindCoinNetworkNotFound,
	KindCoinTypeNotSupported,
	KindAmountConversion,
	KindRewardClaimNotFound,
	KindDuplicateRewardClaim,
	KindInvalidClaimStatus,
	KindNotWhitelisted,
	KindTransactionFailed,
}

// TestKind_HTTPStatus 验证错误种类到 HTTP 状态码的映射
func TestKind_HTTPStatus(t *testing.T) {
	tests := []struct {
		kind     Kind
		expected int
	}{
		{KindInvalidParams, http.StatusBadRequest},
		{KindAmountConversion, http.StatusBadRequest},
		{KindResourceNotApproved, http.StatusBadRequest},
		{KindUnauthorized, http.StatusUnauthorized},
		{KindForbidden, http.StatusForbidden},
		{KindNotWhitelisted, http.StatusForbidden},
		{KindUserNotFound, http.StatusNotFound},
		{KindCoinNetworkNotFound, http.StatusNotFound},
		{KindDuplicateRewardClaim, http.StatusConflict},
		{KindInvalidClaimStatus, http.StatusConflict},
		{KindTransactionFailed, http.StatusBadGateway},
		{KindInternal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.kind.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.kind.HTTPStatus())
		})
	}
}

// TestKind_Exhaustive 每个种类都有独立的错误码
func TestKind_Exhaustive(t *testing.T) {
	seen := make(map[string]Kind)
	for _, k := range allKinds {
		code := k.String()
		prev, dup := seen[code]
		assert.False(t, dup, "kind %d shares code %s with %d", k, code, prev)
		seen[code] = k
		assert.NotZero(t, k.HTTPStatus())
	}

	// 未知种类退化为内部错误
	assert.Equal(t, http.StatusInternalServerError, Kind(999).HTTPStatus())
	assert.Equal(t, codes.Internal, Kind(999).GRPCCode())
}

func TestError_IsAndUnwrap(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := Wrap(KindTransactionFailed, cause, "transfer failed")

	assert.True(t, stderrors.Is(err, New(KindTransactionFailed, "other message")))
	assert.False(t, stderrors.Is(err, New(KindInternal, "transfer failed")))
	assert.True(t, stderrors.Is(err, cause))
	assert.Contains(t, err.Error(), "TRANSACTION_FAILED")
	assert.Contains(t, err.Error(), "connection reset")
}

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create claim: %w", New(KindDuplicateRewardClaim, "duplicate"))
	assert.Equal(t, KindDuplicateRewardClaim, KindOf(wrapped))
	assert.True(t, IsKind(wrapped, KindDuplicateRewardClaim))
	assert.Equal(t, KindInternal, KindOf(stderrors.New("plain")))
	assert.False(t, IsKind(nil, KindInternal))
}

func TestFromError(t *testing.T) {
	assert.Nil(t, FromError(nil))

	biz := New(KindUserNotFound, "user not found")
	assert.Same(t, biz, FromError(biz))

	plain := FromError(stderrors.New("boom"))
	assert.Equal(t, KindInternal, plain.Kind)
	assert.Equal(t, "internal server error", plain.Message)
}

func TestError_WithDetail(t *testing.T) {
	base := New(KindDuplicateRewardClaim, "reward claim already exists")
	withDetail := base.WithDetail("resource_id", "m-1")

	assert.Nil(t, base.Details)
	assert.Equal(t, "m-1", withDetail.Details["resource_id"])
}

func TestError_MarshalJSON(t *testing.T) {
	err := New(KindCoinNetworkNotFound, "coin network not found").WithDetail("id", "cn-1")

	data, marshalErr := json.Marshal(err)
	require.NoError(t, marshalErr)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "COIN_NETWORK_NOT_FOUND", decoded["code"])
	assert.Equal(t, "coin network not found", decoded["message"])
	assert.Equal(t, "cn-1", decoded["details"].(map[string]interface{})["id"])
}

func TestToGRPCError(t *testing.T) {
	assert.Nil(t, ToGRPCError(nil))

	st, ok := status.FromError(ToGRPCError(New(KindDuplicateRewardClaim, "dup")))
	require.True(t, ok)
	assert.Equal(t, codes.AlreadyExists, st.Code())
	assert.Equal(t, "dup", st.Message())

	st, ok = status.FromError(ToGRPCError(stderrors.New("raw")))
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
}

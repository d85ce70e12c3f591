package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
	"github.com/Ludium-Official/ludium-world-payment/internal/middleware"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
)

const (
	adminID     = "00000000-0000-0000-0000-000000000001"
	userID      = "00000000-0000-0000-0000-000000000003"
	adminHeader = `{"id":"` + adminID + `","adm":true,"prv":true,"crt":true}`
	userHeader  = `{"id":"` + userID + `","adm":false,"prv":false,"crt":true}`
	claimID     = "11111111-1111-1111-1111-111111111111"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockRewardClaimService 模拟领取服务
type MockRewardClaimService struct {
	mock.Mock
}

func (m *MockRewardClaimService) CreateRewardClaim(ctx context.Context, userID string, req *dto.CreateRewardClaimRequest) (*dto.RewardClaimResponse, error) {
	args := m.Called(ctx, userID, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RewardClaimResponse), args.Error(1)
}

func (m *MockRewardClaimService) ListMyRewardClaims(ctx context.Context, userID string) ([]*dto.RewardClaimResponse, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*dto.RewardClaimResponse), args.Error(1)
}

func (m *MockRewardClaimService) ApproveRewardClaim(ctx context.Context, adminID, claimID, txHash string) (*dto.RewardClaimResponse, error) {
	args := m.Called(ctx, adminID, claimID, txHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RewardClaimResponse), args.Error(1)
}

func (m *MockRewardClaimService) RejectRewardClaim(ctx context.Context, adminID, claimID string) (*dto.RewardClaimResponse, error) {
	args := m.Called(ctx, adminID, claimID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.RewardClaimResponse), args.Error(1)
}

func setupClaimRouter(svc RewardClaimService) *gin.Engine {
	h := NewRewardClaimHandler(svc)
	r := gin.New()
	r.Use(middleware.Auth())
	r.POST("/reward-claims", h.CreateRewardClaim)
	r.GET("/me/reward-claims", h.ListMyRewardClaims)
	admin := r.Group("", middleware.RequireAdmin())
	admin.PUT("/reward-claims/:id/approve", h.ApproveRewardClaim)
	admin.PUT("/reward-claims/:id/reject", h.RejectRewardClaim)
	return r
}

func doRequest(r http.Handler, method, path, header string, body interface{}) *httptest.ResponseRecorder {
	var buf *bytes.Buffer
	if body != nil {
		raw, _ := json.Marshal(body)
		buf = bytes.NewBuffer(raw)
	} else {
		buf = bytes.NewBuffer(nil)
	}
	req, _ := http.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if header != "" {
		req.Header.Set(middleware.UserRightHeader, header)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func validCreateRequest() *dto.CreateRewardClaimRequest {
	return &dto.CreateRewardClaimRequest{
		ResourceID:    "22222222-2222-2222-2222-222222222222",
		ResourceType:  "MISSION",
		CoinNetworkID: "33333333-3333-3333-3333-333333333333",
		Amount:        "1.5",
		UserAddress:   "0x00000000000000000000000000000000000000bb",
	}
}

func TestRewardClaimHandler_Create(t *testing.T) {
	t.Run("成功返回 201", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		req := validCreateRequest()
		svc.On("CreateRewardClaim", mock.Anything, userID, req).Return(&dto.RewardClaimResponse{
			ID:                claimID,
			RewardClaimStatus: "TRANSACTION_APPROVED",
			Amount:            "1.5",
		}, nil)

		w := doRequest(setupClaimRouter(svc), http.MethodPost, "/reward-claims", userHeader, req)

		assert.Equal(t, http.StatusCreated, w.Code)
		resp := decode(t, w)
		assert.Equal(t, "SUCCESS", resp["code"])
		data := resp["data"].(map[string]interface{})
		assert.Equal(t, claimID, data["id"])
		assert.Equal(t, "TRANSACTION_APPROVED", data["reward_claim_status"])
		svc.AssertExpectations(t)
	})

	t.Run("缺少字段", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		req := validCreateRequest()
		req.Amount = ""

		w := doRequest(setupClaimRouter(svc), http.MethodPost, "/reward-claims", userHeader, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_PARAMS", decode(t, w)["code"])
		svc.AssertNotCalled(t, "CreateRewardClaim", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("未认证", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		w := doRequest(setupClaimRouter(svc), http.MethodPost, "/reward-claims", "", validCreateRequest())

		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, "NO_AUTH", decode(t, w)["code"])
	})

	t.Run("业务错误映射", func(t *testing.T) {
		tests := []struct {
			name   string
			err    error
			status int
			code   string
		}{
			{"重复领取", apperrors.New(apperrors.KindDuplicateRewardClaim, "already claimed"), http.StatusConflict, "REWARD_CLAIM_DUPLICATE"},
			{"资源未批准", apperrors.New(apperrors.KindResourceNotApproved, "not approved"), http.StatusBadRequest, "RESOURCE_NOT_APPROVED"},
			{"白名单", apperrors.New(apperrors.KindNotWhitelisted, "not whitelisted"), http.StatusForbidden, "NOT_WHITELISTED"},
			{"链上失败", apperrors.New(apperrors.KindTransactionFailed, "failed").WithDetail("kind", "INVALID_NONCE"), http.StatusBadGateway, "TRANSACTION_FAILED"},
			{"未知错误", errors.New("boom"), http.StatusInternalServerError, "SERVICE_ERROR"},
		}

		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				svc := new(MockRewardClaimService)
				svc.On("CreateRewardClaim", mock.Anything, userID, mock.Anything).Return(nil, tt.err)

				w := doRequest(setupClaimRouter(svc), http.MethodPost, "/reward-claims", userHeader, validCreateRequest())

				assert.Equal(t, tt.status, w.Code)
				resp := decode(t, w)
				assert.Equal(t, tt.code, resp["code"])
				assert.NotContains(t, resp["message"], "boom")
			})
		}
	})

	t.Run("链上失败附带详情", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		svc.On("CreateRewardClaim", mock.Anything, userID, mock.Anything).Return(nil,
			apperrors.New(apperrors.KindTransactionFailed, "transfer failed").
				WithDetail("kind", "INVALID_NONCE").
				WithDetail("attempts", "3"))

		w := doRequest(setupClaimRouter(svc), http.MethodPost, "/reward-claims", userHeader, validCreateRequest())

		data := decode(t, w)["data"].(map[string]interface{})
		assert.Equal(t, "INVALID_NONCE", data["kind"])
		assert.Equal(t, "3", data["attempts"])
	})
}

func TestRewardClaimHandler_ListMine(t *testing.T) {
	svc := new(MockRewardClaimService)
	svc.On("ListMyRewardClaims", mock.Anything, userID).Return([]*dto.RewardClaimResponse{
		{ID: claimID, RewardClaimStatus: "TRANSACTION_FAILED"},
	}, nil)

	w := doRequest(setupClaimRouter(svc), http.MethodGet, "/me/reward-claims", userHeader, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].([]interface{})
	require.Len(t, data, 1)
	assert.Equal(t, claimID, data[0].(map[string]interface{})["id"])
	svc.AssertExpectations(t)
}

func TestRewardClaimHandler_Approve(t *testing.T) {
	t.Run("带交易哈希", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		svc.On("ApproveRewardClaim", mock.Anything, adminID, claimID, "0xabc").
			Return(&dto.RewardClaimResponse{ID: claimID, RewardClaimStatus: "TRANSACTION_APPROVED"}, nil)

		w := doRequest(setupClaimRouter(svc), http.MethodPut, "/reward-claims/"+claimID+"/approve", adminHeader,
			&dto.ApproveRewardClaimRequest{TransactionHash: "0xabc"})

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("无请求体", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		svc.On("ApproveRewardClaim", mock.Anything, adminID, claimID, "").
			Return(&dto.RewardClaimResponse{ID: claimID, RewardClaimStatus: "TRANSACTION_APPROVED"}, nil)

		w := doRequest(setupClaimRouter(svc), http.MethodPut, "/reward-claims/"+claimID+"/approve", adminHeader, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		svc.AssertExpectations(t)
	})

	t.Run("非管理员", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		w := doRequest(setupClaimRouter(svc), http.MethodPut, "/reward-claims/"+claimID+"/approve", userHeader, nil)

		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "ADMIN_REQUIRED", decode(t, w)["code"])
		svc.AssertNotCalled(t, "ApproveRewardClaim", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("状态不允许", func(t *testing.T) {
		svc := new(MockRewardClaimService)
		svc.On("ApproveRewardClaim", mock.Anything, adminID, claimID, "").
			Return(nil, apperrors.New(apperrors.KindInvalidClaimStatus, "claim is not ready"))

		w := doRequest(setupClaimRouter(svc), http.MethodPut, "/reward-claims/"+claimID+"/approve", adminHeader, nil)

		assert.Equal(t, http.StatusConflict, w.Code)
		assert.Equal(t, "INVALID_REWARD_CLAIM_STATUS", decode(t, w)["code"])
	})
}

func TestRewardClaimHandler_Reject(t *testing.T) {
	svc := new(MockRewardClaimService)
	svc.On("RejectRewardClaim", mock.Anything, adminID, claimID).
		Return(&dto.RewardClaimResponse{ID: claimID, RewardClaimStatus: "TRANSACTION_FAILED"}, nil)

	w := doRequest(setupClaimRouter(svc), http.MethodPut, "/reward-claims/"+claimID+"/reject", adminHeader, nil)

	assert.Equal(t, http.StatusOK, w.Code)
	data := decode(t, w)["data"].(map[string]interface{})
	assert.Equal(t, "TRANSACTION_FAILED", data["reward_claim_status"])
	svc.AssertExpectations(t)
}

func TestHealthHandler(t *testing.T) {
	var dbErr error
	h := NewHealthHandler(map[string]Pinger{
		"database": PingFunc(func(ctx context.Context) error { return dbErr }),
	})
	r := gin.New()
	r.GET("/health", h.Live)
	r.GET("/health/ready", h.Ready)

	w := doRequest(r, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doRequest(r, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h.SetReady(true)
	w = doRequest(r, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ready", decode(t, w)["status"])

	dbErr = errors.New("connection refused")
	w = doRequest(r, http.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	resp := decode(t, w)
	assert.Equal(t, "degraded", resp["status"])
	assert.Equal(t, "connection refused", resp["checks"].(map[string]interface{})["database"])
}

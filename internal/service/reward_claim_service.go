// Package service 实现领取结算编排与参考数据查询
package service

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/Ludium-Official/ludium-world-payment/internal/blockchain"
	"github.com/Ludium-Official/ludium-world-payment/internal/dto"
	"github.com/Ludium-Official/ludium-world-payment/internal/metrics"
	"github.com/Ludium-Official/ludium-world-payment/internal/model"
	"github.com/Ludium-Official/ludium-world-payment/internal/repository"
	"github.com/Ludium-Official/ludium-world-payment/internal/retry"
	apperrors "github.com/Ludium-Official/ludium-world-payment/pkg/errors"
	"github.com/Ludium-Official/ludium-world-payment/pkg/logger"
)

// TransferExecutor 链上转账执行器
type TransferExecutor interface {
	Transfer(ctx context.Context, req *blockchain.TransferRequest) (*blockchain.TransferOutcome, error)
}

// RewardClaimService 领取结算服务
type RewardClaimService struct {
	claims          repository.RewardClaimRepository
	users           repository.UserRepository
	missionSubmits  repository.MissionSubmitRepository
	postings        repository.DetailedPostingRepository
	coinNetworks    repository.CoinNetworkRepository
	executor        TransferExecutor
	retryPolicy     retry.Policy
	settleTimeout   time.Duration
	onClaimResolved func(ctx context.Context, event *model.RewardClaimEvent) error
}

// RewardClaimServiceConfig 配置
type RewardClaimServiceConfig struct {
	MaxRetryCount     int
	RetryDelay        time.Duration
	// SettlementTimeout 一次结算 (含全部重试) 的上限, 超过后管理员才能处理 READY 记录
	SettlementTimeout time.Duration
}

// defaultSettlementTimeout 未配置时的结算上限
const defaultSettlementTimeout = 5 * time.Minute

// NewRewardClaimService 创建领取结算服务
func NewRewardClaimService(
	claims repository.RewardClaimRepository,
	users repository.UserRepository,
	missionSubmits repository.MissionSubmitRepository,
	postings repository.DetailedPostingRepository,
	coinNetworks repository.CoinNetworkRepository,
	executor TransferExecutor,
	cfg *RewardClaimServiceConfig,
) *RewardClaimService {
	s := &RewardClaimService{
		claims:         claims,
		users:          users,
		missionSubmits: missionSubmits,
		postings:       postings,
		coinNetworks:   coinNetworks,
		executor:       executor,
		settleTimeout:  cfg.SettlementTimeout,
	}
	if s.settleTimeout <= 0 {
		s.settleTimeout = defaultSettlementTimeout
	}
	s.retryPolicy = retry.Policy{
		MaxAttempts: cfg.MaxRetryCount,
		Delay:       cfg.RetryDelay,
		Retryable:   blockchain.IsRetryable,
		OnRetry: func(attempt int, err error) {
			kind := blockchain.KindOf(err).String()
			metrics.RecordTransferRetry(kind)
			logger.Warn("retrying transfer",
				zap.Int("attempt", attempt),
				zap.String("kind", kind),
				zap.Error(err))
		},
	}
	return s
}

// SetOnClaimResolved 设置结算结果回调 (事件发布)
func (s *RewardClaimService) SetOnClaimResolved(fn func(ctx context.Context, event *model.RewardClaimEvent) error) {
	s.onClaimResolved = fn
}

// settlementPlan 校验通过后的结算计划
type settlementPlan struct {
	key         model.ClaimKey
	coinNetwork *model.CoinNetworkDetail
	transfer    *blockchain.TransferRequest
}

// CreateRewardClaim 校验 -> 预占 -> 链上转账 -> 记录结果
func (s *RewardClaimService) CreateRewardClaim(ctx context.Context, userID string, req *dto.CreateRewardClaimRequest) (*dto.RewardClaimResponse, error) {
	start := time.Now()

	plan, err := s.validate(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	resourceType := plan.key.ResourceType.String()
	coinType := plan.coinNetwork.Coin.CoinType.String()

	reserved, err := s.claims.Reserve(ctx, plan.key, model.ClaimTerms{
		CoinNetworkID: plan.coinNetwork.CoinNetwork.ID,
		Amount:        decimal.NewFromBigInt(plan.transfer.Amount, 0),
		UserAddress:   plan.transfer.Receiver.Hex(),
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateRewardClaim) {
			metrics.RecordRewardClaim(resourceType, "duplicate", "", 0)
			return nil, apperrors.New(apperrors.KindDuplicateRewardClaim, "reward claim already exists")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to reserve reward claim")
	}
	if reserved.Resurrected {
		metrics.RewardClaimResurrectionsTotal.Inc()
		logger.Info("reward claim resurrected", zap.String("reward_claim_id", reserved.Claim.ID))
	}
	claim := reserved.Claim

	// 转账在锁外执行, 此时声明停留在 READY
	transferStart := time.Now()
	settleCtx, cancel := context.WithTimeout(ctx, s.settleTimeout)
	outcome, txErr := retry.Do(settleCtx, s.retryPolicy, func(ctx context.Context) (*blockchain.TransferOutcome, error) {
		return s.executor.Transfer(ctx, plan.transfer)
	})
	cancel()

	status := model.RewardClaimStatusTransactionApproved
	transferStatus := "success"
	if txErr != nil {
		status = model.RewardClaimStatusTransactionFailed
		transferStatus = "failed"
	}
	metrics.RecordTransfer(coinType, transferStatus, time.Since(transferStart).Seconds())

	detail := buildDetail(claim.ID, userID, outcome, txErr)

	// 请求取消后仍必须落库, 否则声明会卡在 READY
	recordCtx := context.WithoutCancel(ctx)
	updated, err := s.claims.RecordOutcome(recordCtx, claim.ID, claim.SettlementAttemptID, status, detail)
	if errors.Is(err, repository.ErrOutcomeSuperseded) {
		var txHash string
		if detail != nil {
			txHash = detail.TransactionHash
		}
		metrics.RecordOutcomeConflict(status.String())
		logger.Error("settlement outcome superseded, reconcile on-chain transfer manually",
			zap.String("reward_claim_id", claim.ID),
			zap.String("settlement_attempt_id", claim.SettlementAttemptID),
			zap.String("status", status.String()),
			zap.String("tx_hash", txHash),
			zap.NamedError("transfer_error", txErr))
		return nil, apperrors.New(apperrors.KindInvalidClaimStatus, "reward claim was resolved during settlement").
			WithDetail("status", status.String())
	}
	if err != nil {
		logger.Error("failed to record settlement outcome",
			zap.String("reward_claim_id", claim.ID),
			zap.String("status", status.String()),
			zap.Error(err))
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to record settlement outcome")
	}

	s.publish(recordCtx, updated, detail)

	if txErr != nil {
		metrics.RecordRewardClaim(resourceType, "failed", coinType, time.Since(start).Seconds())
		logger.Warn("reward claim settlement failed",
			zap.String("reward_claim_id", claim.ID),
			zap.String("user_id", userID),
			zap.Error(txErr))
		return nil, toLedgerError(txErr)
	}

	metrics.RecordRewardClaim(resourceType, "approved", coinType, time.Since(start).Seconds())
	logger.Info("reward claim settled",
		zap.String("reward_claim_id", claim.ID),
		zap.String("user_id", userID),
		zap.String("tx_hash", outcome.TxHash))
	return dto.NewRewardClaimResponse(updated, plan.coinNetwork, detail), nil
}

// validate 任何链上交互之前的校验, 每一步失败都有独立的错误种类
func (s *RewardClaimService) validate(ctx context.Context, userID string, req *dto.CreateRewardClaimRequest) (*settlementPlan, error) {
	resourceType, ok := model.ParseResourceType(req.ResourceType)
	if !ok {
		return nil, apperrors.Newf(apperrors.KindInvalidParams, "unknown resource type %q", req.ResourceType)
	}
	if _, err := uuid.Parse(req.ResourceID); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidParams, "invalid resource_id")
	}
	if _, err := uuid.Parse(req.CoinNetworkID); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidParams, "invalid coin_network_id")
	}

	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.New(apperrors.KindUserNotFound, "user not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load user")
	}

	if err := s.validateResource(ctx, resourceType, req.ResourceID, userID); err != nil {
		return nil, err
	}

	cn, err := s.coinNetworks.GetDetail(ctx, req.CoinNetworkID)
	if err != nil {
		if errors.Is(err, repository.ErrCoinNetworkNotFound) {
			return nil, apperrors.New(apperrors.KindCoinNetworkNotFound, "coin network not found")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load coin network")
	}

	if !common.IsHexAddress(req.UserAddress) {
		return nil, apperrors.New(apperrors.KindInvalidParams, "invalid user_address")
	}

	transfer := &blockchain.TransferRequest{Receiver: common.HexToAddress(req.UserAddress)}
	switch cn.Coin.CoinType {
	case model.CoinTypeNative:
		transfer.Asset = blockchain.AssetNative
	case model.CoinTypeFT:
		contract := cn.CoinNetwork.Contract()
		if !common.IsHexAddress(contract) {
			return nil, apperrors.New(apperrors.KindInternal, "coin network has no valid contract address")
		}
		transfer.Asset = blockchain.AssetFT
		transfer.Contract = common.HexToAddress(contract)
	default:
		return nil, apperrors.Newf(apperrors.KindCoinTypeNotSupported, "coin type %s is not supported", cn.Coin.CoinType)
	}

	amount, err := ToSmallestUnit(req.Amount, cn.Coin.Decimals)
	if err != nil {
		return nil, err
	}
	transfer.Amount = amount

	return &settlementPlan{
		key:         model.ClaimKey{ResourceType: resourceType, ResourceID: req.ResourceID, UserID: userID},
		coinNetwork: cn,
		transfer:    transfer,
	}, nil
}

func (s *RewardClaimService) validateResource(ctx context.Context, resourceType model.ResourceType, resourceID, userID string) error {
	switch resourceType {
	case model.ResourceTypeMission:
		submit, err := s.missionSubmits.Get(ctx, userID, resourceID)
		if err != nil {
			if errors.Is(err, repository.ErrMissionSubmitNotFound) {
				return apperrors.New(apperrors.KindResourceNotFound, "mission submission not found")
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to load mission submission")
		}
		if !submit.IsApproved() {
			return apperrors.New(apperrors.KindResourceNotApproved, "mission submission is not approved")
		}
	case model.ResourceTypeDetailedPosting:
		posting, err := s.postings.GetByID(ctx, resourceID)
		if err != nil {
			if errors.Is(err, repository.ErrDetailedPostingNotFound) {
				return apperrors.New(apperrors.KindResourceNotFound, "detailed posting not found")
			}
			return apperrors.Wrap(apperrors.KindInternal, err, "failed to load detailed posting")
		}
		if !posting.IsApproved() {
			return apperrors.New(apperrors.KindResourceNotApproved, "detailed posting is not approved")
		}
	default:
		return apperrors.Newf(apperrors.KindInvalidParams, "unknown resource type %q", resourceType)
	}
	return nil
}

// buildDetail 只有到达链上的尝试才记录明细
func buildDetail(claimID, userID string, outcome *blockchain.TransferOutcome, txErr error) *model.RewardClaimDetail {
	if outcome == nil {
		return nil
	}
	hash := outcome.TxHash
	if hash == "" && len(outcome.TxHashes) > 0 {
		hash = outcome.TxHashes[len(outcome.TxHashes)-1]
	}
	if hash == "" {
		return nil
	}

	detail := &model.RewardClaimDetail{
		RewardClaimID:     claimID,
		TransactionHash:   hash,
		SendedUserID:      userID,
		SendedUserAddress: outcome.Sender.Hex(),
	}
	if txErr != nil {
		detail.FailureReason = truncate(failureReason(outcome, txErr), 500)
	}
	return detail
}

func failureReason(outcome *blockchain.TransferOutcome, err error) string {
	if outcome.HasErrors() {
		return outcome.FailureReason()
	}
	var txErr *blockchain.TxError
	if errors.As(err, &txErr) {
		return txErr.Kind.String() + ": " + txErr.Reason
	}
	return err.Error()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// toLedgerError 链上错误转换为对外错误, 原始 RPC 文本只进日志
func toLedgerError(err error) error {
	kind := blockchain.KindOf(err)
	if kind == blockchain.TxErrorNotWhitelisted {
		return apperrors.Wrap(apperrors.KindNotWhitelisted, err, "address is not whitelisted").
			WithDetail("kind", kind.String())
	}

	bizErr := apperrors.Wrap(apperrors.KindTransactionFailed, err, "blockchain transaction failed").
		WithDetail("kind", kind.String())
	var exhausted *retry.ExhaustedError
	if errors.As(err, &exhausted) {
		bizErr = bizErr.WithDetail("attempts", strconv.Itoa(exhausted.Attempts))
	}
	return bizErr
}

func (s *RewardClaimService) publish(ctx context.Context, claim *model.RewardClaim, detail *model.RewardClaimDetail) {
	if s.onClaimResolved == nil {
		return
	}
	var txHash, reason string
	if detail != nil {
		txHash = detail.TransactionHash
		reason = detail.FailureReason
	}
	event := model.NewRewardClaimEvent(claim, txHash, reason, time.Now().UnixMilli())
	if err := s.onClaimResolved(ctx, event); err != nil {
		logger.Error("failed to publish reward claim event",
			zap.String("reward_claim_id", claim.ID),
			zap.Error(err))
	}
}

// ListMyRewardClaims 列出用户的领取记录及最新明细
func (s *RewardClaimService) ListMyRewardClaims(ctx context.Context, userID string) ([]*dto.RewardClaimResponse, error) {
	rows, err := s.claims.ListByUser(ctx, userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to list reward claims")
	}

	cache := make(map[string]*model.CoinNetworkDetail)
	result := make([]*dto.RewardClaimResponse, 0, len(rows))
	for _, row := range rows {
		cn, err := s.coinNetworkDetail(ctx, cache, row.Claim.CoinNetworkID)
		if err != nil {
			return nil, err
		}
		result = append(result, dto.NewRewardClaimResponse(row.Claim, cn, row.Detail))
	}
	return result, nil
}

// coinNetworkDetail 已删除的代币网络不影响列表
func (s *RewardClaimService) coinNetworkDetail(ctx context.Context, cache map[string]*model.CoinNetworkDetail, id string) (*model.CoinNetworkDetail, error) {
	if cn, ok := cache[id]; ok {
		return cn, nil
	}
	cn, err := s.coinNetworks.GetDetail(ctx, id)
	if err != nil {
		if !errors.Is(err, repository.ErrCoinNetworkNotFound) {
			return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to load coin network")
		}
		logger.Warn("coin network of reward claim not found", zap.String("coin_network_id", id))
		cn = nil
	}
	cache[id] = cn
	return cn, nil
}

// ApproveRewardClaim 管理员批准 READY 的领取, 交易哈希非空时追加明细
func (s *RewardClaimService) ApproveRewardClaim(ctx context.Context, adminID, claimID, txHash string) (*dto.RewardClaimResponse, error) {
	var detail *model.RewardClaimDetail
	if txHash != "" {
		detail = &model.RewardClaimDetail{
			TransactionHash: txHash,
			SendedUserID:    adminID,
		}
	}
	return s.resolve(ctx, adminID, claimID, model.RewardClaimStatusTransactionApproved, detail, "approve")
}

// RejectRewardClaim 管理员拒绝 READY 的领取, 之后可由相同请求复活
func (s *RewardClaimService) RejectRewardClaim(ctx context.Context, adminID, claimID string) (*dto.RewardClaimResponse, error) {
	return s.resolve(ctx, adminID, claimID, model.RewardClaimStatusTransactionFailed, nil, "reject")
}

func (s *RewardClaimService) resolve(ctx context.Context, adminID, claimID string, status model.RewardClaimStatus, detail *model.RewardClaimDetail, action string) (*dto.RewardClaimResponse, error) {
	if _, err := uuid.Parse(claimID); err != nil {
		return nil, apperrors.New(apperrors.KindInvalidParams, "invalid reward claim id")
	}

	// 开始于该时刻之后的结算尝试可能仍在转账
	staleBefore := time.Now().Add(-s.settleTimeout).UnixMilli()
	claim, err := s.claims.ResolveReady(ctx, claimID, status, detail, staleBefore)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrRewardClaimNotFound):
			return nil, apperrors.New(apperrors.KindRewardClaimNotFound, "reward claim not found")
		case errors.Is(err, repository.ErrClaimNotReady):
			return nil, apperrors.New(apperrors.KindInvalidClaimStatus, "reward claim is not in READY status")
		case errors.Is(err, repository.ErrSettlementInFlight):
			return nil, apperrors.New(apperrors.KindInvalidClaimStatus, "reward claim settlement in progress")
		}
		return nil, apperrors.Wrap(apperrors.KindInternal, err, "failed to resolve reward claim")
	}

	metrics.RecordAdminResolution(action)
	logger.Info("reward claim resolved by admin",
		zap.String("reward_claim_id", claimID),
		zap.String("admin_id", adminID),
		zap.String("status", status.String()))

	s.publish(ctx, claim, detail)

	cn, err := s.coinNetworkDetail(ctx, make(map[string]*model.CoinNetworkDetail), claim.CoinNetworkID)
	if err != nil {
		return nil, err
	}
	return dto.NewRewardClaimResponse(claim, cn, detail), nil
}

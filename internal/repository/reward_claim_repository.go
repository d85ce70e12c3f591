package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Ludium-Official/ludium-world-payment/internal/model"
)

var (
	ErrRewardClaimNotFound  = errors.New("reward claim not found")
	ErrDuplicateRewardClaim = errors.New("reward claim already exists")
	ErrLostRace             = errors.New("reward claim modified concurrently")
	ErrClaimNotReady        = errors.New("reward claim is not ready")
	// ErrOutcomeSuperseded 结算结果落库时记录已不属于该次尝试, 未写入
	ErrOutcomeSuperseded = errors.New("reward claim resolved by another writer")
	// ErrSettlementInFlight 结算尝试尚未超时, 拒绝人工处理
	ErrSettlementInFlight = errors.New("reward claim settlement in progress")
)

// recordOutcomeRetries 记录结算结果时的事务重试次数
const recordOutcomeRetries = 3

// ReserveResult 预占结果
type ReserveResult struct {
	Claim       *model.RewardClaim
	Created     bool
	Resurrected bool
}

// RewardClaimRepository 奖励领取仓储接口
type RewardClaimRepository interface {
	// GetForUpdate 加行锁读取, 不存在时返回 (nil, nil)
	GetForUpdate(ctx context.Context, key model.ClaimKey) (*model.RewardClaim, error)
	Insert(ctx context.Context, claim *model.RewardClaim) (*model.RewardClaim, error)
	TransitionStatus(ctx context.Context, claimID string, status model.RewardClaimStatus, resurrect bool) (*model.RewardClaim, error)
	// Reserve 在同一个锁内完成 读取-判定-写入
	Reserve(ctx context.Context, key model.ClaimKey, terms model.ClaimTerms) (*ReserveResult, error)
	// ResolveReady 人工处理 READY 记录, 结算尝试开始于 staleBefore (毫秒) 之后时返回 ErrSettlementInFlight
	ResolveReady(ctx context.Context, claimID string, status model.RewardClaimStatus, detail *model.RewardClaimDetail, staleBefore int64) (*model.RewardClaim, error)
	// RecordOutcome 仅当记录仍为 READY 且属于 attemptID 时写入结果, 否则返回 ErrOutcomeSuperseded
	RecordOutcome(ctx context.Context, claimID, attemptID string, status model.RewardClaimStatus, detail *model.RewardClaimDetail) (*model.RewardClaim, error)
	AppendDetail(ctx context.Context, detail *model.RewardClaimDetail) (*model.RewardClaimDetail, error)

	GetByID(ctx context.Context, claimID string) (*model.RewardClaim, error)
	ListByUser(ctx context.Context, userID string) ([]*model.RewardClaimWithDetail, error)
}

// rewardClaimRepository 奖励领取仓储实现
type rewardClaimRepository struct {
	*Repository
}

// NewRewardClaimRepository 创建奖励领取仓储
func NewRewardClaimRepository(db *gorm.DB) RewardClaimRepository {
	return &rewardClaimRepository{
		Repository: NewRepository(db),
	}
}

func (r *rewardClaimRepository) GetForUpdate(ctx context.Context, key model.ClaimKey) (*model.RewardClaim, error) {
	var claim model.RewardClaim
	err := forUpdate.ApplyLock(r.DB(ctx)).
		Where("resource_type = ? AND resource_id = ? AND user_id = ?", key.ResourceType, key.ResourceID, key.UserID).
		Take(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *rewardClaimRepository) Insert(ctx context.Context, claim *model.RewardClaim) (*model.RewardClaim, error) {
	now := time.Now().UnixMilli()
	if claim.ID == "" {
		claim.ID = uuid.NewString()
	}
	claim.Status = model.RewardClaimStatusReady
	claim.SettlementAttemptID = uuid.NewString()
	claim.SettlementStartedAt = now
	claim.CreatedAt = now
	claim.UpdatedAt = now

	if err := r.DB(ctx).Create(claim).Error; err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateRewardClaim
		}
		return nil, err
	}
	return claim, nil
}

func (r *rewardClaimRepository) TransitionStatus(ctx context.Context, claimID string, status model.RewardClaimStatus, resurrect bool) (*model.RewardClaim, error) {
	var claim *model.RewardClaim
	err := r.Transaction(ctx, func(ctx context.Context) error {
		current, err := r.lockByID(ctx, claimID)
		if err != nil {
			return err
		}
		// 复活时已是 READY 说明并发方先完成了复活
		if resurrect && current.Status == model.RewardClaimStatusReady {
			return ErrLostRace
		}
		claim, err = r.transition(ctx, current, status, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	return claim, nil
}

// transition 以锁内读到的状态和结算尝试为条件写入, 必须在事务内调用
// 进入 READY 时开启新的结算尝试, 离开 READY 时清空
func (r *rewardClaimRepository) transition(ctx context.Context, current *model.RewardClaim, status model.RewardClaimStatus, terms *model.ClaimTerms) (*model.RewardClaim, error) {
	now := time.Now().UnixMilli()

	var attemptID string
	var startedAt int64
	if status == model.RewardClaimStatusReady {
		attemptID = uuid.NewString()
		startedAt = now
	}

	updates := map[string]interface{}{
		"reward_claim_status":     status,
		"settlement_attempt_id":   attemptID,
		"settlement_started_date": startedAt,
		"updated_date":            now,
	}
	if terms != nil {
		updates["coin_network_id"] = terms.CoinNetworkID
		updates["amount"] = terms.Amount
		updates["user_address"] = terms.UserAddress
	}

	result := r.DB(ctx).Model(&model.RewardClaim{}).
		Where("id = ? AND reward_claim_status = ? AND settlement_attempt_id = ?", current.ID, current.Status, current.SettlementAttemptID).
		Updates(updates)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, ErrLostRace
	}

	claim := *current
	claim.Status = status
	claim.SettlementAttemptID = attemptID
	claim.SettlementStartedAt = startedAt
	claim.UpdatedAt = now
	if terms != nil {
		claim.CoinNetworkID = terms.CoinNetworkID
		claim.Amount = terms.Amount
		claim.UserAddress = terms.UserAddress
	}
	return &claim, nil
}

func (r *rewardClaimRepository) lockByID(ctx context.Context, claimID string) (*model.RewardClaim, error) {
	var claim model.RewardClaim
	err := forUpdate.ApplyLock(r.DB(ctx)).Where("id = ?", claimID).Take(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRewardClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *rewardClaimRepository) Reserve(ctx context.Context, key model.ClaimKey, terms model.ClaimTerms) (*ReserveResult, error) {
	var result *ReserveResult
	err := r.Transaction(ctx, func(ctx context.Context) error {
		existing, err := r.GetForUpdate(ctx, key)
		if err != nil {
			return err
		}

		if existing == nil {
			claim, err := r.Insert(ctx, &model.RewardClaim{
				ResourceType:  key.ResourceType,
				ResourceID:    key.ResourceID,
				UserID:        key.UserID,
				CoinNetworkID: terms.CoinNetworkID,
				Amount:        terms.Amount,
				UserAddress:   terms.UserAddress,
			})
			if err != nil {
				return err
			}
			result = &ReserveResult{Claim: claim, Created: true}
			return nil
		}

		if !existing.Status.IsResurrectable() {
			return ErrDuplicateRewardClaim
		}

		claim, err := r.transition(ctx, existing, model.RewardClaimStatusReady, &terms)
		if err != nil {
			return err
		}
		result = &ReserveResult{Claim: claim, Resurrected: true}
		return nil
	})
	if errors.Is(err, ErrLostRace) {
		return nil, ErrDuplicateRewardClaim
	}
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (r *rewardClaimRepository) ResolveReady(ctx context.Context, claimID string, status model.RewardClaimStatus, detail *model.RewardClaimDetail, staleBefore int64) (*model.RewardClaim, error) {
	var claim *model.RewardClaim
	err := r.Transaction(ctx, func(ctx context.Context) error {
		current, err := r.lockByID(ctx, claimID)
		if err != nil {
			return err
		}
		if current.Status != model.RewardClaimStatusReady {
			return ErrClaimNotReady
		}
		if current.SettlementLive(staleBefore) {
			return ErrSettlementInFlight
		}

		claim, err = r.transition(ctx, current, status, nil)
		if err != nil {
			return err
		}
		return r.appendOutcomeDetail(ctx, claimID, detail)
	})
	if errors.Is(err, ErrLostRace) {
		return nil, ErrClaimNotReady
	}
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (r *rewardClaimRepository) RecordOutcome(ctx context.Context, claimID, attemptID string, status model.RewardClaimStatus, detail *model.RewardClaimDetail) (*model.RewardClaim, error) {
	if status == model.RewardClaimStatusReady || !status.IsValid() {
		return nil, fmt.Errorf("invalid settlement outcome %q", status)
	}

	var claim *model.RewardClaim
	err := r.TransactionWithRetry(ctx, recordOutcomeRetries, func(ctx context.Context) error {
		current, err := r.lockByID(ctx, claimID)
		if err != nil {
			return err
		}
		if current.Status != model.RewardClaimStatusReady || current.SettlementAttemptID != attemptID {
			return ErrOutcomeSuperseded
		}

		claim, err = r.transition(ctx, current, status, nil)
		if err != nil {
			return err
		}
		return r.appendOutcomeDetail(ctx, claimID, detail)
	})
	if errors.Is(err, ErrLostRace) {
		return nil, ErrOutcomeSuperseded
	}
	if err != nil {
		return nil, err
	}
	return claim, nil
}

func (r *rewardClaimRepository) appendOutcomeDetail(ctx context.Context, claimID string, detail *model.RewardClaimDetail) error {
	if detail == nil {
		return nil
	}
	detail.RewardClaimID = claimID
	_, err := r.AppendDetail(ctx, detail)
	return err
}

func (r *rewardClaimRepository) AppendDetail(ctx context.Context, detail *model.RewardClaimDetail) (*model.RewardClaimDetail, error) {
	now := time.Now().UnixMilli()
	if detail.ID == "" {
		// v7 按生成顺序单调递增, 同毫秒明细以 id 区分先后
		id, err := uuid.NewV7()
		if err != nil {
			return nil, err
		}
		detail.ID = id.String()
	}
	detail.CreatedAt = now
	detail.UpdatedAt = now
	if err := r.DB(ctx).Create(detail).Error; err != nil {
		return nil, err
	}
	return detail, nil
}

func (r *rewardClaimRepository) GetByID(ctx context.Context, claimID string) (*model.RewardClaim, error) {
	var claim model.RewardClaim
	err := r.DB(ctx).Where("id = ?", claimID).Take(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrRewardClaimNotFound
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *rewardClaimRepository) ListByUser(ctx context.Context, userID string) ([]*model.RewardClaimWithDetail, error) {
	var claims []*model.RewardClaim
	err := r.DB(ctx).
		Where("user_id = ?", userID).
		Order("created_date DESC").
		Find(&claims).Error
	if err != nil {
		return nil, err
	}
	if len(claims) == 0 {
		return []*model.RewardClaimWithDetail{}, nil
	}

	ids := make([]string, 0, len(claims))
	for _, c := range claims {
		ids = append(ids, c.ID)
	}

	// 每条记录只取 created_date 最大的明细, 同一毫秒内取 id 最大者
	latest := r.DB(ctx).Model(&model.RewardClaimDetail{}).
		Select("reward_claim_id, MAX(created_date) AS max_created").
		Where("reward_claim_id IN ?", ids).
		Group("reward_claim_id")

	var details []*model.RewardClaimDetail
	err = r.DB(ctx).Table("reward_claim_detail AS d").
		Select("d.*").
		Joins("JOIN (?) AS latest ON latest.reward_claim_id = d.reward_claim_id AND latest.max_created = d.created_date", latest).
		Order("d.id DESC").
		Find(&details).Error
	if err != nil {
		return nil, err
	}

	byClaim := make(map[string]*model.RewardClaimDetail, len(details))
	for _, d := range details {
		if _, ok := byClaim[d.RewardClaimID]; !ok {
			byClaim[d.RewardClaimID] = d
		}
	}

	items := make([]*model.RewardClaimWithDetail, 0, len(claims))
	for _, c := range claims {
		items = append(items, &model.RewardClaimWithDetail{Claim: c, Detail: byClaim[c.ID]})
	}
	return items, nil
}

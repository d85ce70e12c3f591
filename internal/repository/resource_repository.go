package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/Ludium-Official/ludium-world-payment/internal/model"
)

var (
	ErrUserNotFound            = errors.New("user not found")
	ErrMissionSubmitNotFound   = errors.New("mission submit not found")
	ErrDetailedPostingNotFound = errors.New("detailed posting not found")
)

// UserRepository 用户只读仓储
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// MissionSubmitRepository 任务提交只读仓储
type MissionSubmitRepository interface {
	Get(ctx context.Context, userID, missionID string) (*model.MissionSubmit, error)
}

// DetailedPostingRepository 详细招募帖只读仓储
type DetailedPostingRepository interface {
	GetByID(ctx context.Context, detailID string) (*model.DetailedPosting, error)
}

type userRepository struct {
	*Repository
}

// NewUserRepository 创建用户仓储
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{Repository: NewRepository(db)}
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	err := r.DB(ctx).Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

type missionSubmitRepository struct {
	*Repository
}

// NewMissionSubmitRepository 创建任务提交仓储
func NewMissionSubmitRepository(db *gorm.DB) MissionSubmitRepository {
	return &missionSubmitRepository{Repository: NewRepository(db)}
}

func (r *missionSubmitRepository) Get(ctx context.Context, userID, missionID string) (*model.MissionSubmit, error) {
	var submit model.MissionSubmit
	err := r.DB(ctx).Where("usr_id = ? AND mission_id = ?", userID, missionID).Take(&submit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrMissionSubmitNotFound
	}
	if err != nil {
		return nil, err
	}
	return &submit, nil
}

type detailedPostingRepository struct {
	*Repository
}

// NewDetailedPostingRepository 创建详细招募帖仓储
func NewDetailedPostingRepository(db *gorm.DB) DetailedPostingRepository {
	return &detailedPostingRepository{Repository: NewRepository(db)}
}

func (r *detailedPostingRepository) GetByID(ctx context.Context, detailID string) (*model.DetailedPosting, error) {
	var posting model.DetailedPosting
	err := r.DB(ctx).Where("detail_id = ?", detailID).Take(&posting).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrDetailedPostingNotFound
	}
	if err != nil {
		return nil, err
	}
	return &posting, nil
}

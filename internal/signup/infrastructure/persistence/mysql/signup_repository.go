// Package mysql 注册审核 MySQL 持久化
package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	pkgdb "github.com/wyfcoding/affiliateops/pkg/db"
	"gorm.io/gorm"
)

// signupRepository 注册申请仓储实现
type signupRepository struct {
	db *gorm.DB
}

// NewSignupRepository 创建注册申请仓储
func NewSignupRepository(db *gorm.DB) domain.SignupRepository {
	return &signupRepository{db: db}
}

// Save 保存注册申请（带乐观锁）
func (r *signupRepository) Save(ctx context.Context, signup *domain.Signup) error {
	model, err := toSignupModel(signup)
	if err != nil {
		return err
	}
	db := pkgdb.Conn(ctx, r.db)

	if signup.ID == 0 {
		model.Version = 1
		if err := db.Create(model).Error; err != nil {
			return err
		}
		signup.ID = model.ID
		signup.CreatedAt = model.CreatedAt
		signup.UpdatedAt = model.UpdatedAt
		signup.SetVersion(1)
		return nil
	}

	currentVersion := signup.Version()
	updates := map[string]any{
		"application_type":    model.ApplicationType,
		"global_status":       model.GlobalStatus,
		"company_name":        model.CompanyName,
		"contact_name":        model.ContactName,
		"email":               model.Email,
		"phone":               model.Phone,
		"website":             model.Website,
		"country":             model.Country,
		"traffic_description": model.TrafficDescription,
		"minimum_payout":      model.MinimumPayout,
		"version":             currentVersion + 1,
	}
	for k, v := range providerUpdates("cake_", model.Cake) {
		updates[k] = v
	}
	for k, v := range providerUpdates("ringba_", model.Ringba) {
		updates[k] = v
	}

	result := db.Model(&SignupModel{}).
		Where("signup_id = ? AND version = ?", signup.SignupID, currentVersion).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return domain.ErrConcurrentUpdate
	}

	signup.SetVersion(currentVersion + 1)
	signup.UpdatedAt = time.Now()
	return nil
}

func (r *signupRepository) Get(ctx context.Context, signupID string) (*domain.Signup, error) {
	var model SignupModel
	if err := pkgdb.Conn(ctx, r.db).Where("signup_id = ?", signupID).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSignupNotFound
		}
		return nil, err
	}
	return toSignup(&model)
}

func (r *signupRepository) List(ctx context.Context, filter domain.SignupFilter) ([]*domain.Signup, int64, error) {
	query := pkgdb.Conn(ctx, r.db).Model(&SignupModel{})
	if filter.ApplicationType != "" {
		query = query.Where("application_type = ?", filter.ApplicationType)
	}
	if filter.GlobalStatus != "" {
		query = query.Where("global_status = ?", filter.GlobalStatus)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var models []*SignupModel
	if err := query.Order("created_at DESC, id DESC").Limit(filter.Limit).Offset(filter.Offset).Find(&models).Error; err != nil {
		return nil, 0, err
	}
	signups := make([]*domain.Signup, 0, len(models))
	for _, m := range models {
		s, err := toSignup(m)
		if err != nil {
			return nil, 0, err
		}
		signups = append(signups, s)
	}
	return signups, total, nil
}

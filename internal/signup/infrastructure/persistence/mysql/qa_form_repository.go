package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	pkgdb "github.com/wyfcoding/affiliateops/pkg/db"
	"gorm.io/gorm"
)

type qaFormRepository struct {
	db *gorm.DB
}

// NewQAFormRepository 创建问卷仓储
func NewQAFormRepository(db *gorm.DB) domain.QAFormRepository {
	return &qaFormRepository{db: db}
}

// ActiveForm 渠道当前激活的问卷，没有时返回 (nil, nil)
func (r *qaFormRepository) ActiveForm(ctx context.Context, provider domain.Provider) (*domain.QAForm, error) {
	var model QAFormModel
	err := pkgdb.Conn(ctx, r.db).
		Where("provider = ? AND active = ?", string(provider), true).
		Order("id DESC").
		First(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return toQAForm(&model)
}

// SaveActive 在同一事务中停用旧问卷并写入新问卷
func (r *qaFormRepository) SaveActive(ctx context.Context, form *domain.QAForm) error {
	model, err := toQAFormModel(form)
	if err != nil {
		return err
	}
	model.Active = true

	return pkgdb.Transaction(ctx, r.db, func(ctx context.Context) error {
		tx := pkgdb.Conn(ctx, r.db)
		if err := tx.Model(&QAFormModel{}).
			Where("provider = ? AND active = ?", model.Provider, true).
			Update("active", false).Error; err != nil {
			return err
		}
		if err := tx.Create(model).Error; err != nil {
			return err
		}
		form.ID = model.ID
		form.Active = true
		form.CreatedAt = model.CreatedAt
		return nil
	})
}

package domain

import (
	"context"
	"time"
)

// SignupFilter 列表查询条件
type SignupFilter struct {
	ApplicationType ApplicationType
	GlobalStatus    GlobalStatus
	Limit           int
	Offset          int
}

// SignupRepository 注册申请仓储。Save 基于 version 做比较并交换，冲突时返回 ErrConcurrentUpdate
type SignupRepository interface {
	Save(ctx context.Context, signup *Signup) error
	Get(ctx context.Context, signupID string) (*Signup, error)
	List(ctx context.Context, filter SignupFilter) ([]*Signup, int64, error)
}

// NoteRepository 备注仓储
type NoteRepository interface {
	Save(ctx context.Context, note *Note) error
	Get(ctx context.Context, id uint) (*Note, error)
	ListBySignup(ctx context.Context, signupID string) ([]*Note, error)
	Delete(ctx context.Context, id uint) error
}

// QAFormRepository 资质问卷仓储。没有激活问卷时 ActiveForm 返回 (nil, nil)
type QAFormRepository interface {
	ActiveForm(ctx context.Context, provider Provider) (*QAForm, error)
	SaveActive(ctx context.Context, form *QAForm) error
}

// Provisioner 单个渠道的开通能力
type Provisioner interface {
	Provider() Provider
	Provision(ctx context.Context, signupID string, data ApplicationData) (affiliateID string, err error)
}

// SignupLocker 按注册申请串行化所有状态变更
type SignupLocker interface {
	Lock(ctx context.Context, signupID string, ttl time.Duration) (unlock func(), err error)
}

// EventPublisher 领域事件发布
type EventPublisher interface {
	Publish(ctx context.Context, topic string, key string, event any) error
}

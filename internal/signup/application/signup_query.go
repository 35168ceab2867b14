package application

import (
	"context"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/utils"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// QueryService 注册申请查询服务
type QueryService struct {
	signupRepo domain.SignupRepository
	noteRepo   domain.NoteRepository
	formRepo   domain.QAFormRepository
}

// NewQueryService 创建查询服务
func NewQueryService(
	signupRepo domain.SignupRepository,
	noteRepo domain.NoteRepository,
	formRepo domain.QAFormRepository,
) *QueryService {
	return &QueryService{
		signupRepo: signupRepo,
		noteRepo:   noteRepo,
		formRepo:   formRepo,
	}
}

// GetSignup 获取注册申请详情
func (s *QueryService) GetSignup(ctx context.Context, signupID string, actor domain.Actor) (*SignupDTO, error) {
	signup, err := s.signupRepo.Get(ctx, signupID)
	if err != nil {
		return nil, err
	}
	return toSignupDTO(signup, actor), nil
}

// DisplayStatus 按操作人可见范围推导展示状态
func (s *QueryService) DisplayStatus(ctx context.Context, signupID string, actor domain.Actor) (domain.DisplayStatus, error) {
	signup, err := s.signupRepo.Get(ctx, signupID)
	if err != nil {
		return "", err
	}
	return domain.DeriveStatus(signup, actor.ViewerScope()), nil
}

// AvailableActions 计算操作人当前可执行的动作
func (s *QueryService) AvailableActions(ctx context.Context, signupID string, actor domain.Actor) (domain.AvailableActions, error) {
	signup, err := s.signupRepo.Get(ctx, signupID)
	if err != nil {
		return domain.AvailableActions{}, err
	}
	return domain.ComputeAvailableActions(signup, actor), nil
}

// ListSignupsQuery 列表查询
type ListSignupsQuery struct {
	Actor           domain.Actor
	ApplicationType string
	GlobalStatus    string
	Page            int
	PageSize        int
}

// ListSignups 分页列出注册申请，展示状态按操作人范围推导
func (s *QueryService) ListSignups(ctx context.Context, q ListSignupsQuery) (*SignupListDTO, error) {
	filter := domain.SignupFilter{}
	if q.ApplicationType != "" {
		t, err := domain.ParseApplicationType(q.ApplicationType)
		if err != nil {
			return nil, err
		}
		filter.ApplicationType = t
	}
	if q.GlobalStatus != "" {
		g, err := domain.ParseGlobalStatus(q.GlobalStatus)
		if err != nil {
			return nil, err
		}
		filter.GlobalStatus = g
	}

	paging := utils.NewPagination(q.Page, q.PageSize, defaultPageSize, maxPageSize)
	filter.Limit = paging.Limit()
	filter.Offset = paging.Offset()

	signups, total, err := s.signupRepo.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	scope := q.Actor.ViewerScope()
	paging.SetTotal(total)
	out := &SignupListDTO{Items: make([]SignupSummaryDTO, 0, len(signups)), Pagination: *paging}
	for _, signup := range signups {
		out.Items = append(out.Items, SignupSummaryDTO{
			SignupID:        signup.SignupID,
			CompanyName:     signup.Application.CompanyName,
			ApplicationType: signup.ApplicationType,
			GlobalStatus:    signup.GlobalStatus,
			DisplayStatus:   domain.DeriveStatus(signup, scope),
			CreatedAt:       signup.CreatedAt.Unix(),
		})
	}
	return out, nil
}

// ListNotes 列出注册申请的备注
func (s *QueryService) ListNotes(ctx context.Context, signupID string) ([]NoteDTO, error) {
	if _, err := s.signupRepo.Get(ctx, signupID); err != nil {
		return nil, err
	}
	notes, err := s.noteRepo.ListBySignup(ctx, signupID)
	if err != nil {
		return nil, err
	}
	out := make([]NoteDTO, 0, len(notes))
	for _, n := range notes {
		out = append(out, toNoteDTO(n))
	}
	return out, nil
}

// ActiveForm 获取渠道当前激活的问卷
func (s *QueryService) ActiveForm(ctx context.Context, provider string) (*QAFormDTO, error) {
	p, err := domain.ParseProvider(provider)
	if err != nil {
		return nil, err
	}
	form, err := s.formRepo.ActiveForm(ctx, p)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, domain.ErrFormNotFound
	}
	return toQAFormDTO(form), nil
}

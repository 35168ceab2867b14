// Package application 联盟注册审核应用层
package application

import (
	"context"
	"log/slog"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/metrics"
)

// SignupApplicationService 注册审核服务门面，整合命令、查询与决策服务
type SignupApplicationService struct {
	commandService  *CommandService
	queryService    *QueryService
	decisionService *DecisionService
}

// NewSignupApplicationService 创建注册审核服务门面实例
func NewSignupApplicationService(
	signupRepo domain.SignupRepository,
	noteRepo domain.NoteRepository,
	formRepo domain.QAFormRepository,
	provisioners []domain.Provisioner,
	locker domain.SignupLocker,
	publisher domain.EventPublisher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	opts Options,
) *SignupApplicationService {
	opts = opts.withDefaults()
	return &SignupApplicationService{
		commandService:  NewCommandService(signupRepo, noteRepo, formRepo, locker, publisher, collector, logger, opts.LockTTL),
		queryService:    NewQueryService(signupRepo, noteRepo, formRepo),
		decisionService: NewDecisionService(signupRepo, formRepo, provisioners, locker, publisher, collector, logger, opts),
	}
}

// CreateSignup 登记注册申请
func (s *SignupApplicationService) CreateSignup(ctx context.Context, cmd CreateSignupCommand) (string, error) {
	return s.commandService.CreateSignup(ctx, cmd)
}

// GetSignup 获取注册申请详情
func (s *SignupApplicationService) GetSignup(ctx context.Context, signupID string, actor domain.Actor) (*SignupDTO, error) {
	return s.queryService.GetSignup(ctx, signupID, actor)
}

// ListSignups 分页列出注册申请
func (s *SignupApplicationService) ListSignups(ctx context.Context, q ListSignupsQuery) (*SignupListDTO, error) {
	return s.queryService.ListSignups(ctx, q)
}

// DisplayStatus 推导展示状态
func (s *SignupApplicationService) DisplayStatus(ctx context.Context, signupID string, actor domain.Actor) (domain.DisplayStatus, error) {
	return s.queryService.DisplayStatus(ctx, signupID, actor)
}

// AvailableActions 计算可执行动作
func (s *SignupApplicationService) AvailableActions(ctx context.Context, signupID string, actor domain.Actor) (domain.AvailableActions, error) {
	return s.queryService.AvailableActions(ctx, signupID, actor)
}

// Decide 执行审批决策
func (s *SignupApplicationService) Decide(ctx context.Context, cmd DecideCommand) (*DecisionResult, error) {
	return s.decisionService.Decide(ctx, cmd)
}

// RequestApproval 提交审批请求
func (s *SignupApplicationService) RequestApproval(ctx context.Context, cmd RequestApprovalCommand) (*SignupDTO, error) {
	return s.commandService.RequestApproval(ctx, cmd)
}

// UpdateApplicationType 修改申请类型
func (s *SignupApplicationService) UpdateApplicationType(ctx context.Context, cmd UpdateApplicationTypeCommand) (*SignupDTO, error) {
	return s.commandService.UpdateApplicationType(ctx, cmd)
}

// AddNote 添加备注
func (s *SignupApplicationService) AddNote(ctx context.Context, cmd AddNoteCommand) (*NoteDTO, error) {
	return s.commandService.AddNote(ctx, cmd)
}

// ListNotes 列出备注
func (s *SignupApplicationService) ListNotes(ctx context.Context, signupID string) ([]NoteDTO, error) {
	return s.queryService.ListNotes(ctx, signupID)
}

// EditNote 修改备注
func (s *SignupApplicationService) EditNote(ctx context.Context, cmd EditNoteCommand) (*NoteDTO, error) {
	return s.commandService.EditNote(ctx, cmd)
}

// DeleteNote 删除备注
func (s *SignupApplicationService) DeleteNote(ctx context.Context, noteID uint, actor domain.Actor) error {
	return s.commandService.DeleteNote(ctx, noteID, actor)
}

// CreateQAForm 创建并激活问卷
func (s *SignupApplicationService) CreateQAForm(ctx context.Context, cmd CreateQAFormCommand) (*QAFormDTO, error) {
	return s.commandService.CreateQAForm(ctx, cmd)
}

// ActiveForm 获取激活问卷
func (s *SignupApplicationService) ActiveForm(ctx context.Context, provider string) (*QAFormDTO, error) {
	return s.queryService.ActiveForm(ctx, provider)
}

package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/metrics"
)

// CommandService 注册申请命令服务
type CommandService struct {
	signupRepo domain.SignupRepository
	noteRepo   domain.NoteRepository
	formRepo   domain.QAFormRepository
	locker     domain.SignupLocker
	publisher  domain.EventPublisher
	metrics    metrics.MetricsCollector
	logger     *slog.Logger
	lockTTL    time.Duration
	now        func() time.Time
}

// NewCommandService 创建命令服务
func NewCommandService(
	signupRepo domain.SignupRepository,
	noteRepo domain.NoteRepository,
	formRepo domain.QAFormRepository,
	locker domain.SignupLocker,
	publisher domain.EventPublisher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	lockTTL time.Duration,
) *CommandService {
	return &CommandService{
		signupRepo: signupRepo,
		noteRepo:   noteRepo,
		formRepo:   formRepo,
		locker:     locker,
		publisher:  publisher,
		metrics:    collector,
		logger:     logger.With("module", "signup_command"),
		lockTTL:    lockTTL,
		now:        time.Now,
	}
}

// CreateSignupCommand 注册申请创建命令
type CreateSignupCommand struct {
	ApplicationType string
	Application     domain.ApplicationData
}

// CreateSignup 登记一个新的联盟注册申请
func (s *CommandService) CreateSignup(ctx context.Context, cmd CreateSignupCommand) (string, error) {
	appType, err := domain.ParseApplicationType(cmd.ApplicationType)
	if err != nil {
		return "", err
	}
	if err := cmd.Application.Validate(); err != nil {
		return "", err
	}

	signupID := "SGN-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:16])
	signup := domain.NewSignup(signupID, appType, cmd.Application)
	now := s.now()
	signup.CreatedAt = now
	signup.UpdatedAt = now

	if err := s.signupRepo.Save(ctx, signup); err != nil {
		s.logger.ErrorContext(ctx, "failed to save signup", "company", cmd.Application.CompanyName, "error", err)
		return "", err
	}

	publishEvents(ctx, s.publisher, s.logger, signupID, signup.GetDomainEvents())
	signup.ClearDomainEvents()
	s.metrics.RecordSignupCreated()

	s.logger.InfoContext(ctx, "signup created",
		"signup_id", signupID,
		"application_type", appType)
	return signupID, nil
}

// RequestApprovalCommand 提交审批请求命令
type RequestApprovalCommand struct {
	SignupID string
	Actor    domain.Actor
}

// RequestApproval 无审批权限的人员提交审批请求
func (s *CommandService) RequestApproval(ctx context.Context, cmd RequestApprovalCommand) (*SignupDTO, error) {
	return s.mutate(ctx, cmd.SignupID, cmd.Actor, func(signup *domain.Signup) error {
		if !domain.ComputeAvailableActions(signup, cmd.Actor).RequestApproval {
			return fmt.Errorf("%w: approval request not available", domain.ErrForbidden)
		}
		return signup.RequestApproval(cmd.Actor.ID, s.now())
	})
}

// UpdateApplicationTypeCommand 修改申请类型命令
type UpdateApplicationTypeCommand struct {
	SignupID        string
	Actor           domain.Actor
	ApplicationType string
}

// UpdateApplicationType 显式修改申请类型，需要审批权限
func (s *CommandService) UpdateApplicationType(ctx context.Context, cmd UpdateApplicationTypeCommand) (*SignupDTO, error) {
	if !cmd.Actor.HasApprovalPrivilege() {
		return nil, fmt.Errorf("%w: approval privilege required", domain.ErrForbidden)
	}
	appType, err := domain.ParseApplicationType(cmd.ApplicationType)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, cmd.SignupID, cmd.Actor, func(signup *domain.Signup) error {
		return signup.ChangeApplicationType(appType, s.now())
	})
}

// mutate 在注册申请锁内加载、修改、保存并发布事件
func (s *CommandService) mutate(ctx context.Context, signupID string, actor domain.Actor, fn func(*domain.Signup) error) (*SignupDTO, error) {
	unlock, err := s.locker.Lock(ctx, signupID, s.lockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	signup, err := s.signupRepo.Get(ctx, signupID)
	if err != nil {
		return nil, err
	}
	if err := fn(signup); err != nil {
		return nil, err
	}
	if err := s.signupRepo.Save(ctx, signup); err != nil {
		return nil, err
	}
	publishEvents(ctx, s.publisher, s.logger, signupID, signup.GetDomainEvents())
	signup.ClearDomainEvents()

	s.logger.InfoContext(ctx, "signup updated",
		"signup_id", signupID,
		"actor_id", actor.ID,
		"global_status", signup.GlobalStatus,
		"application_type", signup.ApplicationType)
	return toSignupDTO(signup, actor), nil
}

// AddNoteCommand 添加备注命令
type AddNoteCommand struct {
	SignupID string
	Actor    domain.Actor
	Content  string
}

// AddNote 添加备注
func (s *CommandService) AddNote(ctx context.Context, cmd AddNoteCommand) (*NoteDTO, error) {
	if cmd.Actor.ID == "" {
		return nil, fmt.Errorf("%w: actor id required", domain.ErrForbidden)
	}
	if _, err := s.signupRepo.Get(ctx, cmd.SignupID); err != nil {
		return nil, err
	}
	note, err := domain.NewNote(cmd.SignupID, cmd.Actor, cmd.Content)
	if err != nil {
		return nil, err
	}
	now := s.now()
	note.CreatedAt = now
	note.UpdatedAt = now
	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}
	dto := toNoteDTO(note)
	return &dto, nil
}

// EditNoteCommand 修改备注命令
type EditNoteCommand struct {
	NoteID  uint
	Actor   domain.Actor
	Content string
}

// EditNote 修改备注，仅作者或管理员
func (s *CommandService) EditNote(ctx context.Context, cmd EditNoteCommand) (*NoteDTO, error) {
	note, err := s.noteRepo.Get(ctx, cmd.NoteID)
	if err != nil {
		return nil, err
	}
	if err := note.Edit(cmd.Actor, cmd.Content, s.now()); err != nil {
		return nil, err
	}
	if err := s.noteRepo.Save(ctx, note); err != nil {
		return nil, err
	}
	dto := toNoteDTO(note)
	return &dto, nil
}

// DeleteNote 删除备注，仅作者或管理员
func (s *CommandService) DeleteNote(ctx context.Context, noteID uint, actor domain.Actor) error {
	note, err := s.noteRepo.Get(ctx, noteID)
	if err != nil {
		return err
	}
	if !note.CanModify(actor) {
		return domain.ErrForbidden
	}
	if err := s.noteRepo.Delete(ctx, noteID); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "note deleted", "note_id", noteID, "signup_id", note.SignupID, "actor_id", actor.ID)
	return nil
}

// CreateQAFormCommand 创建问卷命令
type CreateQAFormCommand struct {
	Actor     domain.Actor
	Provider  string
	Name      string
	Questions []domain.Question
}

// CreateQAForm 创建并激活渠道问卷，原激活问卷随之停用
func (s *CommandService) CreateQAForm(ctx context.Context, cmd CreateQAFormCommand) (*QAFormDTO, error) {
	if !cmd.Actor.IsElevated() {
		return nil, fmt.Errorf("%w: admin role required", domain.ErrForbidden)
	}
	provider, err := domain.ParseProvider(cmd.Provider)
	if err != nil {
		return nil, err
	}
	questions := make([]domain.Question, len(cmd.Questions))
	for i, q := range cmd.Questions {
		if q.FieldType == "" {
			q.FieldType = domain.FieldTypeText
		} else if q.FieldType, err = domain.ParseFieldType(string(q.FieldType)); err != nil {
			return nil, err
		}
		questions[i] = q
	}
	form := &domain.QAForm{
		Provider:  provider,
		Name:      strings.TrimSpace(cmd.Name),
		Questions: questions,
		Active:    true,
		CreatedBy: cmd.Actor.ID,
		CreatedAt: s.now(),
	}
	if err := form.Validate(); err != nil {
		return nil, err
	}
	if err := s.formRepo.SaveActive(ctx, form); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "qa form activated", "provider", provider, "form_id", form.ID, "questions", len(questions))
	return toQAFormDTO(form), nil
}

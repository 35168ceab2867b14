package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/affiliateops/internal/signup/domain"
	"github.com/wyfcoding/affiliateops/pkg/metrics"
)

// Options 决策编排参数
type Options struct {
	// 单次渠道开通调用的超时
	ProviderTimeout time.Duration
	// 单个注册申请锁的持有上限，应大于所有渠道超时之和
	LockTTL time.Duration
	// 单渠道结果落库的最大尝试次数及重试间隔
	SaveAttempts int
	SaveBackoff  time.Duration
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		ProviderTimeout: 10 * time.Second,
		LockTTL:         30 * time.Second,
		SaveAttempts:    3,
		SaveBackoff:     100 * time.Millisecond,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.ProviderTimeout <= 0 {
		o.ProviderTimeout = d.ProviderTimeout
	}
	if o.LockTTL <= 0 {
		o.LockTTL = d.LockTTL
	}
	if o.SaveAttempts <= 0 {
		o.SaveAttempts = d.SaveAttempts
	}
	if o.SaveBackoff <= 0 {
		o.SaveBackoff = d.SaveBackoff
	}
	if floor := 2*o.ProviderTimeout + time.Second; o.LockTTL < floor {
		o.LockTTL = floor
	}
	return o
}

// DecideCommand 审批决策命令
type DecideCommand struct {
	SignupID string
	Actor    domain.Actor
	Action   domain.DecisionAction
	// 为空时使用默认目标渠道
	Targets []domain.Provider
	Reason  string
	Answers map[domain.Provider]domain.Answers
}

// DecisionService 决策编排：授权、问卷校验、逐渠道开通与状态持久化
type DecisionService struct {
	signupRepo   domain.SignupRepository
	formRepo     domain.QAFormRepository
	provisioners map[domain.Provider]domain.Provisioner
	locker       domain.SignupLocker
	publisher    domain.EventPublisher
	metrics      metrics.MetricsCollector
	logger       *slog.Logger
	opts         Options
	now          func() time.Time
}

// NewDecisionService 创建决策服务
func NewDecisionService(
	signupRepo domain.SignupRepository,
	formRepo domain.QAFormRepository,
	provisioners []domain.Provisioner,
	locker domain.SignupLocker,
	publisher domain.EventPublisher,
	collector metrics.MetricsCollector,
	logger *slog.Logger,
	opts Options,
) *DecisionService {
	byProvider := make(map[domain.Provider]domain.Provisioner, len(provisioners))
	for _, p := range provisioners {
		byProvider[p.Provider()] = p
	}
	return &DecisionService{
		signupRepo:   signupRepo,
		formRepo:     formRepo,
		provisioners: byProvider,
		locker:       locker,
		publisher:    publisher,
		metrics:      collector,
		logger:       logger.With("module", "decision"),
		opts:         opts.withDefaults(),
		now:          time.Now,
	}
}

// Decide 执行一次审批决策。渠道开通失败记录为 Failed 结果，不作为错误返回；
// 结果落库失败时停止后续渠道，返回已落库的部分结果和错误
func (s *DecisionService) Decide(ctx context.Context, cmd DecideCommand) (*DecisionResult, error) {
	start := time.Now()

	unlock, err := s.locker.Lock(ctx, cmd.SignupID, s.opts.LockTTL)
	if err != nil {
		return nil, err
	}
	defer unlock()

	signup, err := s.signupRepo.Get(ctx, cmd.SignupID)
	if err != nil {
		return nil, err
	}

	targets, err := s.resolveTargets(signup, cmd)
	if err != nil {
		s.metrics.RecordDecision(string(cmd.Action), "forbidden")
		return nil, err
	}

	forms := make(map[domain.Provider]*domain.QAForm, len(targets))
	for _, p := range targets {
		form, err := s.formRepo.ActiveForm(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("load %s qa form: %w", p, err)
		}
		forms[p] = form
	}
	qa, err := domain.ValidateAnswers(targets, forms, cmd.Answers)
	if err != nil {
		s.metrics.RecordDecision(string(cmd.Action), "incomplete")
		return nil, err
	}

	// 校验通过后不再受调用方取消影响，保证已开通的结果一定落库
	workCtx := context.WithoutCancel(ctx)
	result := &DecisionResult{SignupID: signup.SignupID, Action: cmd.Action}
	var events []domain.DomainEvent
	var persistErr error

	for _, p := range targets {
		outcome := s.outcomeFor(workCtx, signup, p, cmd)
		at := s.now()
		if err := signup.RecordAttempt(p, outcome, cmd.Actor.ID, at, qa[p]); err != nil {
			if len(result.Outcomes) == 0 {
				return nil, err
			}
			persistErr = err
			break
		}
		pending := signup.GetDomainEvents()
		signup.ClearDomainEvents()

		saved, err := s.persistOutcome(workCtx, signup, p, outcome, cmd.Actor.ID, at, qa[p])
		if err != nil {
			// 渠道侧可能已开通，记录完整结果以便人工对账
			s.logger.ErrorContext(ctx, "failed to persist provider outcome",
				"signup_id", signup.SignupID,
				"provider", p,
				"status", outcome.Status,
				"affiliate_id", outcome.AffiliateID,
				"error", err)
			persistErr = err
			break
		}
		signup = saved
		events = append(events, pending...)

		s.metrics.RecordProvisionOutcome(string(p), string(outcome.Status))
		result.Outcomes = append(result.Outcomes, ProviderOutcomeDTO{
			Provider:    p,
			Status:      outcome.Status,
			AffiliateID: outcome.AffiliateID,
			Reason:      outcome.Reason,
		})
	}

	if persistErr != nil {
		// 只报告已落库的结果，后续渠道不再调用
		if stored, err := s.signupRepo.Get(workCtx, signup.SignupID); err == nil {
			result.GlobalStatus = stored.GlobalStatus
			result.DisplayStatus = domain.DeriveStatus(stored, cmd.Actor.ViewerScope())
		}
		publishEvents(workCtx, s.publisher, s.logger, signup.SignupID, events)
		s.metrics.RecordDecision(string(cmd.Action), "error")
		return result, persistErr
	}

	result.GlobalStatus = signup.GlobalStatus
	result.DisplayStatus = domain.DeriveStatus(signup, cmd.Actor.ViewerScope())

	s.publishDecision(workCtx, signup, cmd, result, events)
	s.metrics.RecordDecision(string(cmd.Action), decisionResultLabel(result))

	s.logger.InfoContext(ctx, "signup decided",
		"signup_id", signup.SignupID,
		"action", cmd.Action,
		"actor_id", cmd.Actor.ID,
		"targets", targets,
		"global_status", result.GlobalStatus,
		"display_status", result.DisplayStatus,
		"duration", time.Since(start))

	return result, nil
}

// persistOutcome 保存单渠道结果。存储错误有限次重试；版本冲突时重新加载并重放该结果，
// 若重新加载的记录已含相同 affiliate id，说明上一次写入实际已提交
func (s *DecisionService) persistOutcome(
	ctx context.Context,
	signup *domain.Signup,
	p domain.Provider,
	outcome domain.AttemptOutcome,
	actorID string,
	at time.Time,
	qa []domain.QAResponse,
) (*domain.Signup, error) {
	var lastErr error
	for attempt := 1; attempt <= s.opts.SaveAttempts; attempt++ {
		if attempt > 1 {
			time.Sleep(time.Duration(attempt-1) * s.opts.SaveBackoff)
		}

		err := s.signupRepo.Save(ctx, signup)
		if err == nil {
			return signup, nil
		}
		lastErr = err
		s.logger.WarnContext(ctx, "save provider outcome failed",
			"signup_id", signup.SignupID,
			"provider", p,
			"attempt", attempt,
			"error", err)
		if !errors.Is(err, domain.ErrConcurrentUpdate) {
			continue
		}

		fresh, err := s.signupRepo.Get(ctx, signup.SignupID)
		if err != nil {
			lastErr = err
			continue
		}
		if alreadyRecorded(fresh.State(p), outcome, actorID, at) {
			return fresh, nil
		}
		if err := fresh.RecordAttempt(p, outcome, actorID, at, qa); err != nil {
			return signup, err
		}
		fresh.ClearDomainEvents()
		signup = fresh
	}
	return signup, fmt.Errorf("persist %s outcome after %d attempts: %w", p, s.opts.SaveAttempts, lastErr)
}

// alreadyRecorded 判断存储中的渠道状态是否就是本次写入的结果
func alreadyRecorded(st *domain.ProviderState, outcome domain.AttemptOutcome, actorID string, at time.Time) bool {
	if st == nil || st.ProcessedAt == nil {
		return false
	}
	if st.Status != outcome.Status || st.AffiliateID != outcome.AffiliateID || st.ProcessedBy != actorID {
		return false
	}
	return st.ProcessedAt.Sub(at).Abs() < time.Second
}

// resolveTargets 重新执行授权判断，并按规范顺序去重
func (s *DecisionService) resolveTargets(signup *domain.Signup, cmd DecideCommand) ([]domain.Provider, error) {
	if len(cmd.Targets) == 0 {
		targets := domain.DefaultTargets(signup, cmd.Actor, cmd.Action)
		if len(targets) == 0 {
			return nil, fmt.Errorf("%w: no provider available for %s", domain.ErrForbidden, cmd.Action)
		}
		return targets, nil
	}

	actions := domain.ComputeAvailableActions(signup, cmd.Actor)
	requested := make(map[domain.Provider]struct{}, len(cmd.Targets))
	for _, p := range cmd.Targets {
		if !actions.Allows(cmd.Action, p) {
			return nil, fmt.Errorf("%w: %s not allowed on %s", domain.ErrForbidden, cmd.Action, p)
		}
		requested[p] = struct{}{}
	}
	targets := make([]domain.Provider, 0, len(requested))
	for _, p := range domain.Providers {
		if _, ok := requested[p]; ok {
			targets = append(targets, p)
		}
	}
	return targets, nil
}

// outcomeFor 拒绝不调用外部渠道；通过时调用一次开通接口，超时或失败记为 Failed
func (s *DecisionService) outcomeFor(ctx context.Context, signup *domain.Signup, p domain.Provider, cmd DecideCommand) domain.AttemptOutcome {
	if cmd.Action == domain.ActionReject {
		return domain.OutcomeRejected(cmd.Reason)
	}

	prov, ok := s.provisioners[p]
	if !ok {
		return domain.OutcomeFailed(fmt.Sprintf("%s provisioning is not configured", p))
	}

	callCtx, cancel := context.WithTimeout(ctx, s.opts.ProviderTimeout)
	defer cancel()

	started := time.Now()
	affiliateID, err := prov.Provision(callCtx, signup.SignupID, signup.Application)
	s.metrics.RecordProviderCall(string(p), time.Since(started).Seconds())

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		s.logger.WarnContext(ctx, "provider call timed out", "signup_id", signup.SignupID, "provider", p, "timeout", s.opts.ProviderTimeout)
		return domain.OutcomeFailed(fmt.Sprintf("%s timed out after %s", p, s.opts.ProviderTimeout))
	case err != nil:
		s.logger.WarnContext(ctx, "provider call failed", "signup_id", signup.SignupID, "provider", p, "error", err)
		return domain.OutcomeFailed(err.Error())
	case affiliateID == "":
		return domain.OutcomeFailed(fmt.Sprintf("%s returned no affiliate id", p))
	}
	return domain.OutcomeApproved(affiliateID, cmd.Reason)
}

func (s *DecisionService) publishDecision(ctx context.Context, signup *domain.Signup, cmd DecideCommand, result *DecisionResult, events []domain.DomainEvent) {
	outcomes := make(map[domain.Provider]domain.ProviderStatus, len(result.Outcomes))
	for _, o := range result.Outcomes {
		outcomes[o.Provider] = o.Status
	}
	events = append(events, &domain.SignupDecidedEvent{
		SignupID:     signup.SignupID,
		Action:       cmd.Action,
		Outcomes:     outcomes,
		GlobalStatus: signup.GlobalStatus,
		DecidedBy:    cmd.Actor.ID,
		Timestamp:    s.now(),
	})
	publishEvents(ctx, s.publisher, s.logger, signup.SignupID, events)
}

func decisionResultLabel(r *DecisionResult) string {
	failed, ok := 0, 0
	for _, o := range r.Outcomes {
		if o.Status == domain.ProviderStatusFailed {
			failed++
		} else {
			ok++
		}
	}
	switch {
	case failed == 0:
		return "ok"
	case ok == 0:
		return "failed"
	}
	return "partial"
}

// publishEvents 发布领域事件，失败只记录日志
func publishEvents(ctx context.Context, publisher domain.EventPublisher, logger *slog.Logger, key string, events []domain.DomainEvent) {
	for _, event := range events {
		if err := publisher.Publish(ctx, event.EventName(), key, event); err != nil {
			logger.ErrorContext(ctx, "failed to publish event",
				"event", event.EventName(),
				"signup_id", key,
				"error", err)
		}
	}
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// GlobalStatus 注册申请的全局工作流状态
type GlobalStatus string

const (
	GlobalStatusPending              GlobalStatus = "PENDING"
	GlobalStatusApproved             GlobalStatus = "APPROVED"
	GlobalStatusRejected             GlobalStatus = "REJECTED"
	GlobalStatusRequestedForApproval GlobalStatus = "REQUESTED_FOR_APPROVAL"
)

// ParseGlobalStatus 解析全局状态
func ParseGlobalStatus(s string) (GlobalStatus, error) {
	g := GlobalStatus(strings.ToUpper(strings.TrimSpace(s)))
	switch g {
	case GlobalStatusPending, GlobalStatusApproved, GlobalStatusRejected, GlobalStatusRequestedForApproval:
		return g, nil
	}
	return "", fmt.Errorf("%w: unknown status %q", ErrInvalidInput, s)
}

// ApplicationData 申请人提交的资料，开通渠道时原样传递
type ApplicationData struct {
	CompanyName        string
	ContactName        string
	Email              string
	Phone              string
	Website            string
	Country            string
	TrafficDescription string
	MinimumPayout      decimal.Decimal
}

// Validate 校验必填资料
func (d ApplicationData) Validate() error {
	if strings.TrimSpace(d.CompanyName) == "" || strings.TrimSpace(d.ContactName) == "" || strings.TrimSpace(d.Email) == "" {
		return fmt.Errorf("%w: company_name, contact_name and email are required", ErrInvalidInput)
	}
	if !strings.Contains(d.Email, "@") {
		return fmt.Errorf("%w: malformed email", ErrInvalidInput)
	}
	if d.MinimumPayout.IsNegative() {
		return fmt.Errorf("%w: minimum payout must not be negative", ErrInvalidInput)
	}
	return nil
}

// ProviderState 单渠道开通状态与审计字段
type ProviderState struct {
	Status         ProviderStatus
	AffiliateID    string
	DecisionReason string
	ProcessedBy    string
	ProcessedAt    *time.Time
	QAResponses    []QAResponse
	Attempts       int
}

// IsProvisioned 已成功开通（幂等保护依据）
func (s *ProviderState) IsProvisioned() bool {
	return s != nil && s.AffiliateID != ""
}

// AttemptOutcome 一次开通尝试或人工决策的结果
type AttemptOutcome struct {
	Status      ProviderStatus
	AffiliateID string
	Reason      string
}

func OutcomeApproved(affiliateID, reason string) AttemptOutcome {
	return AttemptOutcome{Status: ProviderStatusApproved, AffiliateID: affiliateID, Reason: reason}
}

func OutcomeRejected(reason string) AttemptOutcome {
	return AttemptOutcome{Status: ProviderStatusRejected, Reason: reason}
}

func OutcomeFailed(reason string) AttemptOutcome {
	return AttemptOutcome{Status: ProviderStatusFailed, Reason: reason}
}

// Signup 注册申请聚合根
type Signup struct {
	ID              uint
	SignupID        string
	ApplicationType ApplicationType
	GlobalStatus    GlobalStatus
	Application     ApplicationData
	Cake            *ProviderState
	Ringba          *ProviderState
	CreatedAt       time.Time
	UpdatedAt       time.Time

	version      int64
	domainEvents []DomainEvent
}

// NewSignup 创建注册申请，所有渠道字段处于未尝试状态
func NewSignup(signupID string, appType ApplicationType, data ApplicationData) *Signup {
	s := &Signup{
		SignupID:        signupID,
		ApplicationType: appType,
		GlobalStatus:    GlobalStatusPending,
		Application:     data,
	}
	s.syncProviderEntries()
	s.addEvent(&SignupCreatedEvent{
		SignupID:        signupID,
		ApplicationType: appType,
		CompanyName:     data.CompanyName,
		Timestamp:       time.Now(),
	})
	return s
}

// Restore 从存储重建聚合
func Restore(s *Signup, version int64) *Signup {
	s.version = version
	s.syncProviderEntries()
	return s
}

func (s *Signup) Version() int64     { return s.version }
func (s *Signup) SetVersion(v int64) { s.version = v }

// State 返回渠道状态；渠道不属于申请类型时返回 nil
func (s *Signup) State(p Provider) *ProviderState {
	if !s.ApplicationType.Includes(p) {
		return nil
	}
	switch p {
	case ProviderCake:
		return s.Cake
	case ProviderRingba:
		return s.Ringba
	}
	return nil
}

// StatusOf 渠道状态，渠道不适用时为空
func (s *Signup) StatusOf(p Provider) ProviderStatus {
	if st := s.State(p); st != nil {
		return st.Status
	}
	return ProviderStatusNone
}

// RecordAttempt 记录一次渠道结果。已开通的渠道拒绝任何后续变更
func (s *Signup) RecordAttempt(p Provider, outcome AttemptOutcome, processedBy string, at time.Time, qa []QAResponse) error {
	st := s.State(p)
	if st == nil {
		return fmt.Errorf("%w: %s", ErrProviderNotApplicable, p)
	}
	if st.IsProvisioned() {
		return fmt.Errorf("%w: %s affiliate %s", ErrAlreadyProvisioned, p, st.AffiliateID)
	}
	switch outcome.Status {
	case ProviderStatusApproved:
		if strings.TrimSpace(outcome.AffiliateID) == "" {
			return fmt.Errorf("%w: approved outcome without affiliate id", ErrInvalidInput)
		}
	case ProviderStatusRejected, ProviderStatusFailed:
		if outcome.AffiliateID != "" {
			return fmt.Errorf("%w: affiliate id only allowed on approval", ErrInvalidInput)
		}
	default:
		return fmt.Errorf("%w: unsupported outcome %q", ErrInvalidInput, outcome.Status)
	}

	processedAt := at
	st.Status = outcome.Status
	st.AffiliateID = outcome.AffiliateID
	st.DecisionReason = outcome.Reason
	st.ProcessedBy = processedBy
	st.ProcessedAt = &processedAt
	st.QAResponses = append([]QAResponse{}, qa...)
	if outcome.Status != ProviderStatusRejected {
		st.Attempts++
	}

	switch outcome.Status {
	case ProviderStatusApproved:
		s.addEvent(&ProviderProvisionedEvent{SignupID: s.SignupID, Provider: p, AffiliateID: outcome.AffiliateID, ProcessedBy: processedBy, Timestamp: at})
	case ProviderStatusFailed:
		s.addEvent(&ProviderFailedEvent{SignupID: s.SignupID, Provider: p, Reason: outcome.Reason, Attempt: st.Attempts, ProcessedBy: processedBy, Timestamp: at})
	case ProviderStatusRejected:
		s.addEvent(&ProviderRejectedEvent{SignupID: s.SignupID, Provider: p, Reason: outcome.Reason, ProcessedBy: processedBy, Timestamp: at})
	}

	s.RecomputeGlobalStatus()
	s.UpdatedAt = at
	return nil
}

// RecomputeGlobalStatus 全部相关渠道通过则通过，全部拒绝则拒绝；
// 否则 Pending / RequestedForApproval 保持不变，Approved / Rejected 回到 Pending
func (s *Signup) RecomputeGlobalStatus() {
	relevant := s.ApplicationType.RelevantProviders()
	if len(relevant) == 0 {
		return
	}
	approved, rejected := 0, 0
	for _, p := range relevant {
		switch s.StatusOf(p) {
		case ProviderStatusApproved:
			approved++
		case ProviderStatusRejected:
			rejected++
		}
	}
	switch {
	case approved == len(relevant):
		s.GlobalStatus = GlobalStatusApproved
	case rejected == len(relevant):
		s.GlobalStatus = GlobalStatusRejected
	case s.GlobalStatus == GlobalStatusApproved, s.GlobalStatus == GlobalStatusRejected:
		// 重新开通或新增渠道后，已结束的申请回到待处理
		s.GlobalStatus = GlobalStatusPending
	}
}

// IsResolved 所有相关渠道均已通过或拒绝
func (s *Signup) IsResolved() bool {
	for _, p := range s.ApplicationType.RelevantProviders() {
		if !s.StatusOf(p).IsTerminal() {
			return false
		}
	}
	return true
}

// RequestApproval 无审批权限的人员提交审批请求
func (s *Signup) RequestApproval(requestedBy string, at time.Time) error {
	if s.GlobalStatus != GlobalStatusPending {
		return fmt.Errorf("%w: approval can only be requested while pending", ErrForbidden)
	}
	s.GlobalStatus = GlobalStatusRequestedForApproval
	s.UpdatedAt = at
	s.addEvent(&ApprovalRequestedEvent{SignupID: s.SignupID, RequestedBy: requestedBy, Timestamp: at})
	return nil
}

// ChangeApplicationType 显式修改申请类型，不允许移除已开通的渠道
func (s *Signup) ChangeApplicationType(t ApplicationType, at time.Time) error {
	for _, p := range Providers {
		if s.ApplicationType.Includes(p) && !t.Includes(p) && s.State(p).IsProvisioned() {
			return fmt.Errorf("%w: %s is already provisioned", ErrInvalidInput, p)
		}
	}
	s.ApplicationType = t
	s.syncProviderEntries()
	s.RecomputeGlobalStatus()
	s.UpdatedAt = at
	return nil
}

// syncProviderEntries 仅为申请类型包含的渠道保留状态条目
func (s *Signup) syncProviderEntries() {
	if s.ApplicationType.Includes(ProviderCake) {
		if s.Cake == nil {
			s.Cake = &ProviderState{}
		}
	} else {
		s.Cake = nil
	}
	if s.ApplicationType.Includes(ProviderRingba) {
		if s.Ringba == nil {
			s.Ringba = &ProviderState{}
		}
	} else {
		s.Ringba = nil
	}
}

func (s *Signup) addEvent(event DomainEvent) {
	s.domainEvents = append(s.domainEvents, event)
}

func (s *Signup) GetDomainEvents() []DomainEvent {
	return s.domainEvents
}

func (s *Signup) ClearDomainEvents() {
	s.domainEvents = nil
}

package domain

import "time"

const (
	TopicSignupCreated       = "signup.created"
	TopicApprovalRequested   = "signup.approval_requested"
	TopicSignupDecided       = "signup.decided"
	TopicProviderProvisioned = "signup.provider.provisioned"
	TopicProviderFailed      = "signup.provider.failed"
	TopicProviderRejected    = "signup.provider.rejected"
)

type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// SignupCreatedEvent 注册申请创建事件
type SignupCreatedEvent struct {
	SignupID        string          `json:"signup_id"`
	ApplicationType ApplicationType `json:"application_type"`
	CompanyName     string          `json:"company_name"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (e *SignupCreatedEvent) EventName() string     { return TopicSignupCreated }
func (e *SignupCreatedEvent) OccurredAt() time.Time { return e.Timestamp }

// ApprovalRequestedEvent 提交审批请求事件
type ApprovalRequestedEvent struct {
	SignupID    string    `json:"signup_id"`
	RequestedBy string    `json:"requested_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ApprovalRequestedEvent) EventName() string     { return TopicApprovalRequested }
func (e *ApprovalRequestedEvent) OccurredAt() time.Time { return e.Timestamp }

// ProviderProvisionedEvent 渠道开通成功事件
type ProviderProvisionedEvent struct {
	SignupID    string    `json:"signup_id"`
	Provider    Provider  `json:"provider"`
	AffiliateID string    `json:"affiliate_id"`
	ProcessedBy string    `json:"processed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ProviderProvisionedEvent) EventName() string     { return TopicProviderProvisioned }
func (e *ProviderProvisionedEvent) OccurredAt() time.Time { return e.Timestamp }

// ProviderFailedEvent 渠道开通失败事件（可重试）
type ProviderFailedEvent struct {
	SignupID    string    `json:"signup_id"`
	Provider    Provider  `json:"provider"`
	Reason      string    `json:"reason"`
	Attempt     int       `json:"attempt"`
	ProcessedBy string    `json:"processed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ProviderFailedEvent) EventName() string     { return TopicProviderFailed }
func (e *ProviderFailedEvent) OccurredAt() time.Time { return e.Timestamp }

// ProviderRejectedEvent 渠道拒绝事件
type ProviderRejectedEvent struct {
	SignupID    string    `json:"signup_id"`
	Provider    Provider  `json:"provider"`
	Reason      string    `json:"reason"`
	ProcessedBy string    `json:"processed_by"`
	Timestamp   time.Time `json:"timestamp"`
}

func (e *ProviderRejectedEvent) EventName() string     { return TopicProviderRejected }
func (e *ProviderRejectedEvent) OccurredAt() time.Time { return e.Timestamp }

// SignupDecidedEvent 一次审批决策完成事件，汇总各渠道结果
type SignupDecidedEvent struct {
	SignupID     string                      `json:"signup_id"`
	Action       DecisionAction              `json:"action"`
	Outcomes     map[Provider]ProviderStatus `json:"outcomes"`
	GlobalStatus GlobalStatus                `json:"global_status"`
	DecidedBy    string                      `json:"decided_by"`
	Timestamp    time.Time                   `json:"timestamp"`
}

func (e *SignupDecidedEvent) EventName() string     { return TopicSignupDecided }
func (e *SignupDecidedEvent) OccurredAt() time.Time { return e.Timestamp }

package domain

import (
	"fmt"
	"strings"
)

// DecisionAction 审批动作
type DecisionAction string

const (
	ActionApprove DecisionAction = "APPROVE"
	ActionReject  DecisionAction = "REJECT"
)

// ParseDecisionAction 解析审批动作
func ParseDecisionAction(s string) (DecisionAction, error) {
	a := DecisionAction(strings.ToUpper(strings.TrimSpace(s)))
	switch a {
	case ActionApprove, ActionReject:
		return a, nil
	}
	return "", fmt.Errorf("%w: unknown action %q", ErrInvalidInput, s)
}

// ProviderActions 单渠道可执行的动作
type ProviderActions struct {
	Approve bool `json:"approve"`
	Reject  bool `json:"reject"`
}

// AvailableActions 操作人当前可执行的动作集合
type AvailableActions struct {
	Approve         bool                         `json:"approve"`
	Reject          bool                         `json:"reject"`
	RequestApproval bool                         `json:"request_approval"`
	PerProvider     map[Provider]ProviderActions `json:"per_provider"`
}

// Allows 判断动作是否可作用于该渠道
func (a AvailableActions) Allows(action DecisionAction, p Provider) bool {
	pa, ok := a.PerProvider[p]
	if !ok {
		return false
	}
	switch action {
	case ActionApprove:
		return pa.Approve
	case ActionReject:
		return pa.Reject
	}
	return false
}

// Targets 按规范顺序返回可执行该动作的渠道
func (a AvailableActions) Targets(action DecisionAction) []Provider {
	out := make([]Provider, 0, 2)
	for _, p := range Providers {
		if a.Allows(action, p) {
			out = append(out, p)
		}
	}
	return out
}

// ComputeAvailableActions 计算操作人针对注册申请当前可执行的动作
func ComputeAvailableActions(s *Signup, actor Actor) AvailableActions {
	out := AvailableActions{PerProvider: make(map[Provider]ProviderActions, 2)}

	if !actor.HasApprovalPrivilege() {
		out.RequestApproval = s.GlobalStatus == GlobalStatusPending
		return out
	}

	for _, p := range s.ApplicationType.RelevantProviders() {
		if !actor.Sees(p) {
			continue
		}
		st := s.State(p)
		if st.IsProvisioned() {
			// 已开通的渠道冻结，不再提供任何动作
			out.PerProvider[p] = ProviderActions{}
			continue
		}
		reopen := st.Status == ProviderStatusRejected || s.GlobalStatus == GlobalStatusRejected
		pa := ProviderActions{
			Approve: !reopen || actor.IsElevated(),
			Reject:  st.Status != ProviderStatusRejected,
		}
		out.PerProvider[p] = pa
		out.Approve = out.Approve || pa.Approve
		out.Reject = out.Reject || pa.Reject
	}
	return out
}

// DefaultTargets 全局动作的默认目标渠道：未开通且在操作人范围内
func DefaultTargets(s *Signup, actor Actor, action DecisionAction) []Provider {
	return ComputeAvailableActions(s, actor).Targets(action)
}

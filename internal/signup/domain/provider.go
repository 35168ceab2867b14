// Package domain 联盟注册审核领域层
// 生成摘要：
// 1) 定义注册申请聚合根与双渠道（Cake / Ringba）开通状态
// 2) 定义展示状态推导、操作授权与问卷校验规则
package domain

import (
	"fmt"
	"strings"
)

// Provider 外部开通渠道
type Provider string

const (
	ProviderCake   Provider = "CAKE"   // 网页流量联盟平台
	ProviderRingba Provider = "RINGBA" // 电话流量追踪平台
)

// Providers 渠道的规范顺序，所有按渠道迭代的逻辑都遵循该顺序
var Providers = []Provider{ProviderCake, ProviderRingba}

// ParseProvider 解析渠道名称（大小写不敏感）
func ParseProvider(s string) (Provider, error) {
	switch Provider(strings.ToUpper(strings.TrimSpace(s))) {
	case ProviderCake:
		return ProviderCake, nil
	case ProviderRingba:
		return ProviderRingba, nil
	}
	return "", fmt.Errorf("%w: unknown provider %q", ErrInvalidInput, s)
}

// TrafficScope 返回该渠道对应的权限范围
func (p Provider) TrafficScope() PermissionScope {
	if p == ProviderRingba {
		return ScopeCallTrafficOnly
	}
	return ScopeWebTrafficOnly
}

// ApplicationType 申请类型，声明注册需要开通的渠道
type ApplicationType string

const (
	ApplicationTypeWebTraffic  ApplicationType = "WEB_TRAFFIC"
	ApplicationTypeCallTraffic ApplicationType = "CALL_TRAFFIC"
	ApplicationTypeBoth        ApplicationType = "BOTH"
)

// ParseApplicationType 解析申请类型
func ParseApplicationType(s string) (ApplicationType, error) {
	t := ApplicationType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ApplicationTypeWebTraffic, ApplicationTypeCallTraffic, ApplicationTypeBoth:
		return t, nil
	}
	return "", fmt.Errorf("%w: unknown application type %q", ErrInvalidInput, s)
}

// Includes 判断申请类型是否包含指定渠道
func (t ApplicationType) Includes(p Provider) bool {
	switch t {
	case ApplicationTypeBoth:
		return p == ProviderCake || p == ProviderRingba
	case ApplicationTypeWebTraffic:
		return p == ProviderCake
	case ApplicationTypeCallTraffic:
		return p == ProviderRingba
	}
	return false
}

// RelevantProviders 按规范顺序返回申请类型涉及的渠道
func (t ApplicationType) RelevantProviders() []Provider {
	out := make([]Provider, 0, 2)
	for _, p := range Providers {
		if t.Includes(p) {
			out = append(out, p)
		}
	}
	return out
}

// ProviderStatus 单渠道开通状态。空值表示尚未尝试
type ProviderStatus string

const (
	ProviderStatusNone     ProviderStatus = ""
	ProviderStatusPending  ProviderStatus = "PENDING"
	ProviderStatusApproved ProviderStatus = "APPROVED"
	ProviderStatusRejected ProviderStatus = "REJECTED"
	ProviderStatusFailed   ProviderStatus = "FAILED" // 已尝试但渠道返回失败，可重试
)

// IsUnattempted 尚未尝试或等待人工决策
func (s ProviderStatus) IsUnattempted() bool {
	return s == ProviderStatusNone || s == ProviderStatusPending
}

// IsTerminal 终态：已通过或已拒绝
func (s ProviderStatus) IsTerminal() bool {
	return s == ProviderStatusApproved || s == ProviderStatusRejected
}

// QAResponse 决策时记录的问卷回答
type QAResponse struct {
	QuestionID   string `json:"question_id"`
	QuestionText string `json:"question_text"`
	Answer       string `json:"answer"`
	Required     bool   `json:"required"`
}

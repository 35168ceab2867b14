package domain

import (
	"fmt"
	"strings"
)

// Role 操作人角色
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleManager    Role = "MANAGER"
	RoleStaff      Role = "STAFF"
)

// ParseRole 解析角色
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleManager, RoleStaff:
		return r, nil
	}
	return "", fmt.Errorf("%w: unknown role %q", ErrInvalidInput, s)
}

// PermissionScope 操作人可见、可操作的渠道范围
type PermissionScope string

const (
	ScopeBoth            PermissionScope = "BOTH"
	ScopeWebTrafficOnly  PermissionScope = "WEB_TRAFFIC_ONLY"
	ScopeCallTrafficOnly PermissionScope = "CALL_TRAFFIC_ONLY"
)

// ParsePermissionScope 解析权限范围
func ParsePermissionScope(s string) (PermissionScope, error) {
	sc := PermissionScope(strings.ToUpper(strings.TrimSpace(s)))
	switch sc {
	case ScopeBoth, ScopeWebTrafficOnly, ScopeCallTrafficOnly:
		return sc, nil
	}
	return "", fmt.Errorf("%w: unknown permission scope %q", ErrInvalidInput, s)
}

// Covers 判断权限范围是否覆盖渠道
func (s PermissionScope) Covers(p Provider) bool {
	return s == ScopeBoth || p.TrafficScope() == s
}

// Actor 显式传入每个核心操作的操作人
type Actor struct {
	ID         string
	Name       string
	Role       Role
	Scope      PermissionScope
	CanApprove bool
}

// IsElevated 管理员及超级管理员
func (a Actor) IsElevated() bool {
	return a.Role == RoleAdmin || a.Role == RoleSuperAdmin
}

// HasApprovalPrivilege 是否具备审批权限
func (a Actor) HasApprovalPrivilege() bool {
	return a.IsElevated() || a.CanApprove
}

// ViewerScope 展示状态时使用的可见范围，管理员始终可见全部渠道
func (a Actor) ViewerScope() PermissionScope {
	if a.IsElevated() {
		return ScopeBoth
	}
	return a.Scope
}

// Sees 操作人是否可见该渠道
func (a Actor) Sees(p Provider) bool {
	return a.ViewerScope().Covers(p)
}

package domain

import (
	"reflect"
	"testing"
)

var (
	staff        = Actor{ID: "u-staff", Role: RoleStaff, Scope: ScopeBoth}
	approverAll  = Actor{ID: "u-mgr", Role: RoleManager, Scope: ScopeBoth, CanApprove: true}
	approverWeb  = Actor{ID: "u-web", Role: RoleManager, Scope: ScopeWebTrafficOnly, CanApprove: true}
	approverCall = Actor{ID: "u-call", Role: RoleManager, Scope: ScopeCallTrafficOnly, CanApprove: true}
	admin        = Actor{ID: "u-admin", Role: RoleAdmin, Scope: ScopeWebTrafficOnly}
)

func TestAvailableActionsNonApprover(t *testing.T) {
	s := newTestSignup(ApplicationTypeBoth, ProviderStatusNone, ProviderStatusNone)
	got := ComputeAvailableActions(s, staff)
	if !got.RequestApproval || got.Approve || got.Reject || len(got.PerProvider) != 0 {
		t.Fatalf("unexpected actions for staff: %+v", got)
	}

	s.GlobalStatus = GlobalStatusRequestedForApproval
	if ComputeAvailableActions(s, staff).RequestApproval {
		t.Fatal("request approval offered twice")
	}
}

func TestAvailableActionsApproverScopes(t *testing.T) {
	s := newTestSignup(ApplicationTypeBoth, ProviderStatusNone, ProviderStatusNone)

	all := ComputeAvailableActions(s, approverAll)
	if !all.Allows(ActionApprove, ProviderCake) || !all.Allows(ActionApprove, ProviderRingba) || all.RequestApproval {
		t.Fatalf("full approver: %+v", all)
	}

	web := ComputeAvailableActions(s, approverWeb)
	if _, ok := web.PerProvider[ProviderRingba]; ok {
		t.Fatalf("web approver sees ringba: %+v", web)
	}
	if !web.Allows(ActionApprove, ProviderCake) || !web.Allows(ActionReject, ProviderCake) {
		t.Fatalf("web approver: %+v", web)
	}

	call := ComputeAvailableActions(s, approverCall)
	if _, ok := call.PerProvider[ProviderCake]; ok {
		t.Fatalf("call approver sees cake: %+v", call)
	}

	// 管理员不受权限范围限制
	adm := ComputeAvailableActions(s, admin)
	if !adm.Allows(ActionApprove, ProviderRingba) {
		t.Fatalf("admin: %+v", adm)
	}
}

func TestAvailableActionsFreezeProvisionedProvider(t *testing.T) {
	s := newTestSignup(ApplicationTypeBoth, ProviderStatusApproved, ProviderStatusFailed)
	got := ComputeAvailableActions(s, approverAll)
	if got.Allows(ActionApprove, ProviderCake) || got.Allows(ActionReject, ProviderCake) {
		t.Fatalf("provisioned cake still actionable: %+v", got)
	}
	if !got.Allows(ActionApprove, ProviderRingba) {
		t.Fatalf("failed ringba must allow retry: %+v", got)
	}
	if want := []Provider{ProviderRingba}; !reflect.DeepEqual(DefaultTargets(s, approverAll, ActionApprove), want) {
		t.Fatalf("default targets = %v, want %v", DefaultTargets(s, approverAll, ActionApprove), want)
	}
}

func TestAvailableActionsWebTrafficNeverOffersRingba(t *testing.T) {
	s := newTestSignup(ApplicationTypeWebTraffic, ProviderStatusNone, "")
	for _, a := range []Actor{staff, approverAll, approverWeb, approverCall, admin, {Role: RoleSuperAdmin}} {
		got := ComputeAvailableActions(s, a)
		if _, ok := got.PerProvider[ProviderRingba]; ok {
			t.Fatalf("actor %+v offered ringba: %+v", a, got)
		}
	}
	if got := ComputeAvailableActions(s, approverCall); got.Approve || got.Reject {
		t.Fatalf("call-only approver should have nothing on a web signup: %+v", got)
	}
}

func TestAvailableActionsRejectedReopenRequiresAdmin(t *testing.T) {
	s := newTestSignup(ApplicationTypeWebTraffic, ProviderStatusRejected, "")
	s.GlobalStatus = GlobalStatusRejected

	mgr := ComputeAvailableActions(s, approverAll)
	if mgr.Approve || mgr.Reject {
		t.Fatalf("manager must not reopen a rejected signup: %+v", mgr)
	}
	adm := ComputeAvailableActions(s, admin)
	if !adm.Allows(ActionApprove, ProviderCake) || adm.Allows(ActionReject, ProviderCake) {
		t.Fatalf("admin reopen: %+v", adm)
	}
}

func TestDefaultTargetsRespectScope(t *testing.T) {
	s := newTestSignup(ApplicationTypeBoth, ProviderStatusNone, ProviderStatusNone)
	if got := DefaultTargets(s, approverWeb, ActionApprove); !reflect.DeepEqual(got, []Provider{ProviderCake}) {
		t.Fatalf("web targets = %v", got)
	}
	if got := DefaultTargets(s, approverAll, ActionReject); !reflect.DeepEqual(got, []Provider{ProviderCake, ProviderRingba}) {
		t.Fatalf("full targets = %v", got)
	}
}

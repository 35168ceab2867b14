package domain

import "testing"

func newTestSignup(t ApplicationType, cake, ringba ProviderStatus) *Signup {
	s := NewSignup("SGN-test", t, ApplicationData{CompanyName: "Acme", ContactName: "Jo", Email: "jo@acme.test"})
	if s.Cake != nil {
		s.Cake.Status = cake
		if cake == ProviderStatusApproved {
			s.Cake.AffiliateID = "cake-1"
		}
	}
	if s.Ringba != nil {
		s.Ringba.Status = ringba
		if ringba == ProviderStatusApproved {
			s.Ringba.AffiliateID = "ringba-1"
		}
	}
	return s
}

func TestDeriveStatusFullViewer(t *testing.T) {
	cases := []struct {
		name   string
		cake   ProviderStatus
		ringba ProviderStatus
		global GlobalStatus
		want   DisplayStatus
	}{
		{"both approved", ProviderStatusApproved, ProviderStatusApproved, GlobalStatusApproved, DisplayApproved},
		{"approved and rejected", ProviderStatusApproved, ProviderStatusRejected, GlobalStatusPending, DisplayApprovedPartial},
		{"rejected and approved", ProviderStatusRejected, ProviderStatusApproved, GlobalStatusPending, DisplayApprovedPartial},
		{"approved and pending", ProviderStatusApproved, ProviderStatusPending, GlobalStatusPending, DisplayPartiallyApproved},
		{"approved and unattempted", ProviderStatusApproved, ProviderStatusNone, GlobalStatusPending, DisplayPartiallyApproved},
		{"failed and approved", ProviderStatusFailed, ProviderStatusApproved, GlobalStatusPending, DisplayPartiallyApproved},
		{"both unattempted", ProviderStatusNone, ProviderStatusNone, GlobalStatusPending, DisplayPending},
		{"unattempted after request", ProviderStatusNone, ProviderStatusNone, GlobalStatusRequestedForApproval, DisplayRequestedForApproval},
		{"one failed", ProviderStatusFailed, ProviderStatusNone, GlobalStatusPending, DisplayFailedPending},
		{"both failed", ProviderStatusFailed, ProviderStatusFailed, GlobalStatusPending, DisplayFailedPending},
		{"both rejected", ProviderStatusRejected, ProviderStatusRejected, GlobalStatusRejected, DisplayRejected},
		{"rejected and unattempted falls back", ProviderStatusRejected, ProviderStatusNone, GlobalStatusPending, DisplayPending},
		{"rejected and failed falls back", ProviderStatusRejected, ProviderStatusFailed, GlobalStatusRequestedForApproval, DisplayRequestedForApproval},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestSignup(ApplicationTypeBoth, tc.cake, tc.ringba)
			s.GlobalStatus = tc.global
			if got := DeriveStatus(s, ScopeBoth); got != tc.want {
				t.Fatalf("DeriveStatus = %q, want %q", got, tc.want)
			}
		})
	}
}

func TestDeriveStatusPartialLabelsNeverCollapse(t *testing.T) {
	terminal := DeriveStatus(newTestSignup(ApplicationTypeBoth, ProviderStatusApproved, ProviderStatusRejected), ScopeBoth)
	inFlight := DeriveStatus(newTestSignup(ApplicationTypeBoth, ProviderStatusApproved, ProviderStatusPending), ScopeBoth)
	if terminal != DisplayApprovedPartial || inFlight != DisplayPartiallyApproved || terminal == inFlight {
		t.Fatalf("got terminal=%q inFlight=%q", terminal, inFlight)
	}
}

func TestDeriveStatusRestrictedViewerIgnoresOtherProvider(t *testing.T) {
	all := []ProviderStatus{ProviderStatusNone, ProviderStatusPending, ProviderStatusApproved, ProviderStatusRejected, ProviderStatusFailed}
	for _, cake := range all {
		var webWant DisplayStatus
		for i, ringba := range all {
			got := DeriveStatus(newTestSignup(ApplicationTypeBoth, cake, ringba), ScopeWebTrafficOnly)
			if i == 0 {
				webWant = got
			} else if got != webWant {
				t.Fatalf("web viewer status changed with ringba=%q: %q != %q", ringba, got, webWant)
			}
		}
	}
	for _, ringba := range all {
		var callWant DisplayStatus
		for i, cake := range all {
			got := DeriveStatus(newTestSignup(ApplicationTypeBoth, cake, ringba), ScopeCallTrafficOnly)
			if i == 0 {
				callWant = got
			} else if got != callWant {
				t.Fatalf("call viewer status changed with cake=%q: %q != %q", cake, got, callWant)
			}
		}
	}
}

func TestDeriveStatusSingleProvider(t *testing.T) {
	cases := []struct {
		appType ApplicationType
		cake    ProviderStatus
		ringba  ProviderStatus
		want    DisplayStatus
	}{
		{ApplicationTypeWebTraffic, ProviderStatusApproved, "", DisplayApproved},
		{ApplicationTypeWebTraffic, ProviderStatusRejected, "", DisplayRejected},
		{ApplicationTypeWebTraffic, ProviderStatusFailed, "", DisplayFailedPending},
		{ApplicationTypeWebTraffic, ProviderStatusNone, "", DisplayPending},
		{ApplicationTypeCallTraffic, "", ProviderStatusApproved, DisplayApproved},
		{ApplicationTypeCallTraffic, "", ProviderStatusPending, DisplayPending},
	}
	for _, tc := range cases {
		s := newTestSignup(tc.appType, tc.cake, tc.ringba)
		for _, viewer := range []PermissionScope{ScopeBoth, ScopeWebTrafficOnly, ScopeCallTrafficOnly} {
			if got := DeriveStatus(s, viewer); got != tc.want {
				t.Fatalf("%s viewer %s: got %q, want %q", tc.appType, viewer, got, tc.want)
			}
		}
	}
}

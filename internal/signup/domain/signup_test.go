package domain

import (
	"errors"
	"testing"
	"time"
)

func TestNewSignupProviderEntries(t *testing.T) {
	web := NewSignup("s1", ApplicationTypeWebTraffic, ApplicationData{})
	if web.Cake == nil || web.Ringba != nil {
		t.Fatalf("web signup entries: cake=%v ringba=%v", web.Cake, web.Ringba)
	}
	both := NewSignup("s2", ApplicationTypeBoth, ApplicationData{})
	if both.Cake == nil || both.Ringba == nil || both.GlobalStatus != GlobalStatusPending {
		t.Fatalf("both signup: %+v", both)
	}
	if evs := both.GetDomainEvents(); len(evs) != 1 || evs[0].EventName() != TopicSignupCreated {
		t.Fatalf("events = %v", evs)
	}
}

func TestRecordAttemptFreezesProvisionedProvider(t *testing.T) {
	s := NewSignup("s1", ApplicationTypeBoth, ApplicationData{})
	now := time.Now()
	if err := s.RecordAttempt(ProviderCake, OutcomeApproved("C-1", ""), "u1", now, nil); err != nil {
		t.Fatalf("approve: %v", err)
	}
	for _, o := range []AttemptOutcome{OutcomeApproved("C-2", ""), OutcomeRejected("late"), OutcomeFailed("boom")} {
		if err := s.RecordAttempt(ProviderCake, o, "u2", now, nil); !errors.Is(err, ErrAlreadyProvisioned) {
			t.Fatalf("outcome %+v: err = %v, want ErrAlreadyProvisioned", o, err)
		}
	}
	if s.Cake.AffiliateID != "C-1" || s.Cake.ProcessedBy != "u1" {
		t.Fatalf("cake state mutated: %+v", s.Cake)
	}
}

func TestRecordAttemptValidation(t *testing.T) {
	s := NewSignup("s1", ApplicationTypeWebTraffic, ApplicationData{})
	now := time.Now()
	if err := s.RecordAttempt(ProviderRingba, OutcomeFailed("x"), "u", now, nil); !errors.Is(err, ErrProviderNotApplicable) {
		t.Fatalf("ringba on web signup: %v", err)
	}
	if err := s.RecordAttempt(ProviderCake, OutcomeApproved("", ""), "u", now, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("approval without id: %v", err)
	}
	if err := s.RecordAttempt(ProviderCake, AttemptOutcome{Status: ProviderStatusFailed, AffiliateID: "C"}, "u", now, nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("failure with id: %v", err)
	}
}

func TestRecordAttemptCountsRetries(t *testing.T) {
	s := NewSignup("s1", ApplicationTypeCallTraffic, ApplicationData{})
	now := time.Now()
	qa := []QAResponse{{QuestionID: "q", Answer: "a"}}
	_ = s.RecordAttempt(ProviderRingba, OutcomeFailed("timeout"), "u", now, qa)
	_ = s.RecordAttempt(ProviderRingba, OutcomeFailed("timeout"), "u", now, qa)
	if err := s.RecordAttempt(ProviderRingba, OutcomeApproved("R-9", ""), "u", now, qa); err != nil {
		t.Fatalf("approve: %v", err)
	}
	if s.Ringba.Attempts != 3 || s.GlobalStatus != GlobalStatusApproved {
		t.Fatalf("attempts=%d global=%s", s.Ringba.Attempts, s.GlobalStatus)
	}
	if len(s.Ringba.QAResponses) != 1 {
		t.Fatalf("qa not recorded: %+v", s.Ringba.QAResponses)
	}
}

func TestRecomputeGlobalStatus(t *testing.T) {
	now := time.Now()

	s := NewSignup("s1", ApplicationTypeBoth, ApplicationData{})
	_ = s.RecordAttempt(ProviderCake, OutcomeApproved("C-1", ""), "u", now, nil)
	if s.GlobalStatus != GlobalStatusPending {
		t.Fatalf("one of two approved: %s", s.GlobalStatus)
	}
	_ = s.RecordAttempt(ProviderRingba, OutcomeRejected("no"), "u", now, nil)
	if s.GlobalStatus != GlobalStatusPending {
		t.Fatalf("mixed outcome: %s", s.GlobalStatus)
	}

	r := NewSignup("s2", ApplicationTypeBoth, ApplicationData{})
	_ = r.RecordAttempt(ProviderCake, OutcomeRejected("no"), "u", now, nil)
	_ = r.RecordAttempt(ProviderRingba, OutcomeRejected("no"), "u", now, nil)
	if r.GlobalStatus != GlobalStatusRejected {
		t.Fatalf("all rejected: %s", r.GlobalStatus)
	}
	// 管理员重新开通一个渠道后回到待处理
	_ = r.RecordAttempt(ProviderCake, OutcomeFailed("down"), "admin", now, nil)
	if r.GlobalStatus != GlobalStatusPending {
		t.Fatalf("reopened: %s", r.GlobalStatus)
	}
}

func TestRequestApproval(t *testing.T) {
	s := NewSignup("s1", ApplicationTypeBoth, ApplicationData{})
	if err := s.RequestApproval("u", time.Now()); err != nil {
		t.Fatalf("RequestApproval: %v", err)
	}
	if s.GlobalStatus != GlobalStatusRequestedForApproval {
		t.Fatalf("global = %s", s.GlobalStatus)
	}
	if err := s.RequestApproval("u", time.Now()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("second request: %v", err)
	}
}

func TestChangeApplicationType(t *testing.T) {
	now := time.Now()
	s := NewSignup("s1", ApplicationTypeBoth, ApplicationData{})
	_ = s.RecordAttempt(ProviderRingba, OutcomeApproved("R-1", ""), "u", now, nil)

	if err := s.ChangeApplicationType(ApplicationTypeWebTraffic, now); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("dropping provisioned ringba: %v", err)
	}
	if err := s.ChangeApplicationType(ApplicationTypeCallTraffic, now); err != nil {
		t.Fatalf("dropping cake: %v", err)
	}
	if s.Cake != nil || s.GlobalStatus != GlobalStatusApproved {
		t.Fatalf("after change: cake=%v global=%s", s.Cake, s.GlobalStatus)
	}

	// 已通过的单渠道申请扩展为双渠道后，新渠道尚未处理，申请回到待处理
	web := NewSignup("s2", ApplicationTypeWebTraffic, ApplicationData{})
	if err := web.RecordAttempt(ProviderCake, OutcomeApproved("C-1", ""), "u", now, nil); err != nil {
		t.Fatal(err)
	}
	if web.GlobalStatus != GlobalStatusApproved {
		t.Fatalf("web approved: global=%s", web.GlobalStatus)
	}
	if err := web.ChangeApplicationType(ApplicationTypeBoth, now); err != nil {
		t.Fatalf("widening to both: %v", err)
	}
	if web.GlobalStatus != GlobalStatusPending || web.IsResolved() || web.StatusOf(ProviderRingba) != ProviderStatusNone {
		t.Fatalf("after widening: global=%s resolved=%v ringba=%q", web.GlobalStatus, web.IsResolved(), web.StatusOf(ProviderRingba))
	}
	if got := DeriveStatus(web, ScopeBoth); got != DisplayPartiallyApproved {
		t.Fatalf("display = %q", got)
	}
}

func TestRecordAttemptReplacesQAResponses(t *testing.T) {
	s := NewSignup("s1", ApplicationTypeWebTraffic, ApplicationData{})
	now := time.Now()
	qa := []QAResponse{{QuestionID: "q1", QuestionText: "Call center?", Answer: "Yes", Required: true}}
	if err := s.RecordAttempt(ProviderCake, OutcomeFailed("timeout"), "u1", now, qa); err != nil {
		t.Fatal(err)
	}
	if len(s.Cake.QAResponses) != 1 {
		t.Fatalf("qa = %+v", s.Cake.QAResponses)
	}
	// 无激活问卷时的拒绝不得沿用上一次尝试的回答
	if err := s.RecordAttempt(ProviderCake, OutcomeRejected("no fit"), "u2", now, nil); err != nil {
		t.Fatal(err)
	}
	if len(s.Cake.QAResponses) != 0 {
		t.Fatalf("stale qa responses kept: %+v", s.Cake.QAResponses)
	}
}

func TestApplicationDataValidate(t *testing.T) {
	if err := (ApplicationData{CompanyName: "A", ContactName: "B", Email: "b@a.test"}).Validate(); err != nil {
		t.Fatalf("valid data: %v", err)
	}
	if err := (ApplicationData{CompanyName: "A", ContactName: "B", Email: "nope"}).Validate(); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("bad email: %v", err)
	}
}

func TestNotePermissions(t *testing.T) {
	author := Actor{ID: "u1", Name: "Jo", Role: RoleStaff}
	n, err := NewNote("s1", author, "  called the applicant ")
	if err != nil {
		t.Fatalf("NewNote: %v", err)
	}
	if n.Content != "called the applicant" {
		t.Fatalf("content = %q", n.Content)
	}
	if err := n.Edit(Actor{ID: "u2", Role: RoleManager}, "x", time.Now()); !errors.Is(err, ErrForbidden) {
		t.Fatalf("other staff edit: %v", err)
	}
	if err := n.Edit(Actor{ID: "u3", Role: RoleAdmin}, "admin edit", time.Now()); err != nil {
		t.Fatalf("admin edit: %v", err)
	}
	if _, err := NewNote("s1", author, ""); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("empty note: %v", err)
	}
}

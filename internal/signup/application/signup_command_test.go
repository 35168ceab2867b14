package application

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/affiliateops/internal/signup/domain"
)

func TestCreateSignup(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()

	id, err := f.svc.CreateSignup(ctx, CreateSignupCommand{
		ApplicationType: "both",
		Application: domain.ApplicationData{
			CompanyName:   "Acme Leads",
			ContactName:   "Jo",
			Email:         "jo@acme.test",
			MinimumPayout: decimal.RequireFromString("12.50"),
		},
	})
	if err != nil {
		t.Fatalf("CreateSignup: %v", err)
	}
	if !strings.HasPrefix(id, "SGN-") {
		t.Fatalf("signup id = %q", id)
	}
	dto, err := f.svc.GetSignup(ctx, id, approver)
	if err != nil {
		t.Fatalf("GetSignup: %v", err)
	}
	if dto.DisplayStatus != domain.DisplayPending || len(dto.Providers) != 2 || dto.Application.MinimumPayout != "12.50" {
		t.Fatalf("dto = %+v", dto)
	}
	if !f.publisher.has(domain.TopicSignupCreated) {
		t.Fatal("created event not published")
	}

	cases := []CreateSignupCommand{
		{ApplicationType: "SMS_TRAFFIC", Application: domain.ApplicationData{CompanyName: "A", ContactName: "B", Email: "a@b.c"}},
		{ApplicationType: "WEB_TRAFFIC", Application: domain.ApplicationData{CompanyName: "A"}},
	}
	for _, cmd := range cases {
		if _, err := f.svc.CreateSignup(ctx, cmd); !errors.Is(err, domain.ErrInvalidInput) {
			t.Fatalf("CreateSignup(%+v) err = %v", cmd, err)
		}
	}
}

func TestRequestApproval(t *testing.T) {
	f := newFixture(Options{})
	f.seed("s1", domain.ApplicationTypeBoth)
	ctx := context.Background()

	if _, err := f.svc.RequestApproval(ctx, RequestApprovalCommand{SignupID: "s1", Actor: approver}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("approver requesting approval: %v", err)
	}

	dto, err := f.svc.RequestApproval(ctx, RequestApprovalCommand{SignupID: "s1", Actor: staffer})
	if err != nil {
		t.Fatalf("RequestApproval: %v", err)
	}
	if dto.GlobalStatus != domain.GlobalStatusRequestedForApproval || dto.DisplayStatus != domain.DisplayRequestedForApproval {
		t.Fatalf("dto = %+v", dto)
	}
	if dto.AvailableActions.RequestApproval {
		t.Fatal("request approval still offered")
	}
	if _, err := f.svc.RequestApproval(ctx, RequestApprovalCommand{SignupID: "s1", Actor: staffer}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("second request: %v", err)
	}
	if !f.publisher.has(domain.TopicApprovalRequested) {
		t.Fatal("approval requested event not published")
	}
	if f.locker.locks != 3 {
		t.Fatalf("locks = %d, want 3", f.locker.locks)
	}
}

func TestUpdateApplicationType(t *testing.T) {
	f := newFixture(Options{})
	f.seed("s1", domain.ApplicationTypeBoth)
	f.cake.results = []stubResult{{id: "CAKE-1"}}
	ctx := context.Background()

	if _, err := f.svc.Decide(ctx, DecideCommand{SignupID: "s1", Actor: approver, Action: domain.ActionApprove, Targets: []domain.Provider{domain.ProviderCake}}); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	if _, err := f.svc.UpdateApplicationType(ctx, UpdateApplicationTypeCommand{SignupID: "s1", Actor: staffer, ApplicationType: "WEB_TRAFFIC"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("staff edit: %v", err)
	}
	if _, err := f.svc.UpdateApplicationType(ctx, UpdateApplicationTypeCommand{SignupID: "s1", Actor: approver, ApplicationType: "CALL_TRAFFIC"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("dropping provisioned cake: %v", err)
	}

	dto, err := f.svc.UpdateApplicationType(ctx, UpdateApplicationTypeCommand{SignupID: "s1", Actor: approver, ApplicationType: "WEB_TRAFFIC"})
	if err != nil {
		t.Fatalf("UpdateApplicationType: %v", err)
	}
	if dto.GlobalStatus != domain.GlobalStatusApproved || !dto.Resolved || len(dto.Providers) != 1 {
		t.Fatalf("dto = %+v", dto)
	}

	widened, err := f.svc.UpdateApplicationType(ctx, UpdateApplicationTypeCommand{SignupID: "s1", Actor: approver, ApplicationType: "BOTH"})
	if err != nil {
		t.Fatalf("widen to both: %v", err)
	}
	if widened.GlobalStatus != domain.GlobalStatusPending || widened.Resolved || widened.DisplayStatus != domain.DisplayPartiallyApproved {
		t.Fatalf("widened = %+v", widened)
	}
	list, err := f.svc.ListSignups(ctx, ListSignupsQuery{Actor: approver, GlobalStatus: "APPROVED"})
	if err != nil {
		t.Fatalf("ListSignups: %v", err)
	}
	if list.Total != 0 {
		t.Fatalf("unresolved signup listed as approved: %+v", list.Items)
	}
}

func TestNotes(t *testing.T) {
	f := newFixture(Options{})
	f.seed("s1", domain.ApplicationTypeBoth)
	ctx := context.Background()

	note, err := f.svc.AddNote(ctx, AddNoteCommand{SignupID: "s1", Actor: staffer, Content: "left voicemail"})
	if err != nil {
		t.Fatalf("AddNote: %v", err)
	}
	if _, err := f.svc.AddNote(ctx, AddNoteCommand{SignupID: "missing", Actor: staffer, Content: "x"}); !errors.Is(err, domain.ErrSignupNotFound) {
		t.Fatalf("note on missing signup: %v", err)
	}

	if _, err := f.svc.EditNote(ctx, EditNoteCommand{NoteID: note.ID, Actor: approver, Content: "hijack"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("edit by non-author: %v", err)
	}
	edited, err := f.svc.EditNote(ctx, EditNoteCommand{NoteID: note.ID, Actor: staffer, Content: "called back"})
	if err != nil || edited.Content != "called back" {
		t.Fatalf("EditNote = %+v, %v", edited, err)
	}

	if err := f.svc.DeleteNote(ctx, note.ID, approver); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("delete by non-author: %v", err)
	}
	if err := f.svc.DeleteNote(ctx, note.ID, adminActor); err != nil {
		t.Fatalf("admin delete: %v", err)
	}
	notes, err := f.svc.ListNotes(ctx, "s1")
	if err != nil || len(notes) != 0 {
		t.Fatalf("ListNotes = %+v, %v", notes, err)
	}
}

func TestCreateQAForm(t *testing.T) {
	f := newFixture(Options{})
	ctx := context.Background()
	cmd := CreateQAFormCommand{
		Actor:    adminActor,
		Provider: "ringba",
		Name:     "Ringba vetting v2",
		Questions: []domain.Question{
			{ID: "volume", Text: "Daily call volume?", Required: true},
			{ID: "tcpa", Text: "TCPA compliant?", FieldType: "yes_no", Required: true},
		},
	}

	if _, err := f.svc.CreateQAForm(ctx, CreateQAFormCommand{Actor: approver, Provider: "ringba", Name: "x"}); !errors.Is(err, domain.ErrForbidden) {
		t.Fatalf("manager creating form: %v", err)
	}
	form, err := f.svc.CreateQAForm(ctx, cmd)
	if err != nil {
		t.Fatalf("CreateQAForm: %v", err)
	}
	if !form.Active || form.Questions[0].FieldType != domain.FieldTypeText || form.Questions[1].FieldType != domain.FieldTypeYesNo {
		t.Fatalf("form = %+v", form)
	}

	active, err := f.svc.ActiveForm(ctx, "RINGBA")
	if err != nil || active.Name != "Ringba vetting v2" {
		t.Fatalf("ActiveForm = %+v, %v", active, err)
	}
	if _, err := f.svc.ActiveForm(ctx, "cake"); !errors.Is(err, domain.ErrFormNotFound) {
		t.Fatalf("cake form: %v", err)
	}
}

func TestListSignups(t *testing.T) {
	f := newFixture(Options{})
	f.seed("s1", domain.ApplicationTypeBoth)
	f.seed("s2", domain.ApplicationTypeWebTraffic)
	f.seed("s3", domain.ApplicationTypeBoth)
	f.cake.results = []stubResult{{id: "CAKE-1"}}
	ctx := context.Background()
	if _, err := f.svc.Decide(ctx, DecideCommand{SignupID: "s1", Actor: webApprover, Action: domain.ActionApprove}); err != nil {
		t.Fatalf("Decide: %v", err)
	}

	list, err := f.svc.ListSignups(ctx, ListSignupsQuery{Actor: approver, ApplicationType: "BOTH", PageSize: 1, Page: 1})
	if err != nil {
		t.Fatalf("ListSignups: %v", err)
	}
	if list.Total != 2 || len(list.Items) != 1 || list.Items[0].SignupID != "s1" {
		t.Fatalf("list = %+v", list)
	}
	if list.Items[0].DisplayStatus != domain.DisplayPartiallyApproved {
		t.Fatalf("full viewer display = %s", list.Items[0].DisplayStatus)
	}

	webList, err := f.svc.ListSignups(ctx, ListSignupsQuery{Actor: webApprover, ApplicationType: "BOTH", PageSize: 1})
	if err != nil {
		t.Fatalf("ListSignups: %v", err)
	}
	if webList.Items[0].DisplayStatus != domain.DisplayApproved {
		t.Fatalf("web viewer display = %s", webList.Items[0].DisplayStatus)
	}

	if _, err := f.svc.ListSignups(ctx, ListSignupsQuery{Actor: approver, GlobalStatus: "UNKNOWN"}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("bad filter: %v", err)
	}
}

func TestGetSignupHidesOtherProvider(t *testing.T) {
	f := newFixture(Options{})
	f.seed("s1", domain.ApplicationTypeBoth)

	dto, err := f.svc.GetSignup(context.Background(), "s1", webApprover)
	if err != nil {
		t.Fatalf("GetSignup: %v", err)
	}
	if len(dto.Providers) != 1 || dto.Providers[0].Provider != domain.ProviderCake {
		t.Fatalf("providers = %+v", dto.Providers)
	}
	if _, ok := dto.AvailableActions.PerProvider[domain.ProviderRingba]; ok {
		t.Fatal("ringba actions exposed to web approver")
	}
}

package service

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"
	"time"

	"healthpulse/internal/apperr"
	"healthpulse/internal/config"
	"healthpulse/internal/llm"
	"healthpulse/internal/model"
)

type assessmentFixture struct {
	svc         *AssessmentService
	assessments *fakeAssessmentRepo
	responses   *fakeResponseRepo
	gen         *fakeGenerator
}

func newAssessmentFixture(t *testing.T) *assessmentFixture {
	t.Helper()
	assessments := newFakeAssessmentRepo()
	responses := newFakeResponseRepo()
	concerns := &fakeConcernRepo{items: map[string]*model.HealthConcern{
		"hc1": {ID: "hc1", UserID: "u1", Title: "Migraine", Status: model.ConcernActive},
		"hc2": {ID: "hc2", UserID: "u2", Title: "Someone else's"},
	}}
	gen := &fakeGenerator{content: validOutput}
	cfg := config.DefaultLLMConfig()

	svc := NewAssessmentService(assessments, responses, concerns, newFakePatientRepo(), nil, gen, wordCounter{}, cfg, nil)
	return &assessmentFixture{svc: svc, assessments: assessments, responses: responses, gen: gen}
}

func TestGenerate_PersistsValidatedAssessment(t *testing.T) {
	f := newAssessmentFixture(t)

	a, err := f.svc.Generate(context.Background(), "u1", "hc1")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if a.ID == "" || !a.IsActive || a.Severity != model.SeverityModerate || a.MinDaysBeforeNextAssessment != 14 {
		t.Fatalf("unexpected assessment: %+v", a)
	}
	if a.UserID != "u1" || a.HealthConcernID != "hc1" {
		t.Fatalf("ownership not recorded: %+v", a)
	}
	if a.Metadata.Usage.TotalTokens != 150 || a.Metadata.PromptVersion != "v1" || a.Metadata.LatencyMS != 120 {
		t.Fatalf("metadata not recorded: %+v", a.Metadata)
	}
	if f.assessments.count() != 1 {
		t.Fatalf("expected one stored assessment, got %d", f.assessments.count())
	}

	req := f.gen.requests[0]
	if !req.JSONMode || req.SystemPrompt != AssessmentSystemPrompt {
		t.Fatalf("unexpected generator request: %+v", req)
	}
	if !strings.Contains(req.UserPrompt, `"title":"Migraine"`) {
		t.Fatalf("user prompt does not embed the context: %s", req.UserPrompt)
	}
}

func TestGenerate_CooldownConflict(t *testing.T) {
	f := newAssessmentFixture(t)
	if _, err := f.svc.Generate(context.Background(), "u1", "hc1"); err != nil {
		t.Fatal(err)
	}

	_, err := f.svc.Generate(context.Background(), "u1", "hc1")
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind != apperr.KindConflict || ae.Code != "COOLDOWN_ACTIVE" {
		t.Fatalf("expected cooldown conflict, got %v", err)
	}
	if ae.Meta["daysRemaining"] != 14 {
		t.Fatalf("expected 14 days remaining, got %v", ae.Meta)
	}
	if len(f.gen.requests) != 1 {
		t.Fatalf("generator must not be called when cooldown is active")
	}
}

func TestGenerate_ForeignOrMissingConcernIsNotFound(t *testing.T) {
	f := newAssessmentFixture(t)
	for _, id := range []string{"hc2", "missing"} {
		_, err := f.svc.Generate(context.Background(), "u1", id)
		if !apperr.IsKind(err, apperr.KindNotFound) {
			t.Fatalf("%s: expected not found, got %v", id, err)
		}
	}
}

func TestGenerate_NothingPersistedOnFailure(t *testing.T) {
	tests := []struct {
		name    string
		content string
		err     error
	}{
		{"gateway error", "", &llm.Error{Kind: llm.KindAuth}},
		{"malformed output", `{"severity":"low"}`, nil},
		{"not json", "Sorry, I cannot help with that.", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newAssessmentFixture(t)
			f.gen.content, f.gen.err = tt.content, tt.err

			_, err := f.svc.Generate(context.Background(), "u1", "hc1")
			if !apperr.IsKind(err, apperr.KindUpstream) {
				t.Fatalf("expected upstream error, got %v", err)
			}
			if f.assessments.count() != 0 {
				t.Fatal("no assessment may be persisted after a failed generation")
			}
		})
	}
}

func TestGenerate_PersistFailureIsInternal(t *testing.T) {
	f := newAssessmentFixture(t)
	f.assessments.createErr = errors.New("write concern")

	_, err := f.svc.Generate(context.Background(), "u1", "hc1")
	if !apperr.IsKind(err, apperr.KindInternal) {
		t.Fatalf("expected internal error, got %v", err)
	}
}

// Two concurrent requests may both pass the cooldown check. This is accepted.
func TestGenerate_ConcurrentRequestsMayBothSucceed(t *testing.T) {
	f := newAssessmentFixture(t)

	// Hold both requests inside the gateway until both have passed the gate.
	release := make(chan struct{})
	var entered sync.WaitGroup
	entered.Add(2)
	f.svc.generator = generatorFunc(func(ctx context.Context, req llm.Request) (*llm.Result, error) {
		entered.Done()
		<-release
		return &llm.Result{Content: validOutput, Model: req.Model}, nil
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.svc.Generate(context.Background(), "u1", "hc1")
		}(i)
	}
	entered.Wait()
	close(release)
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
	}
	if f.assessments.count() != 2 {
		t.Fatalf("expected both assessments to persist, got %d", f.assessments.count())
	}
}

type generatorFunc func(ctx context.Context, req llm.Request) (*llm.Result, error)

func (f generatorFunc) Generate(ctx context.Context, req llm.Request) (*llm.Result, error) {
	return f(ctx, req)
}

func TestCanGenerate(t *testing.T) {
	f := newAssessmentFixture(t)
	d, err := f.svc.CanGenerate(context.Background(), "u1", "hc1")
	if err != nil || !d.Allowed {
		t.Fatalf("expected allowed, got %+v %v", d, err)
	}
	if _, err := f.svc.Generate(context.Background(), "u1", "hc1"); err != nil {
		t.Fatal(err)
	}
	d, err = f.svc.CanGenerate(context.Background(), "u1", "hc1")
	if err != nil || d.Allowed || d.DaysRemaining != 14 || d.LastAssessmentDate == nil {
		t.Fatalf("expected denial, got %+v %v", d, err)
	}
	if _, err := f.svc.CanGenerate(context.Background(), "u1", "hc2"); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign concern, got %v", err)
	}
}

func TestGetByID_OwnershipAndDeactivation(t *testing.T) {
	f := newAssessmentFixture(t)
	a, err := f.svc.Generate(context.Background(), "u1", "hc1")
	if err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.GetByID(context.Background(), "u1", a.ID); err != nil {
		t.Fatalf("owner read failed: %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), "u2", a.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for other user, got %v", err)
	}
	if err := f.svc.Deactivate(context.Background(), "u2", a.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("other user must not deactivate, got %v", err)
	}
	if err := f.svc.Deactivate(context.Background(), "u1", a.ID); err != nil {
		t.Fatalf("Deactivate: %v", err)
	}
	if _, err := f.svc.GetByID(context.Background(), "u1", a.ID); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected deactivated assessment to be hidden, got %v", err)
	}
	if d, _ := f.svc.CanGenerate(context.Background(), "u1", "hc1"); !d.Allowed {
		t.Fatal("deactivated assessment must not hold the cooldown")
	}
}

func TestHistory_PaginatesAndJoinsResponses(t *testing.T) {
	f := newAssessmentFixture(t)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		_ = f.assessments.Create(context.Background(), &model.Assessment{
			ID: "a" + string(rune('0'+i)), UserID: "u1", HealthConcernID: "hc1",
			IsActive: true, CreatedAt: base.Add(time.Duration(i) * day),
		})
	}
	_ = f.responses.Create(context.Background(), &model.AssessmentResponse{AssessmentID: "a4", UserID: "u1"})

	page, err := f.svc.History(context.Background(), "u1", HistoryQuery{Page: 1, Limit: 2, IncludeResponses: true})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 5 || page.TotalPages != 3 || len(page.Items) != 2 {
		t.Fatalf("unexpected page: %+v", page)
	}
	if page.Items[0].ID != "a4" || page.Items[0].Response == nil {
		t.Fatalf("expected newest first with its response, got %+v", page.Items[0])
	}
	if page.Items[1].Response != nil {
		t.Fatal("unanswered assessment must have no response")
	}

	if _, err := f.svc.History(context.Background(), "u1", HistoryQuery{HealthConcernID: "hc2"}); !apperr.IsKind(err, apperr.KindNotFound) {
		t.Fatalf("expected not found for foreign concern filter, got %v", err)
	}
}

func TestHistory_RejectsPageBeyondLimit(t *testing.T) {
	f := newAssessmentFixture(t)
	for _, pg := range []int{maxHistoryPage + 1, math.MaxInt / 5} {
		_, err := f.svc.History(context.Background(), "u1", HistoryQuery{Page: pg, Limit: maxHistoryLimit})
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Fatalf("page %d: expected validation error, got %v", pg, err)
		}
	}
	if f.assessments.lastSkip() < 0 {
		t.Fatal("negative skip reached the repository")
	}

	page, err := f.svc.History(context.Background(), "u1", HistoryQuery{Page: maxHistoryPage, Limit: maxHistoryLimit})
	if err != nil {
		t.Fatalf("last allowed page: %v", err)
	}
	if len(page.Items) != 0 {
		t.Fatalf("expected empty page, got %d items", len(page.Items))
	}
	if got, want := f.assessments.lastSkip(), int64(maxHistoryPage-1)*maxHistoryLimit; got != want {
		t.Fatalf("skip = %d, want %d", got, want)
	}
}

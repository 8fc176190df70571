package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"healthpulse/internal/llm"
	"healthpulse/internal/model"
	"healthpulse/internal/repository"

	"github.com/google/uuid"
)

type fakeAssessmentRepo struct {
	mu        sync.Mutex
	items     map[string]*model.Assessment
	createErr error
	skips     []int64
}

func newFakeAssessmentRepo() *fakeAssessmentRepo {
	return &fakeAssessmentRepo{items: map[string]*model.Assessment{}}
}

func (r *fakeAssessmentRepo) Create(_ context.Context, a *model.Assessment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createErr != nil {
		return r.createErr
	}
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now()
	}
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeAssessmentRepo) GetByID(_ context.Context, id string) (*model.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAssessmentRepo) sorted(match func(*model.Assessment) bool) []*model.Assessment {
	var out []*model.Assessment
	for _, a := range r.items {
		if match(a) {
			cp := *a
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (r *fakeAssessmentRepo) LatestActive(_ context.Context, userID, hcID string) (*model.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sorted(func(a *model.Assessment) bool {
		return a.UserID == userID && a.HealthConcernID == hcID && a.IsActive
	})
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

func (r *fakeAssessmentRepo) Recent(_ context.Context, userID, hcID string, limit int64) ([]*model.Assessment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	list := r.sorted(func(a *model.Assessment) bool {
		return a.UserID == userID && a.HealthConcernID == hcID && a.IsActive
	})
	if int64(len(list)) > limit {
		list = list[:limit]
	}
	return list, nil
}

func (r *fakeAssessmentRepo) History(_ context.Context, f repository.HistoryFilter) ([]*model.Assessment, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.skips = append(r.skips, f.Skip)
	list := r.sorted(func(a *model.Assessment) bool {
		return a.UserID == f.UserID && a.IsActive && (f.HealthConcernID == "" || a.HealthConcernID == f.HealthConcernID)
	})
	total := int64(len(list))
	if f.Skip >= total {
		return nil, total, nil
	}
	end := f.Skip + f.Limit
	if end > total {
		end = total
	}
	return list[f.Skip:end], total, nil
}

func (r *fakeAssessmentRepo) Deactivate(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok || !a.IsActive {
		return false, nil
	}
	a.IsActive = false
	return true, nil
}

// lastSkip returns the skip of the latest History call, or 0.
func (r *fakeAssessmentRepo) lastSkip() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.skips) == 0 {
		return 0
	}
	return r.skips[len(r.skips)-1]
}

func (r *fakeAssessmentRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

// fakeResponseRepo enforces one response per assessment like the unique index.
type fakeResponseRepo struct {
	mu    sync.Mutex
	items map[string]*model.AssessmentResponse
	// beforeCreate runs outside the lock, letting tests widen race windows.
	beforeCreate func()
}

func newFakeResponseRepo() *fakeResponseRepo {
	return &fakeResponseRepo{items: map[string]*model.AssessmentResponse{}}
}

func (r *fakeResponseRepo) Create(_ context.Context, resp *model.AssessmentResponse) error {
	if r.beforeCreate != nil {
		r.beforeCreate()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.items {
		if existing.AssessmentID == resp.AssessmentID {
			return repository.ErrDuplicateResponse
		}
	}
	if resp.ID == "" {
		resp.ID = uuid.NewString()
	}
	resp.CompletedAt = time.Now()
	cp := *resp
	r.items[resp.ID] = &cp
	return nil
}

func (r *fakeResponseRepo) GetByID(_ context.Context, id string) (*model.AssessmentResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.items[id]
	if !ok {
		return nil, nil
	}
	cp := *resp
	return &cp, nil
}

func (r *fakeResponseRepo) GetByAssessmentID(_ context.Context, assessmentID string) (*model.AssessmentResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, resp := range r.items {
		if resp.AssessmentID == assessmentID {
			cp := *resp
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *fakeResponseRepo) ListByAssessmentIDs(_ context.Context, ids []string) ([]*model.AssessmentResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	want := map[string]bool{}
	for _, id := range ids {
		want[id] = true
	}
	var out []*model.AssessmentResponse
	for _, resp := range r.items {
		if want[resp.AssessmentID] {
			cp := *resp
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeResponseRepo) UpdateReport(_ context.Context, id string, status model.ReportStatus, report map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	resp, ok := r.items[id]
	if !ok {
		return errors.New("not found")
	}
	resp.ReportStatus = status
	if report != nil {
		resp.Report = report
	}
	return nil
}

func (r *fakeResponseRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.items)
}

type fakeConcernRepo struct {
	items map[string]*model.HealthConcern
}

func (r *fakeConcernRepo) Create(_ context.Context, hc *model.HealthConcern) error {
	r.items[hc.ID] = hc
	return nil
}

func (r *fakeConcernRepo) GetByID(_ context.Context, id string) (*model.HealthConcern, error) {
	return r.items[id], nil
}

type fakePatientRepo struct {
	profiles   map[string]*model.PatientProfile
	allergies  map[string][]*model.Allergy
	conditions map[string][]*model.ChronicCondition
}

func newFakePatientRepo() *fakePatientRepo {
	return &fakePatientRepo{
		profiles:   map[string]*model.PatientProfile{},
		allergies:  map[string][]*model.Allergy{},
		conditions: map[string][]*model.ChronicCondition{},
	}
}

func (r *fakePatientRepo) CreateUser(context.Context, *model.User) error { return nil }

func (r *fakePatientRepo) UpsertProfile(_ context.Context, p *model.PatientProfile) error {
	r.profiles[p.UserID] = p
	return nil
}

func (r *fakePatientRepo) AddAllergy(_ context.Context, a *model.Allergy) error {
	r.allergies[a.UserID] = append(r.allergies[a.UserID], a)
	return nil
}

func (r *fakePatientRepo) AddChronicCondition(_ context.Context, c *model.ChronicCondition) error {
	r.conditions[c.UserID] = append(r.conditions[c.UserID], c)
	return nil
}

func (r *fakePatientRepo) GetProfile(_ context.Context, userID string) (*model.PatientProfile, error) {
	return r.profiles[userID], nil
}

func (r *fakePatientRepo) ActiveAllergies(_ context.Context, userID string) ([]*model.Allergy, error) {
	return r.allergies[userID], nil
}

func (r *fakePatientRepo) ActiveChronicConditions(_ context.Context, userID string) ([]*model.ChronicCondition, error) {
	return r.conditions[userID], nil
}

// fakeGenerator returns content or err and records the requests it saw.
type fakeGenerator struct {
	mu       sync.Mutex
	content  string
	err      error
	requests []llm.Request
}

func (g *fakeGenerator) Generate(_ context.Context, req llm.Request) (*llm.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.err != nil {
		return nil, g.err
	}
	return &llm.Result{
		Content: g.content,
		Model:   req.Model,
		Usage:   llm.Usage{PromptTokens: 100, CompletionTokens: 50, TotalTokens: 150},
		Latency: 120 * time.Millisecond,
	}, nil
}

// wordCounter counts whitespace-separated words as tokens.
type wordCounter struct{}

func (wordCounter) Count(text, _ string) int {
	return len(strings.Fields(text))
}

func (wordCounter) Truncate(text string, limit int, _ string) (string, bool) {
	words := strings.Fields(text)
	if len(words) <= limit {
		return text, false
	}
	return strings.Join(words[:limit], " "), true
}

type fakeTrigger struct {
	mu    sync.Mutex
	calls []string
	err   error
	block chan struct{}
}

func (t *fakeTrigger) Trigger(ctx context.Context, resp *model.AssessmentResponse) error {
	if t.block != nil {
		select {
		case <-t.block:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.calls = append(t.calls, resp.ID)
	return t.err
}

func (t *fakeTrigger) callCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.calls)
}

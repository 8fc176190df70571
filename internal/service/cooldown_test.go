package service

import (
	"context"
	"testing"
	"time"

	"healthpulse/internal/model"
)

func TestEvaluateCooldown(t *testing.T) {
	created := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	last := &model.Assessment{CreatedAt: created, MinDaysBeforeNextAssessment: 14}

	tests := []struct {
		name      string
		last      *model.Assessment
		now       time.Time
		allowed   bool
		remaining int
	}{
		{"no prior assessment", nil, created, true, 0},
		{"just created", last, created, false, 14},
		{"one hour short of 14 days", last, created.Add(13*day + 23*time.Hour), false, 1},
		{"exactly 14 days", last, created.Add(14 * day), true, 0},
		{"long after", last, created.Add(40 * day), true, 0},
		{"clock behind creation", last, created.Add(-time.Hour), false, 14},
		{"zero cooldown", &model.Assessment{CreatedAt: created}, created, true, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := EvaluateCooldown(tt.last, tt.now)
			if d.Allowed != tt.allowed {
				t.Fatalf("expected allowed=%v, got %+v", tt.allowed, d)
			}
			if d.DaysRemaining != tt.remaining {
				t.Fatalf("expected %d days remaining, got %d", tt.remaining, d.DaysRemaining)
			}
			if !d.Allowed {
				if d.Reason == "" {
					t.Error("denied decision must carry a reason")
				}
				if d.LastAssessmentDate == nil || !d.LastAssessmentDate.Equal(created) {
					t.Errorf("expected last assessment date %v, got %v", created, d.LastAssessmentDate)
				}
			}
		})
	}
}

func TestCooldownGate_IgnoresInactiveAssessments(t *testing.T) {
	repo := newFakeAssessmentRepo()
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	_ = repo.Create(context.Background(), &model.Assessment{
		ID: "a1", UserID: "u1", HealthConcernID: "hc1",
		MinDaysBeforeNextAssessment: 30, IsActive: false, CreatedAt: now.Add(-day),
	})
	gate := NewCooldownGate(repo, func() time.Time { return now })

	d, err := gate.Check(context.Background(), "u1", "hc1")
	if err != nil {
		t.Fatal(err)
	}
	if !d.Allowed {
		t.Fatalf("inactive assessment must not block generation: %+v", d)
	}
}

func TestCooldownGate_UsesLatestAssessment(t *testing.T) {
	repo := newFakeAssessmentRepo()
	now := time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC)
	_ = repo.Create(context.Background(), &model.Assessment{
		ID: "old", UserID: "u1", HealthConcernID: "hc1",
		MinDaysBeforeNextAssessment: 1, IsActive: true, CreatedAt: now.Add(-20 * day),
	})
	_ = repo.Create(context.Background(), &model.Assessment{
		ID: "new", UserID: "u1", HealthConcernID: "hc1",
		MinDaysBeforeNextAssessment: 7, IsActive: true, CreatedAt: now.Add(-2 * day),
	})
	gate := NewCooldownGate(repo, func() time.Time { return now })

	d, err := gate.Check(context.Background(), "u1", "hc1")
	if err != nil {
		t.Fatal(err)
	}
	if d.Allowed || d.DaysRemaining != 5 {
		t.Fatalf("expected denial with 5 days remaining, got %+v", d)
	}
}

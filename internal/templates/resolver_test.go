package templates

import (
	"context"
	"errors"
	"testing"

	"outreach_backend/internal/campaign/domain"
	"outreach_backend/platform/apperr"
)

type stubRepo struct {
	overrides map[domain.Stage]CustomTemplate
	err       error
}

func (s *stubRepo) Get(ctx context.Context, stage domain.Stage) (*CustomTemplate, error) {
	if s.err != nil {
		return nil, s.err
	}
	tpl, ok := s.overrides[stage]
	if !ok {
		return nil, apperr.NotFound("no override")
	}
	return &tpl, nil
}

func (s *stubRepo) List(ctx context.Context) ([]CustomTemplate, error) { return nil, s.err }
func (s *stubRepo) Upsert(ctx context.Context, tpl CustomTemplate) error {
	return s.err
}
func (s *stubRepo) Delete(ctx context.Context, stage domain.Stage) error { return s.err }

func TestResolvePrefersOverride(t *testing.T) {
	repo := &stubRepo{overrides: map[domain.Stage]CustomTemplate{
		domain.StageInitial: {Stage: domain.StageInitial, Subject: "Custom subject", Body: "Custom body"},
	}}
	r := NewResolver(repo)

	got := r.Resolve(context.Background(), "healthcare", domain.StageInitial)
	if got.Subject != "Custom subject" || got.Body != "Custom body" {
		t.Fatalf("Resolve = %+v, want the override", got)
	}

	// No override for follow-ups, so the built-in applies.
	builtin := Builtin("healthcare", domain.StageFollowup1)
	if got := r.Resolve(context.Background(), "healthcare", domain.StageFollowup1); got != builtin {
		t.Fatalf("Resolve = %+v, want the built-in follow-up", got)
	}
}

func TestResolveFallsBackOnRepositoryError(t *testing.T) {
	r := NewResolver(&stubRepo{err: errors.New("db: connection refused")})

	got := r.Resolve(context.Background(), "edtech", domain.StageInitial)
	if got != Builtin("edtech", domain.StageInitial) {
		t.Fatalf("Resolve = %+v, want the built-in on lookup failure", got)
	}
}

func TestForLeadRendersStage(t *testing.T) {
	r := NewResolver(&stubRepo{overrides: map[domain.Stage]CustomTemplate{
		domain.StageInitial: {Stage: domain.StageInitial, Subject: "Hi {{first_name}}", Body: "About {{company}}"},
	}})
	lead := &domain.Lead{
		Email: "lead@example.com",
		Data:  map[string]string{"first_name": "Ada", "company": "Acme"},
	}

	got := r.ForLead(context.Background(), lead, domain.StageInitial)
	if got.Subject != "Hi Ada" {
		t.Errorf("subject = %q", got.Subject)
	}
	if got.Body != "About Acme" {
		t.Errorf("body = %q", got.Body)
	}
}

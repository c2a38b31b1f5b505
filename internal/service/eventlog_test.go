package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"kettle_protocol/internal/models"
)

// recordingEventRepo captures the normalized arguments List receives.
type recordingEventRepo struct {
	from, to time.Time
	typ      string
	out      []models.KettleEvent
}

func (r *recordingEventRepo) Append(ctx context.Context, e models.KettleEvent) error { return nil }

func (r *recordingEventRepo) List(ctx context.Context, from, to time.Time, typ string) ([]models.KettleEvent, error) {
	r.from, r.to, r.typ = from, to, typ
	return r.out, nil
}

func TestEventLogService_List_NormalizesFilter(t *testing.T) {
	repo := &recordingEventRepo{out: []models.KettleEvent{{EventID: "e1", Type: "ABORT"}}}
	svc := NewEventLogService(repo)

	loc := time.FixedZone("UTC+5", 5*3600)
	from := time.Date(2026, 8, 30, 12, 0, 0, 0, loc)
	to := time.Date(2026, 8, 30, 18, 0, 0, 0, loc)

	got, err := svc.List(context.Background(), LogFilter{From: from, To: to, Type: " abort "})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 || got[0].EventID != "e1" {
		t.Fatalf("unexpected result: %+v", got)
	}
	if repo.from.Location() != time.UTC || repo.to.Location() != time.UTC {
		t.Errorf("expected UTC bounds, got %v / %v", repo.from.Location(), repo.to.Location())
	}
	if !repo.from.Equal(from) || !repo.to.Equal(to) {
		t.Errorf("bounds shifted: %v / %v", repo.from, repo.to)
	}
	if repo.typ != "ABORT" {
		t.Errorf("type = %q, want ABORT", repo.typ)
	}
}

func TestEventLogService_List_ZeroBoundsPassThrough(t *testing.T) {
	repo := &recordingEventRepo{}
	svc := NewEventLogService(repo)

	if _, err := svc.List(context.Background(), LogFilter{}); err != nil {
		t.Fatalf("List: %v", err)
	}
	if !repo.from.IsZero() || !repo.to.IsZero() || repo.typ != "" {
		t.Fatalf("expected zero filter, got %v / %v / %q", repo.from, repo.to, repo.typ)
	}
}

func TestEventLogService_List_InvalidRange(t *testing.T) {
	svc := NewEventLogService(&recordingEventRepo{})

	from := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	to := from.Add(-time.Hour)
	if _, err := svc.List(context.Background(), LogFilter{From: from, To: to}); !errors.Is(err, errInvalidTimeRange) {
		t.Fatalf("expected errInvalidTimeRange, got %v", err)
	}
}

package service

import (
	"context"
	"errors"
	"testing"

	"kettle_protocol/internal/bus"
	"kettle_protocol/internal/models"
)

func TestProtocolIndicator_ReadingTracksStoreAndSwitch(t *testing.T) {
	store := newAnchorRepoStub()
	fake := bus.NewFake()
	ind := NewProtocolIndicator(testConfig(), store, fake, nil)
	ctx := context.Background()

	// Nothing persisted, switch on: off.
	fake.SetState(testSwitch, "on")
	if err := ind.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if r := ind.Reading(); r.On {
		t.Fatalf("expected off without a persisted anchor, got %+v", r)
	}

	// Anchor appears in storage. The reading must not change until the next
	// refresh; the indicator reads its own snapshot, not the engine.
	ts := "2026-08-30T10:00:00Z"
	if err := store.Save(ctx, "test", models.RuntimeAnchor{StartTS: &ts}); err != nil {
		t.Fatalf("seed store: %v", err)
	}
	if r := ind.Reading(); r.On {
		t.Fatalf("reading changed before Refresh: %+v", r)
	}

	if err := ind.Refresh(ctx); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	r := ind.Reading()
	if !r.On || r.StartTS == nil || *r.StartTS != ts {
		t.Fatalf("expected on with start_ts %q, got %+v", ts, r)
	}

	// Switch off flips the reading immediately; the switch state is live.
	fake.SetState(testSwitch, "off")
	if r := ind.Reading(); r.On {
		t.Fatalf("expected off with switch off, got %+v", r)
	}
}

func TestProtocolIndicator_RefreshError(t *testing.T) {
	store := newAnchorRepoStub()
	store.loadErr = errors.New("db closed")
	ind := NewProtocolIndicator(testConfig(), store, bus.NewFake(), nil)

	if err := ind.Refresh(context.Background()); err == nil {
		t.Fatalf("expected load error to propagate")
	}
}

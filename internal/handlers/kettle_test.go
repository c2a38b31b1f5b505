package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"kettle_protocol/internal/service"
)

func TestHealth(t *testing.T) {
	r := newTestRouter(&service.Service{})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("health status=%d", w.Code)
	}
}

func TestKettleHandlers_StatusRemainingActive(t *testing.T) {
	auth := &mockAuth{parseID: 7}
	status := &mockStatusView{reading: service.StatusReading{
		State: "Warm (01:35)",
		Attributes: service.StatusAttributes{
			ProtocolActive: true,
			MaxMinutes:     30,
			Remaining:      "01:35",
		},
	}}
	remaining := &mockRemainingView{reading: service.RemainingReading{
		State: "01:35",
		Icon:  "mdi:timer-sand",
	}}
	ts := "2026-08-30T10:00:00Z"
	activity := &mockActivity{reading: service.ActivityReading{On: true, StartTS: &ts}}

	s := &service.Service{
		Authorization: auth,
		StatusView:    status,
		RemainingView: remaining,
		Activity:      activity,
	}
	r := newTestRouter(s)

	// GET status requires auth → 401 without header
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/kettle/status", nil)
	r.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without auth, got %d", w.Code)
	}

	// With auth → 200 and reading body
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/kettle/status", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("status code=%d, body=%s", w.Code, w.Body.String())
	}
	var got service.StatusReading
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("unmarshal status: %v", err)
	}
	if got.State != "Warm (01:35)" || !got.Attributes.ProtocolActive || got.Attributes.Remaining != "01:35" {
		t.Fatalf("unexpected status reading: %+v", got)
	}
	if status.reads != 1 {
		t.Fatalf("expected one read, got %d", status.reads)
	}

	// GET remaining → 200 with icon
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/kettle/remaining", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("remaining code=%d, body=%s", w.Code, w.Body.String())
	}
	var rem service.RemainingReading
	if err := json.Unmarshal(w.Body.Bytes(), &rem); err != nil {
		t.Fatalf("unmarshal remaining: %v", err)
	}
	if rem.State != "01:35" || rem.Icon != "mdi:timer-sand" {
		t.Fatalf("unexpected remaining reading: %+v", rem)
	}

	// GET active → refreshes the indicator and returns its reading
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/api/v1/kettle/active", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusOK {
		t.Fatalf("active code=%d, body=%s", w.Code, w.Body.String())
	}
	if activity.refreshes != 1 {
		t.Fatalf("expected one refresh, got %d", activity.refreshes)
	}
	var act service.ActivityReading
	if err := json.Unmarshal(w.Body.Bytes(), &act); err != nil {
		t.Fatalf("unmarshal active: %v", err)
	}
	if !act.On || act.StartTS == nil || *act.StartTS != ts {
		t.Fatalf("unexpected activity reading: %+v", act)
	}
}

func TestKettleHandlers_ActiveRefreshError(t *testing.T) {
	auth := &mockAuth{parseID: 1}
	activity := &mockActivity{refreshErr: errors.New("store down")}
	s := &service.Service{Authorization: auth, Activity: activity}
	r := newTestRouter(s)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/kettle/active", nil)
	for k, vv := range authHeader("valid") {
		for _, v := range vv {
			req.Header.Add(k, v)
		}
	}
	r.ServeHTTP(w, req)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on refresh error, got %d", w.Code)
	}
}

package bus

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestStateTopic(t *testing.T) {
	cases := []struct {
		entityID string
		want     string
	}{
		{"sensor.kettle_status", "home/sensor/kettle_status/state"},
		{"switch.kettle_keep_warm", "home/switch/kettle_keep_warm/state"},
		{"binary_sensor.kettle_protocol", "home/binary_sensor/kettle_protocol/state"},
	}
	for _, tc := range cases {
		if got := StateTopic("home", tc.entityID); got != tc.want {
			t.Errorf("StateTopic(home, %q) = %q, want %q", tc.entityID, got, tc.want)
		}
	}
}

func TestEntityFromTopic(t *testing.T) {
	cases := []struct {
		name  string
		topic string
		want  string
		ok    bool
	}{
		{"sensor", "home/sensor/kettle_status/state", "sensor.kettle_status", true},
		{"switch", "home/switch/kettle_keep_warm/state", "switch.kettle_keep_warm", true},
		{"wrong_base", "other/sensor/kettle_status/state", "", false},
		{"no_state_suffix", "home/sensor/kettle_status/attributes", "", false},
		{"missing_object_id", "home/sensor/state", "", false},
		{"empty_domain", "home//kettle_status/state", "", false},
		{"service_topic", "home/service/switch/turn_off", "", false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := EntityFromTopic("home", tc.topic)
			if got != tc.want || ok != tc.ok {
				t.Fatalf("EntityFromTopic(home, %q) = (%q, %v), want (%q, %v)", tc.topic, got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestStateTopicRoundTrip(t *testing.T) {
	entity := "switch.kettle_keep_warm"
	got, ok := EntityFromTopic("home", StateTopic("home", entity))
	if !ok || got != entity {
		t.Fatalf("round trip = (%q, %v), want (%q, true)", got, ok, entity)
	}
}

func TestFormatServiceCall(t *testing.T) {
	b, err := FormatServiceCall("switch.kettle_keep_warm")
	if err != nil {
		t.Fatalf("FormatServiceCall: %v", err)
	}
	var sc ServiceCall
	if err := json.Unmarshal(b, &sc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if sc.EntityID != "switch.kettle_keep_warm" {
		t.Fatalf("entity_id = %q", sc.EntityID)
	}
}

func TestFormatNotification(t *testing.T) {
	now := time.Date(2026, 8, 30, 10, 0, 0, 0, time.FixedZone("UTC+3", 3*3600))
	b, err := FormatNotification(now, "Kettle", "Max time reached (30 min). Keep Warm turned OFF.")
	if err != nil {
		t.Fatalf("FormatNotification: %v", err)
	}
	var n Notification
	if err := json.Unmarshal(b, &n); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if n.Timestamp != "2026-08-30T07:00:00Z" {
		t.Fatalf("timestamp not UTC RFC3339: %q", n.Timestamp)
	}
	if n.Title != "Kettle" || n.Message == "" {
		t.Fatalf("unexpected payload: %+v", n)
	}
}

func TestFake_PushDeliversToSubscribers(t *testing.T) {
	f := NewFake()

	var gotEntity, gotState string
	calls := 0
	sub, err := f.Subscribe([]string{"switch.kettle_keep_warm"}, func(entityID, newState string) {
		gotEntity, gotState = entityID, newState
		calls++
	})
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	// Unmatched entity is recorded but not delivered.
	f.Push("sensor.kettle_status", "heating")
	if calls != 0 {
		t.Fatalf("handler called for unsubscribed entity")
	}
	if s, ok := f.Get("sensor.kettle_status"); !ok || s != "heating" {
		t.Fatalf("Get after Push = (%q, %v)", s, ok)
	}

	f.Push("switch.kettle_keep_warm", "on")
	if calls != 1 || gotEntity != "switch.kettle_keep_warm" || gotState != "on" {
		t.Fatalf("delivery = (%q, %q, calls=%d)", gotEntity, gotState, calls)
	}

	sub.Unsubscribe()
	f.Push("switch.kettle_keep_warm", "off")
	if calls != 1 {
		t.Fatalf("handler called after Unsubscribe")
	}
	if f.Subscribed("switch.kettle_keep_warm") {
		t.Fatalf("Subscribed() true after Unsubscribe")
	}
}

func TestFake_DispatchAndNotifyRecording(t *testing.T) {
	f := NewFake()

	if err := f.Dispatch("switch", "turn_off", "switch.kettle_keep_warm"); err != nil {
		t.Fatalf("Dispatch: %v", err)
	}
	if err := f.Notify("Kettle", "done"); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if len(f.Dispatches) != 1 || f.Dispatches[0] != (DispatchCall{"switch", "turn_off", "switch.kettle_keep_warm"}) {
		t.Fatalf("dispatches: %+v", f.Dispatches)
	}
	if len(f.Notifications) != 1 || f.Notifications[0].Message != "done" {
		t.Fatalf("notifications: %+v", f.Notifications)
	}

	f.DispatchError = errors.New("down")
	if err := f.Dispatch("switch", "turn_off", "x"); err == nil {
		t.Fatalf("expected injected dispatch error")
	}
	if len(f.Dispatches) != 1 {
		t.Fatalf("failed dispatch must not be recorded")
	}
}

func TestFake_SubscribeErrorInjection(t *testing.T) {
	f := NewFake()
	f.SubscribeError = errors.New("broker unavailable")
	if _, err := f.Subscribe([]string{"switch.kettle_keep_warm"}, func(string, string) {}); err == nil {
		t.Fatalf("expected injected subscribe error")
	}
}

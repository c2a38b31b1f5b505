// Package bus connects the protocol engine to the smart-home platform over
// MQTT statestream topics. Entity states are mirrored by the platform to
// <base>/<domain>/<object_id>/state with the raw state string as payload;
// service calls and notifications are published back on dedicated topics.
package bus

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Handler receives a state-change notification for a subscribed entity.
type Handler func(entityID, newState string)

// Source delivers state-change notifications for named entities.
type Source interface {
	Subscribe(entityIDs []string, h Handler) (Subscription, error)
}

// Subscription is a handle returned by Subscribe.
type Subscription interface {
	Unsubscribe()
}

// States exposes the last known state of observed entities. A missing
// entity yields ("", false), never an error.
type States interface {
	Get(entityID string) (string, bool)
}

// Dispatcher issues fire-and-forget service calls toward the platform.
type Dispatcher interface {
	Dispatch(domain, service, entityID string) error
}

// Notifier delivers best-effort user-visible notifications.
type Notifier interface {
	Notify(title, message string) error
}

// Platform bundles everything the protocol needs from the smart-home side.
// Both Broker and Fake satisfy it.
type Platform interface {
	Source
	States
	Dispatcher
	Notifier
}

// StateTopic maps an entity id like "sensor.kettle_status" to its
// statestream topic under base, e.g. "home/sensor/kettle_status/state".
func StateTopic(base, entityID string) string {
	return base + "/" + strings.Replace(entityID, ".", "/", 1) + "/state"
}

// EntityFromTopic is the inverse of StateTopic. Returns ("", false) for
// topics outside the statestream layout.
func EntityFromTopic(base, topic string) (string, bool) {
	rest, ok := strings.CutPrefix(topic, base+"/")
	if !ok {
		return "", false
	}
	rest, ok = strings.CutSuffix(rest, "/state")
	if !ok {
		return "", false
	}
	parts := strings.SplitN(rest, "/", 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", false
	}
	return parts[0] + "." + parts[1], true
}

// serviceTopic is where service-call messages are published.
func serviceTopic(base, domain, service string) string {
	return fmt.Sprintf("%s/service/%s/%s", base, domain, service)
}

// notifyTopic is where notification messages are published.
func notifyTopic(base string) string {
	return base + "/notify"
}

// ServiceCall is the payload published for a service call.
type ServiceCall struct {
	EntityID string `json:"entity_id"`
}

// Notification is the payload published for a notification.
type Notification struct {
	Timestamp string `json:"timestamp"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

// FormatServiceCall creates the JSON payload for a service call.
func FormatServiceCall(entityID string) ([]byte, error) {
	return json.Marshal(ServiceCall{EntityID: entityID})
}

// FormatNotification creates the JSON payload for a notification.
func FormatNotification(now time.Time, title, message string) ([]byte, error) {
	return json.Marshal(Notification{
		Timestamp: now.UTC().Format(time.RFC3339),
		Title:     title,
		Message:   message,
	})
}

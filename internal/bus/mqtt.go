package bus

import (
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
)

const (
	connectTimeout = 10 * time.Second
	opTimeout      = 5 * time.Second
	retryInterval  = 5 * time.Second
)

// Broker talks to a real MQTT broker. It implements Source, States,
// Dispatcher and Notifier, and keeps a cache of the last state seen on
// every subscribed topic.
type Broker struct {
	client paho.Client
	base   string

	mu     sync.RWMutex
	states map[string]string
}

// NewBroker connects to the given broker URL. base is the statestream
// topic prefix (e.g. "home").
func NewBroker(brokerURL, base, clientID string) (*Broker, error) {
	opts := paho.NewClientOptions().
		AddBroker(brokerURL).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectRetry(true).
		SetConnectRetryInterval(retryInterval)

	client := paho.NewClient(opts)
	token := client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return nil, fmt.Errorf("connection timeout")
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("connect to broker: %w", err)
	}

	return &Broker{
		client: client,
		base:   base,
		states: make(map[string]string),
	}, nil
}

// Get returns the last seen state of an entity.
func (b *Broker) Get(entityID string) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.states[entityID]
	return s, ok
}

// Subscribe registers h for state changes of the given entities. Retained
// statestream messages seed the cache right after subscribing.
func (b *Broker) Subscribe(entityIDs []string, h Handler) (Subscription, error) {
	topics := make([]string, 0, len(entityIDs))
	for _, id := range entityIDs {
		topic := StateTopic(b.base, id)
		token := b.client.Subscribe(topic, 0, func(_ paho.Client, msg paho.Message) {
			entityID, ok := EntityFromTopic(b.base, msg.Topic())
			if !ok {
				return
			}
			state := string(msg.Payload())
			b.mu.Lock()
			b.states[entityID] = state
			b.mu.Unlock()
			h(entityID, state)
		})
		if !token.WaitTimeout(opTimeout) {
			return nil, fmt.Errorf("subscribe %s: timeout", topic)
		}
		if err := token.Error(); err != nil {
			return nil, fmt.Errorf("subscribe %s: %w", topic, err)
		}
		topics = append(topics, topic)
	}
	return &brokerSubscription{broker: b, topics: topics}, nil
}

type brokerSubscription struct {
	broker *Broker
	topics []string
	once   sync.Once
}

func (s *brokerSubscription) Unsubscribe() {
	s.once.Do(func() {
		token := s.broker.client.Unsubscribe(s.topics...)
		token.WaitTimeout(opTimeout)
	})
}

// Dispatch publishes a service-call message. QoS 1: switch-off commands
// should survive a flaky link.
func (b *Broker) Dispatch(domain, service, entityID string) error {
	payload, err := FormatServiceCall(entityID)
	if err != nil {
		return fmt.Errorf("format service call: %w", err)
	}

	token := b.client.Publish(serviceTopic(b.base, domain, service), 1, false, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("dispatch timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("dispatch: %w", err)
	}
	return nil
}

// Notify publishes a notification message. QoS 0, best effort.
func (b *Broker) Notify(title, message string) error {
	payload, err := FormatNotification(time.Now(), title, message)
	if err != nil {
		return fmt.Errorf("format notification: %w", err)
	}

	token := b.client.Publish(notifyTopic(b.base), 0, false, payload)
	if !token.WaitTimeout(opTimeout) {
		return fmt.Errorf("notify timeout")
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("notify: %w", err)
	}
	return nil
}

// Close disconnects from the broker.
func (b *Broker) Close() error {
	b.client.Disconnect(1000) // 1 second timeout
	return nil
}

package bus

import "sync"

// Fake is an in-memory bus for tests. It records dispatches and
// notifications, and lets tests push entity states to subscribers.
type Fake struct {
	mu     sync.Mutex
	states map[string]string
	subs   []*fakeSubscription

	// Dispatches contains all service calls, as "domain.service entity_id".
	Dispatches []DispatchCall

	// Notifications contains all notify calls.
	Notifications []Notification

	// DispatchError, if set, is returned by Dispatch.
	DispatchError error

	// SubscribeError, if set, is returned by Subscribe.
	SubscribeError error
}

// DispatchCall records a single Dispatch invocation.
type DispatchCall struct {
	Domain   string
	Service  string
	EntityID string
}

// NewFake creates a Fake with no known entity states.
func NewFake() *Fake {
	return &Fake{states: make(map[string]string)}
}

// SetState records the state without notifying subscribers.
func (f *Fake) SetState(entityID, state string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states[entityID] = state
}

// DeleteState forgets an entity, simulating a missing external entity.
func (f *Fake) DeleteState(entityID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.states, entityID)
}

// Push records the state and delivers it to matching subscribers, like a
// retained statestream message arriving from the broker.
func (f *Fake) Push(entityID, state string) {
	f.mu.Lock()
	f.states[entityID] = state
	subs := make([]*fakeSubscription, len(f.subs))
	copy(subs, f.subs)
	f.mu.Unlock()

	for _, s := range subs {
		s.deliver(entityID, state)
	}
}

func (f *Fake) Get(entityID string) (string, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.states[entityID]
	return s, ok
}

func (f *Fake) Subscribe(entityIDs []string, h Handler) (Subscription, error) {
	if f.SubscribeError != nil {
		return nil, f.SubscribeError
	}
	sub := &fakeSubscription{fake: f, handler: h, entities: make(map[string]bool, len(entityIDs))}
	for _, id := range entityIDs {
		sub.entities[id] = true
	}
	f.mu.Lock()
	f.subs = append(f.subs, sub)
	f.mu.Unlock()
	return sub, nil
}

func (f *Fake) Dispatch(domain, service, entityID string) error {
	if f.DispatchError != nil {
		return f.DispatchError
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Dispatches = append(f.Dispatches, DispatchCall{Domain: domain, Service: service, EntityID: entityID})
	return nil
}

func (f *Fake) Notify(title, message string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Notifications = append(f.Notifications, Notification{Title: title, Message: message})
	return nil
}

// Subscribed reports whether any live subscription covers the entity.
func (f *Fake) Subscribed(entityID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.subs {
		if !s.closed && s.entities[entityID] {
			return true
		}
	}
	return false
}

type fakeSubscription struct {
	fake     *Fake
	handler  Handler
	entities map[string]bool
	closed   bool
}

func (s *fakeSubscription) deliver(entityID, state string) {
	s.fake.mu.Lock()
	closed, want := s.closed, s.entities[entityID]
	s.fake.mu.Unlock()
	if closed || !want {
		return
	}
	s.handler(entityID, state)
}

func (s *fakeSubscription) Unsubscribe() {
	s.fake.mu.Lock()
	s.closed = true
	s.fake.mu.Unlock()
}

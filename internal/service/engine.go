package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"kettle_protocol/internal/bus"
	"kettle_protocol/internal/logger"
	"kettle_protocol/internal/models"
	"kettle_protocol/internal/repository"

	"github.com/google/uuid"
)

// Tick cadence: sub-second abort responsiveness while armed, low overhead
// while idle.
const (
	activeTickInterval = 1 * time.Second
	idleTickInterval   = 10 * time.Second
)

const stateOn = "on"

// Event types recorded in the protocol log.
const (
	EventStartup  = "STARTUP"
	EventArmed    = "ARMED"
	EventDisarmed = "DISARMED"
	EventAbort    = "ABORT"
)

const notifyTitle = "Kettle"

// Coordinator owns the runtime anchor for one configured kettle and
// enforces the keep-warm timeout/abort policy. It observes the keep-warm
// switch and the status sensor and is allowed to issue exactly one command:
// turn the keep-warm switch off.
//
// Callbacks arrive from the bus client and from the tick timer on separate
// goroutines; mu serializes every anchor read-modify-persist sequence.
type Coordinator struct {
	cfg      ProtocolConfig
	store    repository.AnchorRepo
	events   repository.EventRepo
	source   bus.Source
	states   bus.States
	commands bus.Dispatcher
	notifier bus.Notifier
	log      *logger.Logger
	now      func() time.Time

	mu      sync.Mutex
	anchor  models.RuntimeAnchor
	sub     bus.Subscription
	timer   *time.Timer
	runCtx  context.Context
	stopped bool
}

// NewCoordinator builds a coordinator for the given instance configuration.
// Call Start to begin observing; one coordinator per configured kettle.
func NewCoordinator(cfg ProtocolConfig, store repository.AnchorRepo, events repository.EventRepo, platform bus.Platform, log *logger.Logger) *Coordinator {
	return &Coordinator{
		cfg:      cfg.WithDefaults(),
		store:    store,
		events:   events,
		source:   platform,
		states:   platform,
		commands: platform,
		notifier: platform,
		log:      log,
		now:      func() time.Time { return time.Now().UTC() },
		runCtx:   context.Background(),
	}
}

// Ensure implementation of Protocol interface at compile time.
var _ Protocol = (*Coordinator)(nil)

// Start recovers the persisted anchor, subscribes to state changes of the
// keep-warm switch and the status sensor, and schedules the first tick.
// Persistence and subscription errors propagate to the caller.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	c.runCtx = ctx
	a, err := c.store.Load(ctx, c.cfg.EntryID)
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("load anchor for %q: %w", c.cfg.EntryID, err)
	}
	if a != nil {
		c.anchor = *a
	}
	recovered := c.anchor.Armed()
	c.mu.Unlock()

	sub, err := c.source.Subscribe([]string{c.cfg.KeepWarmSwitch, c.cfg.StatusEntity}, c.onStateChange)
	if err != nil {
		return fmt.Errorf("subscribe state changes: %w", err)
	}

	c.mu.Lock()
	c.sub = sub
	c.scheduleTickLocked()
	c.mu.Unlock()

	c.appendEvent(ctx, EventStartup, "Protocol coordinator started", map[string]any{
		"entry_id":  c.cfg.EntryID,
		"recovered": recovered,
	})
	if c.log != nil {
		c.log.Infow("protocol_started",
			"entry_id", c.cfg.EntryID,
			"keep_warm_switch", c.cfg.KeepWarmSwitch,
			"status_entity", c.cfg.StatusEntity,
			"recovered_anchor", recovered,
		)
	}
	return nil
}

// Stop unsubscribes and cancels any pending tick. Safe to call if never
// started or already stopped; a callback already in flight may complete.
func (c *Coordinator) Stop() {
	c.mu.Lock()
	c.stopped = true
	sub := c.sub
	c.sub = nil
	if c.timer != nil {
		c.timer.Stop()
		c.timer = nil
	}
	c.mu.Unlock()

	if sub != nil {
		sub.Unsubscribe()
	}
}

// IsActive reports whether the protocol is armed: the keep-warm switch's
// live state is "on" AND the anchor is set. A switch left "on" after a
// restart with no persisted anchor is not active.
func (c *Coordinator) IsActive() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.isActiveLocked()
}

func (c *Coordinator) isActiveLocked() bool {
	sw, ok := c.states.Get(c.cfg.KeepWarmSwitch)
	if !ok || sw != stateOn {
		return false
	}
	return c.anchor.Armed()
}

// startTimeLocked parses the anchored timestamp. An unparsable value is
// treated as "not armed", never as a failure.
func (c *Coordinator) startTimeLocked() (time.Time, bool) {
	if c.anchor.StartTS == nil {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, *c.anchor.StartTS)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Remaining returns the time left before the keep-warm cap, floored at
// zero. The second result is false when the protocol is not active or the
// anchor cannot be parsed.
func (c *Coordinator) Remaining() (time.Duration, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

func (c *Coordinator) remainingLocked() (time.Duration, bool) {
	if !c.isActiveLocked() {
		return 0, false
	}
	start, ok := c.startTimeLocked()
	if !ok {
		return 0, false
	}
	rem := c.cfg.MaxDuration() - c.now().Sub(start)
	if rem < 0 {
		rem = 0
	}
	return rem, true
}

// RemainingMMSS renders the remaining time as zero-padded "MM:SS".
func (c *Coordinator) RemainingMMSS() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingMMSSLocked()
}

func (c *Coordinator) remainingMMSSLocked() (string, bool) {
	rem, ok := c.remainingLocked()
	if !ok {
		return "", false
	}
	total := int(rem.Seconds())
	return fmt.Sprintf("%02d:%02d", total/60, total%60), true
}

// LiveStatus returns a human-friendly status with an optional countdown.
func (c *Coordinator) LiveStatus() string {
	c.mu.Lock()
	defer c.mu.Unlock()

	s, ok := c.states.Get(c.cfg.StatusEntity)
	if !ok {
		s = "unknown"
	}

	// Warm with countdown while the protocol is active
	if s == c.cfg.WarmValue && c.isActiveLocked() {
		if mmss, ok := c.remainingMMSSLocked(); ok {
			return fmt.Sprintf("Warm (%s)", mmss)
		}
		return "Warm"
	}

	// Normalize common cases
	switch s {
	case "heating":
		return "Heating"
	case "standby":
		return "Standby"
	case c.cfg.WarmValue:
		return "Warm"
	}
	return s
}

// onStateChange adapts bus callbacks to HandleExternalChange; errors have
// no consumer on the bus side, so they are logged here.
func (c *Coordinator) onStateChange(entityID, newState string) {
	if err := c.HandleExternalChange(c.runContext(), entityID, newState); err != nil && c.log != nil {
		c.log.Errorw("protocol_state_change_failed", "err", err, "entity", entityID, "state", newState)
	}
}

func (c *Coordinator) runContext() context.Context {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.runCtx
}

// HandleExternalChange reacts to a state-change notification. A switch "on"
// transition anchors the start timestamp (repeated "on" notifications while
// anchored change nothing); anything else on the switch clears it. Every
// transition is persisted before any dependent side effect, and every
// change, whichever entity it came from, is followed by one eager tick.
func (c *Coordinator) HandleExternalChange(ctx context.Context, entityID, newValue string) error {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return nil
	}

	var persistErr error
	if entityID == c.cfg.KeepWarmSwitch {
		switch {
		case newValue == stateOn && !c.anchor.Armed():
			ts := c.now().Format(time.RFC3339)
			c.anchor.StartTS = &ts
			if persistErr = c.persistLocked(ctx); persistErr == nil {
				c.appendEventLocked(ctx, EventArmed, "Keep-warm armed", map[string]any{"start_ts": ts})
			}
		case newValue != stateOn && c.anchor.Armed():
			c.anchor.StartTS = nil
			if persistErr = c.persistLocked(ctx); persistErr == nil {
				c.appendEventLocked(ctx, EventDisarmed, "Keep-warm disarmed", map[string]any{"switch_state": newValue})
			}
		}
	}
	c.mu.Unlock()

	if persistErr != nil {
		return persistErr
	}
	return c.Tick(ctx)
}

// Tick evaluates the abort/timeout policy once and reschedules itself:
// every second while active, every ten seconds while idle.
func (c *Coordinator) Tick(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stopped {
		return nil
	}

	var err error
	if c.isActiveLocked() {
		if s, ok := c.states.Get(c.cfg.StatusEntity); ok && c.cfg.IsAbortStatus(s) {
			err = c.forceAbortLocked(ctx, fmt.Sprintf("Abort: status '%s'", s))
		} else if rem, ok := c.remainingLocked(); ok && rem <= 0 {
			err = c.forceAbortLocked(ctx, fmt.Sprintf("Max time reached (%d min)", c.cfg.MaxMinutes))
		}
	}

	c.scheduleTickLocked()
	return err
}

func (c *Coordinator) scheduleTickLocked() {
	if c.timer != nil {
		c.timer.Stop()
	}
	interval := idleTickInterval
	if c.isActiveLocked() {
		interval = activeTickInterval
	}
	c.timer = time.AfterFunc(interval, c.onTimer)
}

func (c *Coordinator) onTimer() {
	if err := c.Tick(c.runContext()); err != nil && c.log != nil {
		c.log.Errorw("protocol_tick_failed", "err", err)
	}
}

// forceAbortLocked turns the keep-warm switch off, clears the anchor and
// notifies the user. The switch-off command is issued before the anchor is
// cleared so that a persistence failure still leaves the kettle off.
func (c *Coordinator) forceAbortLocked(ctx context.Context, reason string) error {
	if err := c.commands.Dispatch("switch", "turn_off", c.cfg.KeepWarmSwitch); err != nil && c.log != nil {
		c.log.Errorw("keep_warm_turn_off_failed", "err", err, "entity", c.cfg.KeepWarmSwitch)
	}

	c.anchor.StartTS = nil
	if err := c.persistLocked(ctx); err != nil {
		return err
	}

	if err := c.notifier.Notify(notifyTitle, reason+". Keep Warm turned OFF."); err != nil && c.log != nil {
		c.log.Errorw("protocol_notify_failed", "err", err)
	}

	c.appendEventLocked(ctx, EventAbort, reason, map[string]any{"entity": c.cfg.KeepWarmSwitch})
	if c.log != nil {
		c.log.Infow("protocol_aborted", "reason", reason, "entity", c.cfg.KeepWarmSwitch)
	}
	return nil
}

func (c *Coordinator) persistLocked(ctx context.Context) error {
	return c.store.Save(ctx, c.cfg.EntryID, c.anchor)
}

// appendEventLocked records a protocol event; the log is best effort and
// never blocks protocol logic.
func (c *Coordinator) appendEventLocked(ctx context.Context, typ, description string, meta map[string]any) {
	_ = c.events.Append(ctx, models.KettleEvent{
		EventID:     uuid.NewString(),
		OccurredAt:  c.now(),
		Type:        typ,
		Description: description,
		Metadata:    meta,
	})
}

func (c *Coordinator) appendEvent(ctx context.Context, typ, description string, meta map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.appendEventLocked(ctx, typ, description, meta)
}

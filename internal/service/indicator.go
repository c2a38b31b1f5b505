package service

import (
	"context"
	"sync"
	"time"

	"kettle_protocol/internal/bus"
	"kettle_protocol/internal/logger"
	"kettle_protocol/internal/repository"
)

// DefaultIndicatorTick is the slow poll interval of the activity indicator.
const DefaultIndicatorTick = 30 * time.Second

// ProtocolIndicator is a crash-resilient secondary view of protocol
// activity: each refresh reloads the persisted anchor from storage,
// bypassing the engine's in-memory copy, so a poll-only consumer still
// observes activity correctly even if the live coordinator is unavailable.
type ProtocolIndicator struct {
	store          repository.AnchorRepo
	states         bus.States
	entryID        string
	keepWarmSwitch string
	log            *logger.Logger

	mu      sync.RWMutex
	startTS *string
}

func NewProtocolIndicator(cfg ProtocolConfig, store repository.AnchorRepo, states bus.States, log *logger.Logger) *ProtocolIndicator {
	cfg = cfg.WithDefaults()
	return &ProtocolIndicator{
		store:          store,
		states:         states,
		entryID:        cfg.EntryID,
		keepWarmSwitch: cfg.KeepWarmSwitch,
		log:            log,
	}
}

// Ensure implementation of Activity interface at compile time.
var _ Activity = (*ProtocolIndicator)(nil)

// Refresh reloads the persisted anchor from storage.
func (i *ProtocolIndicator) Refresh(ctx context.Context) error {
	a, err := i.store.Load(ctx, i.entryID)
	if err != nil {
		return err
	}

	i.mu.Lock()
	if a == nil {
		i.startTS = nil
	} else {
		i.startTS = a.StartTS
	}
	i.mu.Unlock()
	return nil
}

// Reading reports active iff the keep-warm switch's live state is "on" and
// the freshly-loaded anchor is non-null.
func (i *ProtocolIndicator) Reading() ActivityReading {
	i.mu.RLock()
	startTS := i.startTS
	i.mu.RUnlock()

	sw, ok := i.states.Get(i.keepWarmSwitch)
	return ActivityReading{
		On:      ok && sw == stateOn && startTS != nil,
		StartTS: startTS,
	}
}

// Run polls at the given interval until ctx is canceled.
func (i *ProtocolIndicator) Run(ctx context.Context, tick time.Duration) {
	t := time.NewTicker(tick)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if err := i.Refresh(ctx); err != nil && i.log != nil {
				i.log.Errorw("indicator_refresh_failed", "err", err, "entry_id", i.entryID)
			}
		}
	}
}

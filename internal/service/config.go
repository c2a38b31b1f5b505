package service

import (
	"errors"
	"strings"
	"time"
)

// Defaults for the optional protocol settings.
const (
	DefaultMaxMinutes    = 30
	DefaultWarmValue     = "Warm"
	DefaultAbortStatuses = "standby"
	DefaultEntryID       = "default"
)

// ProtocolConfig is the immutable per-instance configuration of the
// keep-warm protocol, collected once at setup time.
type ProtocolConfig struct {
	EntryID        string // keys the persisted anchor row
	TempSensor     string // registered alongside, not read by the engine
	StatusEntity   string
	StartSwitch    string // registered alongside, not read by the engine
	KeepWarmSwitch string
	MaxMinutes     int
	WarmValue      string
	AbortStatuses  []string
}

var (
	errNoStatusEntity   = errors.New("status entity id is required")
	errNoKeepWarmSwitch = errors.New("keep-warm switch entity id is required")
)

// Validate checks the required entity identifiers.
func (c ProtocolConfig) Validate() error {
	if strings.TrimSpace(c.StatusEntity) == "" {
		return errNoStatusEntity
	}
	if strings.TrimSpace(c.KeepWarmSwitch) == "" {
		return errNoKeepWarmSwitch
	}
	return nil
}

// WithDefaults fills the optional fields that were left unset.
func (c ProtocolConfig) WithDefaults() ProtocolConfig {
	if c.EntryID == "" {
		c.EntryID = DefaultEntryID
	}
	if c.MaxMinutes <= 0 {
		c.MaxMinutes = DefaultMaxMinutes
	}
	if c.WarmValue == "" {
		c.WarmValue = DefaultWarmValue
	}
	if len(c.AbortStatuses) == 0 {
		c.AbortStatuses = ParseAbortStatuses(DefaultAbortStatuses)
	}
	return c
}

// MaxDuration returns the keep-warm cap as a duration.
func (c ProtocolConfig) MaxDuration() time.Duration {
	return time.Duration(c.MaxMinutes) * time.Minute
}

// IsAbortStatus reports whether s disarms the protocol while active.
func (c ProtocolConfig) IsAbortStatus(s string) bool {
	for _, v := range c.AbortStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// ParseAbortStatuses splits a comma-separated list, trimming whitespace
// around each token and discarding empty ones.
func ParseAbortStatuses(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

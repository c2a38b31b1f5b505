package service

// Placeholder shown when no remaining time is available.
const noReading = "—"

// Icons for the remaining-time sensor.
const (
	iconActive = "mdi:timer-sand"
	iconIdle   = "mdi:timer-outline"
)

// LiveStatusSensor is a stateless pull view over the protocol engine: the
// live status label plus activity attributes, recomputed on every read.
type LiveStatusSensor struct {
	protocol   Protocol
	maxMinutes int
}

func NewLiveStatusSensor(p Protocol, maxMinutes int) *LiveStatusSensor {
	return &LiveStatusSensor{protocol: p, maxMinutes: maxMinutes}
}

var _ StatusView = (*LiveStatusSensor)(nil)

func (s *LiveStatusSensor) ReadStatus() StatusReading {
	remaining := noReading
	if mmss, ok := s.protocol.RemainingMMSS(); ok {
		remaining = mmss
	}
	return StatusReading{
		State: s.protocol.LiveStatus(),
		Attributes: StatusAttributes{
			ProtocolActive: s.protocol.IsActive(),
			MaxMinutes:     s.maxMinutes,
			Remaining:      remaining,
		},
	}
}

// RemainingSensor is a stateless pull view exposing the countdown, with an
// icon hint that differs when active vs idle.
type RemainingSensor struct {
	protocol Protocol
}

func NewRemainingSensor(p Protocol) *RemainingSensor {
	return &RemainingSensor{protocol: p}
}

var _ RemainingView = (*RemainingSensor)(nil)

func (s *RemainingSensor) ReadRemaining() RemainingReading {
	state := noReading
	if mmss, ok := s.protocol.RemainingMMSS(); ok {
		state = mmss
	}
	icon := iconIdle
	if s.protocol.IsActive() {
		icon = iconActive
	}
	return RemainingReading{State: state, Icon: icon}
}

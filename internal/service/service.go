package service

import (
	"context"
	"time"

	"kettle_protocol/internal/bus"
	"kettle_protocol/internal/logger"
	"kettle_protocol/internal/models"
	"kettle_protocol/internal/repository"
)

type Authorization interface {
	SignUp(username, password string) (int, error)
	GenerateToken(username, password string) (string, error)
	ParseToken(accessToken string) (int, error)
}

// Protocol is the keep-warm coordination engine: lifecycle plus the derived
// projections recomputed on every read.
type Protocol interface {
	Start(ctx context.Context) error
	Stop()
	IsActive() bool
	Remaining() (time.Duration, bool)
	RemainingMMSS() (string, bool)
	LiveStatus() string
	HandleExternalChange(ctx context.Context, entityID, newValue string) error
	Tick(ctx context.Context) error
}

// StatusView exposes the live-status projection sensor.
type StatusView interface {
	ReadStatus() StatusReading
}

// RemainingView exposes the remaining-time projection sensor.
type RemainingView interface {
	ReadRemaining() RemainingReading
}

// Activity is the slow-polling indicator that reads the persisted anchor
// directly, bypassing the engine's in-memory copy.
type Activity interface {
	Refresh(ctx context.Context) error
	Reading() ActivityReading
	Run(ctx context.Context, tick time.Duration)
}

// EventLog exposes append-only protocol logs with filtering access.
type EventLog interface {
	List(ctx context.Context, f LogFilter) ([]models.KettleEvent, error)
}

// LogFilter supports history filtering by time range and type.
type LogFilter struct {
	From time.Time // inclusive; zero means no lower bound
	To   time.Time // inclusive; zero means no upper bound
	Type string    // "", "ARMED", "DISARMED", "ABORT", "STARTUP"
}

// StatusReading is one pull of the live-status sensor.
type StatusReading struct {
	State      string           `json:"state"`
	Attributes StatusAttributes `json:"attributes"`
}

type StatusAttributes struct {
	ProtocolActive bool   `json:"protocol_active"`
	MaxMinutes     int    `json:"max_minutes"`
	Remaining      string `json:"remaining"`
}

// RemainingReading is one pull of the remaining-time sensor.
type RemainingReading struct {
	State string `json:"state"`
	Icon  string `json:"icon"`
}

// ActivityReading is one pull of the activity indicator.
type ActivityReading struct {
	On      bool    `json:"on"`
	StartTS *string `json:"start_ts"`
}

//
// Root Service aggregates all sub-services.
//

type Service struct {
	Protocol
	StatusView
	RemainingView
	Activity
	EventLog
	Authorization
}

// NewService wires the repository layer and the platform bus into concrete
// services for one configured kettle.
func NewService(repos *repository.Repository, platform bus.Platform, cfg ProtocolConfig, signingKey string, log *logger.Logger) *Service {
	cfg = cfg.WithDefaults()
	coordinator := NewCoordinator(cfg, repos.AnchorRepo, repos.EventRepo, platform, log)
	return &Service{
		Protocol:      coordinator,
		StatusView:    NewLiveStatusSensor(coordinator, cfg.MaxMinutes),
		RemainingView: NewRemainingSensor(coordinator),
		Activity:      NewProtocolIndicator(cfg, repos.AnchorRepo, platform, log),
		EventLog:      NewEventLogService(repos.EventRepo),
		Authorization: NewAuthService(repos.Auth, signingKey),
	}
}

package service

import (
	"context"
	"testing"
	"time"
)

// protocolStub fakes the engine for projection tests.
type protocolStub struct {
	active bool
	mmss   string
	mmssOK bool
	status string
}

func (p *protocolStub) Start(ctx context.Context) error { return nil }
func (p *protocolStub) Stop()                           {}
func (p *protocolStub) IsActive() bool                  { return p.active }
func (p *protocolStub) Remaining() (time.Duration, bool) {
	return 0, p.mmssOK
}
func (p *protocolStub) RemainingMMSS() (string, bool) { return p.mmss, p.mmssOK }
func (p *protocolStub) LiveStatus() string            { return p.status }
func (p *protocolStub) HandleExternalChange(ctx context.Context, entityID, newValue string) error {
	return nil
}
func (p *protocolStub) Tick(ctx context.Context) error { return nil }

func TestLiveStatusSensor_ReadStatus(t *testing.T) {
	cases := []struct {
		name string
		stub protocolStub
		want StatusReading
	}{
		{
			name: "active_warm",
			stub: protocolStub{active: true, mmss: "12:34", mmssOK: true, status: "Warm (12:34)"},
			want: StatusReading{
				State:      "Warm (12:34)",
				Attributes: StatusAttributes{ProtocolActive: true, MaxMinutes: 30, Remaining: "12:34"},
			},
		},
		{
			name: "idle",
			stub: protocolStub{status: "Standby"},
			want: StatusReading{
				State:      "Standby",
				Attributes: StatusAttributes{MaxMinutes: 30, Remaining: noReading},
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewLiveStatusSensor(&tc.stub, 30)
			if got := s.ReadStatus(); got != tc.want {
				t.Fatalf("ReadStatus() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

func TestRemainingSensor_ReadRemaining(t *testing.T) {
	cases := []struct {
		name string
		stub protocolStub
		want RemainingReading
	}{
		{"active", protocolStub{active: true, mmss: "05:00", mmssOK: true}, RemainingReading{State: "05:00", Icon: iconActive}},
		{"idle", protocolStub{}, RemainingReading{State: noReading, Icon: iconIdle}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := NewRemainingSensor(&tc.stub)
			if got := s.ReadRemaining(); got != tc.want {
				t.Fatalf("ReadRemaining() = %+v, want %+v", got, tc.want)
			}
		})
	}
}

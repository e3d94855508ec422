package mcsmanager

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrNotConfigured is returned when no panel base URL is set.
	ErrNotConfigured = errors.New("mcsmanager: panel not configured")
	// ErrUnknownInstance is returned for an alias missing from the config.
	ErrUnknownInstance = errors.New("mcsmanager: unknown instance")
)

// APIError is a failure reported by the panel, either through the HTTP
// status or the status field of the response envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("mcsmanager: status %d", e.Status)
	}
	return fmt.Sprintf("mcsmanager: status %d: %s", e.Status, e.Message)
}

// InstanceState is the numeric instance status reported by the daemon.
type InstanceState int

const (
	StateBusy     InstanceState = -1
	StateStopped  InstanceState = 0
	StateStopping InstanceState = 1
	StateStarting InstanceState = 2
	StateRunning  InstanceState = 3
)

func (s InstanceState) String() string {
	switch s {
	case StateBusy:
		return "busy"
	case StateStopped:
		return "stopped"
	case StateStopping:
		return "stopping"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	default:
		return fmt.Sprintf("unknown(%d)", int(s))
	}
}

// Daemon is one remote daemon node from the panel overview.
type Daemon struct {
	UUID             string
	IP               string
	Port             int
	Remarks          string
	Available        bool
	Version          string
	RunningInstances int
	TotalInstances   int
}

// Overview summarises the panel and its daemons.
type Overview struct {
	Version string
	Daemons []Daemon
}

// InstanceStatus is the live state of a single instance.
type InstanceStatus struct {
	UUID           string
	Nickname       string
	State          InstanceState
	CurrentPlayers int
	MaxPlayers     int
	GameVersion    string
	Started        int
	EndTime        time.Time
}

// Players formats the player count, or "-" when the daemon has no ping data.
func (s InstanceStatus) Players() string {
	if s.CurrentPlayers < 0 || s.MaxPlayers <= 0 {
		return "-"
	}
	return fmt.Sprintf("%d/%d", s.CurrentPlayers, s.MaxPlayers)
}

// Action is a power operation on an instance.
type Action string

const (
	ActionStart   Action = "open"
	ActionStop    Action = "stop"
	ActionRestart Action = "restart"
	ActionKill    Action = "kill"
)

// Client defines the MCSManager panel operations used by the bot.
type Client interface {
	Overview(ctx context.Context) (Overview, error)
	Instance(ctx context.Context, ref InstanceRef) (InstanceStatus, error)
	Do(ctx context.Context, ref InstanceRef, action Action) error
	SendCommand(ctx context.Context, ref InstanceRef, command string) error
}

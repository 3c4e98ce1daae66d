package scheduler

import "errors"

// State состояние планировщика
type State int32

const (
	Idle State = iota
	Running
	Paused
	Stopped
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Running:
		return "running"
	case Paused:
		return "paused"
	case Stopped:
		return "stopped"
	default:
		return "unknown"
	}
}

// MarshalText для JSON статуса
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

var (
	ErrNotIdle    = errors.New("scheduler already started")
	ErrNotRunning = errors.New("scheduler is not running")
	ErrNotPaused  = errors.New("scheduler is not paused")
	ErrStopped    = errors.New("scheduler stopped")
)

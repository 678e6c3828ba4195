package livesession

import (
	"errors"
	"time"

	"github.com/park285/gammon-vision/internal/board"
)

// EventGameData tags a full board snapshot on the wire.
const EventGameData = "game_data"

var ErrHubClosed = errors.New("live session hub closed")

// Envelope is the single message shape on the Redis channel and the WebSocket.
type Envelope struct {
	Event string         `json:"event"`
	Data  board.GameData `json:"data"`
	At    time.Time      `json:"at"`
}

type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateReconnecting State = "reconnecting"
	StateFailed       State = "failed"
)

// SnapshotFunc receives every validated snapshot in arrival order.
type SnapshotFunc func(gd board.GameData)

type StateFunc func(s State)

func backoffDuration(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		base = 100 * time.Millisecond
	}
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 6 {
		attempt = 6
	}
	return time.Duration(1<<uint(attempt-1)) * base
}

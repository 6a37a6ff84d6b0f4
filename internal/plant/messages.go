package plant

import (
	"log/slog"
	"time"
)

// StartupMessage is emitted once, Local scope, when Start returns control
// to user code (after all Initialize-scope emissions have fired).
type StartupMessage struct{ At time.Time }

// ShutdownMessage is emitted once, Local scope, when Shutdown is initiated.
type ShutdownMessage struct{ At time.Time }

// LogMessage is emitted Direct whenever a reaction calls Context.Log at or
// above its configured level.
type LogMessage struct {
	Level    slog.Level
	Text     string
	TaskID   uint64
	Reaction uint64
	At       time.Time
}

// ReactionStatistics is emitted after every task, successful or not.
type ReactionStatistics struct {
	ReactionID uint64
	TaskID     uint64
	Label      string
	Stats      TaskStats
}

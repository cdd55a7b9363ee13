package sim

import (
	"uptime-sim/internal/game"
	"uptime-sim/internal/reducer"
	"uptime-sim/internal/telemetry"
)

// EventKindScenario tags story arc announcements, which are emitted by the
// simulator rather than recorded in the game state.
const EventKindScenario = "scenario"

// EventKindTask tags graded hands-on tasks. Like scenario events they stay out
// of the game state.
const EventKindTask = "task"

// MetricsWriter is an interface to support different output writers.
type MetricsWriter interface {
	Write(telemetry.MetricsRow) error
}

// Optional: Writers can also support batch mode
type batchWriter interface {
	WriteBatch([]telemetry.MetricsRow) error
}

// NodeWriter handles per-node rows.
type NodeWriter interface {
	WriteNodes([]telemetry.NodeRow) error
}

// EventWriter handles event log rows.
type EventWriter interface {
	WriteEvents([]telemetry.EventRow) error
}

// StateWriter receives the full state after every tick.
type StateWriter interface {
	WriteState(*game.State) error
}

// CommandSource is implemented by writers that let an operator issue commands.
type CommandSource interface {
	SetCommandSink(func(reducer.Command) error)
}

// AdminStatusWriter allows writers to receive admin UI status updates.
type AdminStatusWriter interface {
	SetAdminStatus(listening bool)
}

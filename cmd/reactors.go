package cmd

import (
	"log/slog"
	"time"

	"github.com/webitel/reactor-plant/internal/dsl"
	"github.com/webitel/reactor-plant/internal/plant"
)

// Heartbeat is emitted once a second by HeartbeatReactor, a minimal
// demonstration of Every plus the reserved Startup/Shutdown messages.
type Heartbeat struct {
	Seq   int
	Fired time.Time
}

// HeartbeatReactor is the demo binary's one reactor: it logs Startup and
// Shutdown, and emits an incrementing Heartbeat once a second for as long
// as the plant is running.
type HeartbeatReactor struct {
	plant.Base
	logger *slog.Logger
	seq    int
}

// NewHeartbeatReactor constructs an unbound reactor; Plant.Install binds it.
func NewHeartbeatReactor(logger *slog.Logger) *HeartbeatReactor {
	return &HeartbeatReactor{logger: logger}
}

// Bind wires every subscription this reactor owns. Called exactly once, by
// Plant.Install.
func (h *HeartbeatReactor) Bind() error {
	if _, err := h.On(dsl.Startup()).Then("heartbeat.startup", func(ctx *plant.Context, args []any) error {
		h.logger.Info("HEARTBEAT_STARTUP")
		return nil
	}); err != nil {
		return err
	}

	if _, err := h.On(dsl.Shutdown()).Then("heartbeat.shutdown", func(ctx *plant.Context, args []any) error {
		h.logger.Info("HEARTBEAT_SHUTDOWN")
		return nil
	}); err != nil {
		return err
	}

	_, err := h.On(dsl.Every(time.Second), dsl.Single()).Then("heartbeat.tick", func(ctx *plant.Context, args []any) error {
		h.seq++
		hb := Heartbeat{Seq: h.seq, Fired: args[0].(dsl.Tick).Deadline}
		h.logger.Debug("HEARTBEAT", "seq", hb.Seq)
		ctx.Emit(hb)
		return nil
	})
	return err
}

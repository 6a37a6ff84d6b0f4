package plant

import (
	"log/slog"
	"time"
)

// Context is passed as the first argument to every user callback. It
// carries the cause chain for the task currently executing, and exposes
// Emit so that recursive emissions from inside a callback are correctly
// chained and, when scoped Local/Direct, correctly linked in the cache for
// Cache.Linked lookups.
//
// This is the Go-native replacement for the source's thread-local argument
// stores: rather than reaching for a goroutine-local hack, the one piece of
// context a callback ever needs (its own cause) is threaded explicitly
// through the call, per the design note in SPEC_FULL.md §9.
type Context struct {
	plant      *Plant
	reactionID uint64
	taskID     uint64
	cause      *Cause
	logger     *slog.Logger
}

// Emit is sugar for EmitScope(ScopeLocal, value).
func (c *Context) Emit(value any) {
	c.EmitScope(ScopeLocal, value)
}

// EmitScope emits value under the given scope, chaining the emission's
// cause to the task currently executing.
func (c *Context) EmitScope(scope Scope, value any) {
	cause := &Cause{ReactionID: c.reactionID, TaskID: c.taskID, Parent: c.cause}
	c.plant.emit(scope, value, cause, c.taskID)
}

// Log emits a LogMessage (scoped Direct, per spec §6) if level is at or
// above the reaction's configured log level, in addition to writing
// through the ordinary slog logger.
func (c *Context) Log(level slog.Level, msg string, args ...any) {
	c.logger.Log(nil, level, msg, args...)
	c.plant.reactionsMu.RLock()
	r := c.plant.reactions[c.reactionID]
	c.plant.reactionsMu.RUnlock()
	if r != nil && level < r.logLevel {
		return
	}
	c.plant.emitLogMessage(LogMessage{
		Level:    level,
		Text:     msg,
		TaskID:   c.taskID,
		Reaction: c.reactionID,
		At:       time.Now(),
	})
}

// Cause returns the cause chain for the task currently executing.
func (c *Context) Cause() *Cause { return c.cause }

// TaskID returns the id of the task currently executing.
func (c *Context) TaskID() uint64 { return c.taskID }

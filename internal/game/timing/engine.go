package timing

import (
	"time"

	"go.uber.org/zap"
)

// BlockReason explains why casting is not possible right now.
type BlockReason string

const (
	BlockNone           BlockReason = ""
	BlockAlreadyCasting BlockReason = "already_casting"
	BlockAfterCastDelay BlockReason = "after_cast_delay"
	BlockAnimation      BlockReason = "animation_delay"
)

// Clock returns the current time.
type Clock func() time.Time

// DefaultStaleCastGrace is how long past its estimated end an unreported cast
// is still considered in progress.
const DefaultStaleCastGrace = 2 * time.Second

// Engine owns the timing State of exactly one character. Expired windows are
// cleared lazily when queried.
//
// An Engine is not safe for concurrent use.
type Engine struct {
	state     State
	table     *Table
	clock     Clock
	logger    *zap.Logger
	castGrace time.Duration
}

// NewEngine returns an idle Engine.
//
// Precondition: table may be nil (no cooldowns are armed); clock nil uses
// time.Now; logger nil uses a no-op logger.
func NewEngine(table *Table, clock Clock, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{table: table, clock: clock, logger: logger, castGrace: DefaultStaleCastGrace}
}

// SetStaleCastGrace overrides DefaultStaleCastGrace. A negative grace keeps
// casts until they are completed or interrupted.
func (e *Engine) SetStaleCastGrace(d time.Duration) {
	e.castGrace = d
}

// Table returns the skill timing table.
func (e *Engine) Table() *Table { return e.table }

// Snapshot returns the current State after expiring ended windows.
func (e *Engine) Snapshot() State {
	e.expire()
	return e.state
}

// StartCast moves idle to casting.
//
// Postcondition: returns false and leaves state unchanged when CanCastNow is
// false.
func (e *Engine) StartCast(skill string, total time.Duration) bool {
	if ok, reason := e.CanCastNow(); !ok {
		e.logger.Debug("cast rejected", zap.String("skill", skill), zap.String("reason", string(reason)))
		return false
	}
	now := e.clock()
	e.state = e.state.StartCast(skill, now, total)
	e.logger.Debug("cast started", zap.String("skill", skill), zap.Duration("cast", total))
	return true
}

// CompleteCast moves casting to the after-cast lockout of length delay and
// arms the skill's own cooldown and animation lock from the Table.
func (e *Engine) CompleteCast(skill string, delay time.Duration) {
	now := e.clock()
	e.state = e.state.CompleteCast(now, delay)
	if st, ok := e.table.Lookup(skill); ok {
		e.state = e.state.WithCooldown(skill, now, st.Cooldown).StartAnimation(now, st.AnimationLock)
	}
	e.logger.Debug("cast completed", zap.String("skill", skill), zap.Duration("delay", delay))
}

// InterruptCast discards any cast in progress.
func (e *Engine) InterruptCast() {
	if e.state.Cast.Casting {
		e.logger.Debug("cast interrupted", zap.String("skill", e.state.Cast.Skill))
	}
	e.state = e.state.Interrupt()
}

// CanCastNow reports whether a new cast may begin. Casting is checked first,
// then the after-cast lockout, then the animation lock.
func (e *Engine) CanCastNow() (bool, BlockReason) {
	e.expire()
	switch {
	case e.state.Cast.Casting:
		return false, BlockAlreadyCasting
	case e.state.Delay.InLockout:
		return false, BlockAfterCastDelay
	case e.state.Delay.InAnimation:
		return false, BlockAnimation
	}
	return true, BlockNone
}

// IsSkillOnCooldown reports whether skill's own cooldown is running. An
// expired entry is removed.
func (e *Engine) IsSkillOnCooldown(skill string) bool {
	return e.CooldownRemaining(skill) > 0
}

// CooldownRemaining returns the time left on skill's cooldown, or 0.
func (e *Engine) CooldownRemaining(skill string) time.Duration {
	k := key(skill)
	end, ok := e.state.Delay.CooldownEndsAt[k]
	if !ok {
		return 0
	}
	now := e.clock()
	if !now.Before(end) {
		e.state = e.state.Expire(now)
		return 0
	}
	return end.Sub(now)
}

func (e *Engine) expire() {
	now := e.clock()
	if c := e.state.Cast; c.Casting && e.castGrace >= 0 && now.After(c.EndsAt.Add(e.castGrace)) {
		e.logger.Warn("dropping stale cast", zap.String("skill", c.Skill), zap.Time("ends_at", c.EndsAt))
		e.state = e.state.Interrupt()
	}
	e.state = e.state.Expire(now)
}

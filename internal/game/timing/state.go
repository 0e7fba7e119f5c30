package timing

import (
	"maps"
	"time"
)

// CastState describes the cast in progress, if any.
type CastState struct {
	Casting   bool
	Skill     string
	StartedAt time.Time
	EndsAt    time.Time
}

// DelayState describes the lockout windows after a cast.
type DelayState struct {
	InLockout      bool
	LockoutEnds    time.Time
	InAnimation    bool
	AnimationEnds  time.Time
	CooldownEndsAt map[string]time.Time
}

// State is the full timing state of one character. Transitions return a new
// State and never mutate the receiver.
type State struct {
	Cast  CastState
	Delay DelayState
}

// Idle reports whether no cast, lockout or animation is active.
func (s State) Idle() bool {
	return !s.Cast.Casting && !s.Delay.InLockout && !s.Delay.InAnimation
}

// StartCast enters casting.
func (s State) StartCast(skill string, now time.Time, total time.Duration) State {
	s.Cast = CastState{Casting: true, Skill: key(skill), StartedAt: now, EndsAt: now.Add(total)}
	return s
}

// CompleteCast leaves casting and starts an after-cast delay of length delay.
// A non-positive delay leaves no lockout.
func (s State) CompleteCast(now time.Time, delay time.Duration) State {
	s.Cast = CastState{}
	if delay > 0 {
		s.Delay.InLockout = true
		s.Delay.LockoutEnds = now.Add(delay)
	}
	return s
}

// WithCooldown arms an independent cooldown for skill.
func (s State) WithCooldown(skill string, now time.Time, cooldown time.Duration) State {
	if cooldown <= 0 {
		return s
	}
	cds := maps.Clone(s.Delay.CooldownEndsAt)
	if cds == nil {
		cds = make(map[string]time.Time, 1)
	}
	cds[key(skill)] = now.Add(cooldown)
	s.Delay.CooldownEndsAt = cds
	return s
}

// StartAnimation enters an animation lock of length d.
func (s State) StartAnimation(now time.Time, d time.Duration) State {
	if d <= 0 {
		return s
	}
	s.Delay.InAnimation = true
	s.Delay.AnimationEnds = now.Add(d)
	return s
}

// Interrupt discards the cast in progress.
func (s State) Interrupt() State {
	s.Cast = CastState{}
	return s
}

// Expire clears every window that has ended at now. The cast itself is only
// cleared by CompleteCast or Interrupt.
func (s State) Expire(now time.Time) State {
	if s.Delay.InLockout && !now.Before(s.Delay.LockoutEnds) {
		s.Delay.InLockout = false
		s.Delay.LockoutEnds = time.Time{}
	}
	if s.Delay.InAnimation && !now.Before(s.Delay.AnimationEnds) {
		s.Delay.InAnimation = false
		s.Delay.AnimationEnds = time.Time{}
	}
	var cds map[string]time.Time
	for id, end := range s.Delay.CooldownEndsAt {
		if now.Before(end) {
			if cds == nil {
				cds = make(map[string]time.Time, len(s.Delay.CooldownEndsAt))
			}
			cds[id] = end
		}
	}
	s.Delay.CooldownEndsAt = cds
	return s
}

package agent

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/cory-johannsen/roagent/internal/game/ai"
)

// Loop ticks every registered coordinator against a World.
type Loop struct {
	registry *ai.Registry
	world    World
	interval time.Duration
	maxTicks int
	logger   *zap.Logger

	ticks int
}

// NewLoop returns a Loop. interval <= 0 ticks as fast as Advance allows;
// maxTicks <= 0 runs until the context ends or the world reports done.
//
// Precondition: registry and world must be non-nil.
func NewLoop(registry *ai.Registry, world World, interval time.Duration, maxTicks int, logger *zap.Logger) *Loop {
	if registry == nil || world == nil {
		panic("agent.NewLoop: registry and world must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loop{registry: registry, world: world, interval: interval, maxTicks: maxTicks, logger: logger}
}

// Ticks returns the number of completed ticks.
func (l *Loop) Ticks() int { return l.ticks }

// Step runs one tick for every registered character concurrently. Each
// character drains its feedback, decides and executes. Execution failures
// are logged; they do not fail the step.
func (l *Loop) Step(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, id := range l.registry.IDs() {
		c, ok := l.registry.CoordinatorFor(id)
		if !ok {
			continue
		}
		g.Go(func() error {
			return l.stepCharacter(gctx, c)
		})
	}
	err := g.Wait()
	l.ticks++
	return err
}

func (l *Loop) stepCharacter(ctx context.Context, c *ai.Coordinator) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := c.ID()
	for _, ev := range l.world.Drain(id) {
		Apply(c, ev)
	}
	snap, ok := l.world.Snapshot(id)
	if !ok {
		return nil
	}
	action, ok := c.Tick(ctx, snap)
	if !ok {
		return nil
	}
	if err := l.world.Execute(ctx, id, action); err != nil {
		l.logger.Warn("action failed",
			zap.String("character", id),
			zap.String("action", action.String()),
			zap.Error(err),
		)
	}
	return nil
}

// Apply forwards one feedback event to c.
func Apply(c *ai.Coordinator, ev Event) {
	switch ev.Kind {
	case EventCastStarted:
		c.CastStarted(ev.Skill)
	case EventCastCompleted:
		c.CastCompleted(ev.Skill)
	case EventCastInterrupted:
		c.CastInterrupted()
	case EventStepResult:
		c.StepResult(ev.Hit, ev.Damage)
	}
}

// Run ticks until ctx ends, maxTicks is reached or a Stepper world reports
// done. A cancelled context is a normal stop.
func (l *Loop) Run(ctx context.Context) error {
	stepper, _ := l.world.(Stepper)
	var tick <-chan time.Time
	if l.interval > 0 {
		t := time.NewTicker(l.interval)
		defer t.Stop()
		tick = t.C
	}
	l.logger.Info("agent loop started",
		zap.Int("characters", l.registry.Len()),
		zap.Duration("interval", l.interval),
		zap.Int("max_ticks", l.maxTicks),
	)
	for {
		if tick != nil {
			select {
			case <-ctx.Done():
				return l.stopped(ctx.Err())
			case <-tick:
			}
		} else if err := ctx.Err(); err != nil {
			return l.stopped(err)
		}
		if err := l.Step(ctx); err != nil {
			return l.stopped(err)
		}
		if stepper != nil && stepper.Advance() {
			l.logger.Info("world finished", zap.Int("ticks", l.ticks))
			return nil
		}
		if l.maxTicks > 0 && l.ticks >= l.maxTicks {
			l.logger.Info("tick limit reached", zap.Int("ticks", l.ticks))
			return nil
		}
	}
}

func (l *Loop) stopped(err error) error {
	l.logger.Info("agent loop stopped", zap.Int("ticks", l.ticks))
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

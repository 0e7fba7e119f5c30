package agent

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/roagent/internal/game/ai"
	"github.com/cory-johannsen/roagent/internal/game/combo"
)

// DecisionStore persists decisions; postgres.DecisionRepository implements it.
type DecisionStore interface {
	Record(ctx context.Context, d ai.Decision) (uuid.UUID, error)
}

// ComboStore persists combo summaries; postgres.ComboRunRepository
// implements it.
type ComboStore interface {
	Record(ctx context.Context, characterID string, s combo.Summary, finishedAt time.Time) (uuid.UUID, error)
}

const flushTimeout = 5 * time.Second

type journalEntry struct {
	decision    *ai.Decision
	characterID string
	summary     combo.Summary
	at          time.Time
}

// Journal writes decisions and combo summaries asynchronously so the tick
// never waits on the database. When the buffer is full entries are dropped
// and counted.
type Journal struct {
	decisions DecisionStore
	combos    ComboStore
	entries   chan journalEntry
	clock     func() time.Time
	logger    *zap.Logger

	dropped atomic.Int64
	written atomic.Int64
}

// NewJournal returns a Journal with the given buffer size (minimum 1).
//
// Precondition: decisions and combos must be non-nil.
func NewJournal(decisions DecisionStore, combos ComboStore, buffer int, clock func() time.Time, logger *zap.Logger) *Journal {
	if decisions == nil || combos == nil {
		panic("agent.NewJournal: stores must not be nil")
	}
	if clock == nil {
		clock = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Journal{
		decisions: decisions,
		combos:    combos,
		entries:   make(chan journalEntry, max(buffer, 1)),
		clock:     clock,
		logger:    logger,
	}
}

// OnDecision enqueues d; it matches ai.Deps.OnDecision.
func (j *Journal) OnDecision(d ai.Decision) {
	j.enqueue(journalEntry{decision: &d})
}

// OnComboFinished enqueues s; it matches ai.Deps.OnComboFinished.
func (j *Journal) OnComboFinished(characterID string, s combo.Summary) {
	j.enqueue(journalEntry{characterID: characterID, summary: s, at: j.clock()})
}

func (j *Journal) enqueue(e journalEntry) {
	select {
	case j.entries <- e:
	default:
		if j.dropped.Add(1) == 1 {
			j.logger.Warn("journal buffer full, dropping entries")
		}
	}
}

// Dropped returns how many entries were discarded on a full buffer.
func (j *Journal) Dropped() int64 { return j.dropped.Load() }

// Written returns how many entries were persisted.
func (j *Journal) Written() int64 { return j.written.Load() }

// Run writes entries until ctx ends, then flushes what is still buffered.
// Write errors are logged and do not stop the journal.
func (j *Journal) Run(ctx context.Context) error {
	for {
		select {
		case e := <-j.entries:
			j.write(ctx, e)
		case <-ctx.Done():
			return j.flush(context.WithoutCancel(ctx))
		}
	}
}

func (j *Journal) flush(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()
	for {
		select {
		case e := <-j.entries:
			j.write(ctx, e)
		default:
			j.logger.Info("journal flushed",
				zap.Int64("written", j.written.Load()),
				zap.Int64("dropped", j.dropped.Load()),
			)
			return nil
		}
	}
}

func (j *Journal) write(ctx context.Context, e journalEntry) {
	var err error
	if e.decision != nil {
		_, err = j.decisions.Record(ctx, *e.decision)
	} else {
		_, err = j.combos.Record(ctx, e.characterID, e.summary, e.at)
	}
	if err != nil {
		j.logger.Warn("journal write failed", zap.Error(err))
		return
	}
	j.written.Add(1)
}

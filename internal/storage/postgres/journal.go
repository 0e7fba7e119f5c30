package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/roagent/internal/game/ai"
	"github.com/cory-johannsen/roagent/internal/game/combo"
)

// ErrNoComboRuns is returned by ComboStats for a combo never recorded.
var ErrNoComboRuns = errors.New("no combo runs recorded")

// DecisionRecord is one journaled decision.
type DecisionRecord struct {
	ID          uuid.UUID
	CharacterID string
	Tactic      string
	ActionKind  string
	SkillID     string
	SkillLevel  int
	ItemID      string
	TargetID    string
	// X and Y are nil for actions without a position.
	X, Y        *int
	Priority    int
	Reason      string
	TargetScore float64
	Multiplier  float64
	DecidedAt   time.Time
}

// DecisionRepository journals coordinator decisions for offline tuning.
type DecisionRepository struct {
	db *pgxpool.Pool
}

// NewDecisionRepository creates a DecisionRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewDecisionRepository(db *pgxpool.Pool) *DecisionRepository {
	return &DecisionRepository{db: db}
}

// Record inserts d under a fresh ID.
//
// Postcondition: Returns the new record ID or a non-nil error.
func (r *DecisionRepository) Record(ctx context.Context, d ai.Decision) (uuid.UUID, error) {
	id := uuid.New()
	var x, y *int
	if p := d.Action.Position; p != nil {
		x, y = &p.X, &p.Y
	}
	_, err := r.db.Exec(ctx,
		`INSERT INTO decisions
		   (id, character_id, tactic, action_kind, skill_id, skill_level, item_id,
		    target_id, pos_x, pos_y, priority, reason, target_score, multiplier, decided_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		id, d.CharacterID, d.Tactic, d.Action.Kind.String(), d.Action.SkillID, d.Action.Level,
		d.Action.ItemID, d.TargetID, x, y, d.Action.Priority, d.Action.Reason,
		d.TargetScore, d.Multiplier, d.At,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting decision: %w", err)
	}
	return id, nil
}

// ListByCharacter returns the newest limit decisions of characterID, newest
// first.
//
// Precondition: limit > 0.
func (r *DecisionRepository) ListByCharacter(ctx context.Context, characterID string, limit int) ([]DecisionRecord, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, character_id, tactic, action_kind, skill_id, skill_level, item_id,
		        target_id, pos_x, pos_y, priority, reason, target_score, multiplier, decided_at
		 FROM decisions WHERE character_id = $1
		 ORDER BY decided_at DESC LIMIT $2`,
		characterID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying decisions: %w", err)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (DecisionRecord, error) {
		var d DecisionRecord
		err := row.Scan(&d.ID, &d.CharacterID, &d.Tactic, &d.ActionKind, &d.SkillID, &d.SkillLevel,
			&d.ItemID, &d.TargetID, &d.X, &d.Y, &d.Priority, &d.Reason, &d.TargetScore,
			&d.Multiplier, &d.DecidedAt)
		return d, err
	})
	if err != nil {
		return nil, fmt.Errorf("scanning decisions: %w", err)
	}
	return out, nil
}

// CountByTactic returns how often each tactic was chosen for characterID.
func (r *DecisionRepository) CountByTactic(ctx context.Context, characterID string) (map[string]int, error) {
	rows, err := r.db.Query(ctx,
		`SELECT tactic, COUNT(*) FROM decisions WHERE character_id = $1 GROUP BY tactic`,
		characterID,
	)
	if err != nil {
		return nil, fmt.Errorf("counting decisions: %w", err)
	}
	defer rows.Close()
	out := make(map[string]int)
	for rows.Next() {
		var tactic string
		var n int
		if err := rows.Scan(&tactic, &n); err != nil {
			return nil, fmt.Errorf("scanning tactic count: %w", err)
		}
		out[tactic] = n
	}
	return out, rows.Err()
}

// ComboStats aggregates the journaled runs of one combo.
type ComboStats struct {
	Runs           int
	Completed      int
	AverageDamage  float64
	CompletionRate float64
}

// ComboRunRepository journals finished combo runs.
type ComboRunRepository struct {
	db *pgxpool.Pool
}

// NewComboRunRepository creates a ComboRunRepository backed by db.
//
// Precondition: db must be a valid, open connection pool.
func NewComboRunRepository(db *pgxpool.Pool) *ComboRunRepository {
	return &ComboRunRepository{db: db}
}

// Record inserts the summary of a finished run.
func (r *ComboRunRepository) Record(ctx context.Context, characterID string, s combo.Summary, finishedAt time.Time) (uuid.UUID, error) {
	id := uuid.New()
	_, err := r.db.Exec(ctx,
		`INSERT INTO combo_runs
		   (id, character_id, combo_id, steps_executed, total_steps, completed, hits, damage, elapsed_ms, finished_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		id, characterID, s.ComboID, s.StepsExecuted, s.TotalSteps, s.Completed, s.Hits,
		int64(s.Damage), s.Elapsed.Milliseconds(), finishedAt,
	)
	if err != nil {
		return uuid.Nil, fmt.Errorf("inserting combo run: %w", err)
	}
	return id, nil
}

// ComboStats returns the aggregate of every run of comboID, or
// ErrNoComboRuns.
func (r *ComboRunRepository) ComboStats(ctx context.Context, comboID string) (ComboStats, error) {
	var st ComboStats
	var avg *float64
	err := r.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE completed), AVG(damage)::float8
		 FROM combo_runs WHERE combo_id = $1`,
		comboID,
	).Scan(&st.Runs, &st.Completed, &avg)
	if err != nil {
		return ComboStats{}, fmt.Errorf("querying combo stats: %w", err)
	}
	if st.Runs == 0 {
		return ComboStats{}, ErrNoComboRuns
	}
	if avg != nil {
		st.AverageDamage = *avg
	}
	st.CompletionRate = float64(st.Completed) / float64(st.Runs)
	return st, nil
}

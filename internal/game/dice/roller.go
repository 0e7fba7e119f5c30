package dice

import (
	"fmt"
	"slices"

	"go.uber.org/zap"
)

// Roll evaluates expr with src.
//
// Postcondition: len(Dice) is KeepHighest when set, else Count.
func Roll(expr Expression, src Source) RollResult {
	rolled := make([]int, expr.Count)
	for i := range rolled {
		rolled[i] = src.Intn(expr.Sides) + 1
	}
	if expr.KeepHighest > 0 {
		slices.SortFunc(rolled, func(a, b int) int { return b - a })
		rolled = rolled[:expr.KeepHighest]
	}
	return RollResult{Expression: expr.Raw, Dice: rolled, Modifier: expr.Modifier}
}

// Roller rolls with a Source and logs every roll at Debug.
type Roller struct {
	src    Source
	logger *zap.Logger
}

// NewRoller returns a Roller. A nil logger disables logging.
//
// Precondition: src must be non-nil.
func NewRoller(src Source, logger *zap.Logger) *Roller {
	if src == nil {
		panic("dice.NewRoller: src must not be nil")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Roller{src: src, logger: logger}
}

// Roll evaluates expr and logs the result.
func (r *Roller) Roll(expr Expression) RollResult {
	res := Roll(expr, r.src)
	r.logger.Debug("dice roll",
		zap.String("expression", res.Expression),
		zap.Ints("dice", res.Dice),
		zap.Int("modifier", res.Modifier),
		zap.Int("total", res.Total()),
	)
	return res
}

// RollExpr parses and rolls expr.
func (r *Roller) RollExpr(expr string) (RollResult, error) {
	e, err := Parse(expr)
	if err != nil {
		return RollResult{}, err
	}
	return r.Roll(e), nil
}

// Chance reports success with probability pct/100. pct is clamped to [0,100].
func (r *Roller) Chance(pct float64) bool {
	switch {
	case pct <= 0:
		return false
	case pct >= 100:
		return true
	}
	hit := float64(r.src.Intn(10000)) < pct*100
	r.logger.Debug("dice chance", zap.Float64("pct", pct), zap.Bool("success", hit))
	return hit
}

// Between returns a uniform value in [lo, hi].
//
// Postcondition: errors when hi < lo.
func (r *Roller) Between(lo, hi int) (int, error) {
	if hi < lo {
		return 0, fmt.Errorf("dice: empty range [%d, %d]", lo, hi)
	}
	return lo + r.src.Intn(hi-lo+1), nil
}

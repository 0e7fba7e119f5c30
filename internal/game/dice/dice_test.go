package dice_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/roagent/internal/game/dice"
)

// fixedSource returns the queued values in order, then repeats the last.
type fixedSource struct {
	vals []int
	i    int
}

func (f *fixedSource) Intn(n int) int {
	v := f.vals[min(f.i, len(f.vals)-1)]
	f.i++
	return v % n
}

func TestRollResult_TotalAndString(t *testing.T) {
	r := dice.RollResult{Expression: "2d6+3", Dice: []int{4, 5}, Modifier: 3}
	assert.Equal(t, 12, r.Total())
	assert.Equal(t, "2d6+3 [4 5] +3 = 12", r.String())
}

func TestParse(t *testing.T) {
	cases := []struct {
		in   string
		want dice.Expression
	}{
		{"d20", dice.Expression{Raw: "d20", Count: 1, Sides: 20}},
		{"2d6", dice.Expression{Raw: "2d6", Count: 2, Sides: 6}},
		{"2D6+3", dice.Expression{Raw: "2D6+3", Count: 2, Sides: 6, Modifier: 3}},
		{"4d8-2", dice.Expression{Raw: "4d8-2", Count: 4, Sides: 8, Modifier: -2}},
		{"4d6kh3", dice.Expression{Raw: "4d6kh3", Count: 4, Sides: 6, KeepHighest: 3}},
		{"4d6kh3+1", dice.Expression{Raw: "4d6kh3+1", Count: 4, Sides: 6, KeepHighest: 3, Modifier: 1}},
		{" 1d10 + 20 ", dice.Expression{Raw: " 1d10 + 20 ", Count: 1, Sides: 10, Modifier: 20}},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			got, err := dice.Parse(tc.in)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestParse_Errors(t *testing.T) {
	for _, in := range []string{"", "6", "0d6", "2d1", "2dx", "2d6+x", "2d6kh2", "2d6kh0"} {
		_, err := dice.Parse(in)
		assert.Error(t, err, in)
	}
	assert.Panics(t, func() { dice.MustParse("nope") })
}

func TestRoll_KeepHighest(t *testing.T) {
	src := &fixedSource{vals: []int{0, 5, 2, 3}}
	res := dice.Roll(dice.MustParse("4d6kh2+1"), src)
	assert.Equal(t, []int{6, 4}, res.Dice)
	assert.Equal(t, 11, res.Total())
}

func TestRoll_Property(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		count := rapid.IntRange(1, 10).Draw(rt, "count")
		sides := rapid.IntRange(2, 100).Draw(rt, "sides")
		seed := rapid.Uint64().Draw(rt, "seed")
		e := dice.Expression{Raw: "x", Count: count, Sides: sides}
		res := dice.Roll(e, dice.NewSeededSource(seed))
		require.Len(rt, res.Dice, count)
		for _, d := range res.Dice {
			assert.GreaterOrEqual(rt, d, 1)
			assert.LessOrEqual(rt, d, sides)
		}
	})
}

func TestSeededSource_Reproducible(t *testing.T) {
	a, b := dice.NewSeededSource(42), dice.NewSeededSource(42)
	for range 100 {
		assert.Equal(t, a.Intn(1000), b.Intn(1000))
	}
}

func TestSources_PanicOnZero(t *testing.T) {
	assert.Panics(t, func() { dice.NewCryptoSource().Intn(0) })
	assert.Panics(t, func() { dice.NewSeededSource(1).Intn(0) })
	v := dice.NewCryptoSource().Intn(3)
	assert.True(t, v >= 0 && v < 3)
}

func TestRoller_LogsRolls(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	r := dice.NewRoller(dice.NewSeededSource(7), zap.New(core))
	res, err := r.RollExpr("2d6+3")
	require.NoError(t, err)
	require.Equal(t, 1, logs.FilterMessage("dice roll").Len())
	assert.Equal(t, int64(res.Total()), logs.All()[0].ContextMap()["total"])

	_, err = r.RollExpr("bad")
	assert.Error(t, err)
}

func TestRoller_Chance(t *testing.T) {
	r := dice.NewRoller(&fixedSource{vals: []int{4999}}, nil)
	assert.True(t, r.Chance(50))
	r = dice.NewRoller(&fixedSource{vals: []int{5000}}, nil)
	assert.False(t, r.Chance(50))
	assert.False(t, r.Chance(0))
	assert.True(t, r.Chance(100))
}

func TestRoller_Between(t *testing.T) {
	r := dice.NewRoller(dice.NewSeededSource(3), nil)
	rapid.Check(t, func(rt *rapid.T) {
		lo := rapid.IntRange(-50, 50).Draw(rt, "lo")
		hi := lo + rapid.IntRange(0, 50).Draw(rt, "span")
		v, err := r.Between(lo, hi)
		require.NoError(rt, err)
		assert.GreaterOrEqual(rt, v, lo)
		assert.LessOrEqual(rt, v, hi)
	})
	_, err := r.Between(2, 1)
	assert.Error(t, err)
	assert.Panics(t, func() { dice.NewRoller(nil, nil) })
}

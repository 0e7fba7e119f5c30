package agent_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cory-johannsen/roagent/internal/agent"
	"github.com/cory-johannsen/roagent/internal/game/ai"
	"github.com/cory-johannsen/roagent/internal/game/combo"
)

type memStore struct {
	mu        sync.Mutex
	decisions []ai.Decision
	combos    []combo.Summary
	err       error
}

func (s *memStore) Record(_ context.Context, d ai.Decision) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return uuid.Nil, s.err
	}
	s.decisions = append(s.decisions, d)
	return uuid.New(), nil
}

type memComboStore struct{ *memStore }

func (s memComboStore) Record(_ context.Context, _ string, sum combo.Summary, _ time.Time) (uuid.UUID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.combos = append(s.combos, sum)
	return uuid.New(), nil
}

func (s *memStore) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.decisions), len(s.combos)
}

func TestJournal_WritesAndFlushesOnStop(t *testing.T) {
	store := &memStore{}
	j := agent.NewJournal(store, memComboStore{store}, 16, nil, nil)
	j.OnDecision(ai.Decision{CharacterID: "a", Tactic: ai.DecisionAttack})
	j.OnComboFinished("a", combo.Summary{ComboID: "c1", Completed: true})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- j.Run(ctx) }()
	require.Eventually(t, func() bool { d, c := store.counts(); return d == 1 && c == 1 }, time.Second, 5*time.Millisecond)

	cancel()
	require.NoError(t, <-done)

	j.OnDecision(ai.Decision{CharacterID: "a"})
	require.NoError(t, j.Run(ctx))
	d, _ := store.counts()
	assert.Equal(t, 2, d)
	assert.EqualValues(t, 3, j.Written())
}

func TestJournal_DropsWhenFull(t *testing.T) {
	store := &memStore{}
	core, logs := observer.New(zap.WarnLevel)
	j := agent.NewJournal(store, memComboStore{store}, 1, nil, zap.New(core))
	for range 3 {
		j.OnDecision(ai.Decision{CharacterID: "a"})
	}
	assert.EqualValues(t, 2, j.Dropped())
	assert.Equal(t, 1, logs.FilterMessage("journal buffer full, dropping entries").Len())
}

func TestJournal_WriteErrorsAreLogged(t *testing.T) {
	store := &memStore{err: errors.New("db down")}
	core, logs := observer.New(zap.WarnLevel)
	j := agent.NewJournal(store, memComboStore{store}, 4, nil, zap.New(core))
	j.OnDecision(ai.Decision{CharacterID: "a"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.NoError(t, j.Run(ctx))
	assert.Equal(t, 1, logs.FilterMessage("journal write failed").Len())
	assert.Zero(t, j.Written())
}

func TestJournal_NilStoresPanic(t *testing.T) {
	assert.Panics(t, func() { agent.NewJournal(nil, nil, 1, nil, nil) })
}

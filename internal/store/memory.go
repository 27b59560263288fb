package store

import (
	"context"
	"slices"
	"sync"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
)

// Memory keeps everything in process. Used when no database is configured.
type Memory struct {
	mu      sync.Mutex
	records []engine.MatchRecord
	stats   map[StatKey]Stat
}

func NewMemory() *Memory {
	return &Memory{stats: make(map[StatKey]Stat)}
}

func (m *Memory) RecordMatch(ctx context.Context, r engine.MatchRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, r)
	return nil
}

func (m *Memory) RecordOutcomes(ctx context.Context, deltas []engine.OutcomeDelta) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, row := range statRows(deltas) {
		s := m.stats[row.Key]
		s.Wins += row.Wins
		s.Losses += row.Losses
		s.PlayTime += row.PlayTime
		m.stats[row.Key] = s
	}
	return nil
}

func (m *Memory) Records() []engine.MatchRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.records)
}

func (m *Memory) Stat(key StatKey) Stat {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.stats[key]
}

func (m *Memory) Close() error { return nil }

package store

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func deltas() []engine.OutcomeDelta {
	return []engine.OutcomeDelta{
		{ParticipantID: "a", Alliance: engine.AllianceSpy, Role: "assassin", Won: true, Bucket: "5p", Duration: 20 * time.Minute},
		{ParticipantID: "b", Alliance: engine.AllianceResistance, Role: "merlin", Won: false, Bucket: "5p", Duration: 20 * time.Minute},
	}
}

func TestStatRows(t *testing.T) {
	rows := statRows(deltas())
	require.Len(t, rows, 8)
	var keys []StatKey
	for _, r := range rows[:4] {
		keys = append(keys, r.Key)
		assert.Equal(t, 1, r.Wins)
	}
	assert.Equal(t, []StatKey{
		{"a", AllBucket, AllBucket},
		{"a", "5p", AllBucket},
		{"a", AllBucket, "assassin"},
		{"a", "5p", "assassin"},
	}, keys)
	assert.Equal(t, 1, rows[7].Losses)
	assert.Equal(t, 20*time.Minute, rows[7].PlayTime)
	assert.Empty(t, statRows(nil))
}

func TestMemory_AccumulatesStats(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.RecordOutcomes(ctx, deltas()))
	require.NoError(t, m.RecordOutcomes(ctx, deltas()))

	assert.Equal(t, Stat{Wins: 2, PlayTime: 40 * time.Minute}, m.Stat(StatKey{"a", AllBucket, AllBucket}))
	assert.Equal(t, Stat{Losses: 2, PlayTime: 40 * time.Minute}, m.Stat(StatKey{"b", "5p", "merlin"}))
	assert.Equal(t, Stat{}, m.Stat(StatKey{"c", AllBucket, AllBucket}))

	// Role tallies add up across player counts.
	seven := []engine.OutcomeDelta{{ParticipantID: "b", Role: "merlin", Won: true, Bucket: "7p", Duration: time.Minute}}
	require.NoError(t, m.RecordOutcomes(ctx, seven))
	assert.Equal(t, Stat{Wins: 1, Losses: 2, PlayTime: 41 * time.Minute}, m.Stat(StatKey{"b", AllBucket, "merlin"}))
	assert.Equal(t, Stat{Losses: 2, PlayTime: 40 * time.Minute}, m.Stat(StatKey{"b", "5p", AllBucket}))
	assert.Equal(t, Stat{Wins: 1, PlayTime: time.Minute}, m.Stat(StatKey{"b", "7p", AllBucket}))
}

func TestMemory_RespectsContext(t *testing.T) {
	m := NewMemory()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, m.RecordMatch(ctx, engine.MatchRecord{}), context.Canceled)
	assert.Empty(t, m.Records())
}

func TestNewMatchRow(t *testing.T) {
	r := engine.MatchRecord{
		MatchID:         "m-1",
		CatalogVersion:  "avalon/1",
		Winner:          engine.AllianceSpy,
		HowWon:          "Hammer rejected.",
		NumberOfPlayers: 6,
		SpyTeam:         []string{"a", "b"},
	}
	row, err := newMatchRow(r)
	require.NoError(t, err)
	assert.Equal(t, "m-1", row.MatchID)
	assert.Equal(t, "Spy", row.Winner)
	assert.Equal(t, 6, row.NumberOfPlayers)

	var back engine.MatchRecord
	require.NoError(t, json.Unmarshal(row.Payload, &back))
	assert.Equal(t, r.SpyTeam, back.SpyTeam)
	assert.Equal(t, r.HowWon, back.HowWon)
}

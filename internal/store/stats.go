// Package store persists finished matches: the full match record and
// per-participant lifetime statistics.
package store

import (
	"time"

	"github.com/DoyleJ11/resistance-backend/internal/engine"
)

// AllBucket aggregates across player counts and roles.
const AllBucket = "all"

type StatKey struct {
	ParticipantID string
	Bucket        string
	Role          string
}

type Stat struct {
	Wins     int
	Losses   int
	PlayTime time.Duration
}

type statRow struct {
	Key StatKey
	Stat
}

// statRows expands each outcome into four rows: totals, per player count,
// per role across all counts, and per (player count, role).
func statRows(deltas []engine.OutcomeDelta) []statRow {
	rows := make([]statRow, 0, 4*len(deltas))
	for _, d := range deltas {
		s := Stat{PlayTime: d.Duration}
		if d.Won {
			s.Wins = 1
		} else {
			s.Losses = 1
		}
		for _, k := range [][2]string{
			{AllBucket, AllBucket},
			{d.Bucket, AllBucket},
			{AllBucket, d.Role},
			{d.Bucket, d.Role},
		} {
			rows = append(rows, statRow{Key: StatKey{ParticipantID: d.ParticipantID, Bucket: k[0], Role: k[1]}, Stat: s})
		}
	}
	return rows
}

package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLedger_EnsureIsIdempotent(t *testing.T) {
	l := VoteLedger{}
	ids := []string{"a", "b"}
	l.Ensure(ids, 2, 3)
	l.Append("a", 2, 3, TagLeader)
	l.Ensure(ids, 2, 3)
	l.Ensure(ids, 1, 1)

	assert.Len(t, l["a"], 2)
	assert.Len(t, l["a"][1], 3)
	assert.Equal(t, []string{TagLeader}, l.Cell("a", 2, 3))
	assert.Empty(t, l.Cell("b", 2, 3))
	assert.Nil(t, l.Cell("a", 5, 1))
}

func TestLedger_CloneIsDeep(t *testing.T) {
	l := VoteLedger{}
	l.Append("a", 1, 1, TagPicked)
	c := l.Clone()
	c.Append("a", 1, 1, "approve")
	assert.Equal(t, []string{TagPicked}, l.Cell("a", 1, 1))
	assert.Equal(t, []string{TagPicked, "approve"}, c.Cell("a", 1, 1))
}

func TestLedger_FullPickHistory(t *testing.T) {
	e, s := newMatch(t, 5)
	s = propose(t, e, s)
	_, s = voteAll(t, e, s, BallotReject)
	s = propose(t, e, s)
	_, s = voteAll(t, e, s, BallotApprove)

	for _, p := range s.Participants {
		assert.Len(t, s.Ledger[p.ID][0], 2, p.ID)
		assert.Contains(t, s.Ledger.Cell(p.ID, 1, 1), "reject")
		assert.Contains(t, s.Ledger.Cell(p.ID, 1, 2), "approve")
	}
}

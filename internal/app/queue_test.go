package app

import (
	"testing"

	"github.com/stretchr/testify/require"

	"skillsprint-arena/internal/domain"
)

func TestQueuePairsInArrivalOrder(t *testing.T) {
	q := NewWaitingQueue()

	for i, name := range []string{"alice", "bob", "carol", "dave"} {
		count, err := q.Enqueue(&Participant{ConnID: name, Username: name})
		require.NoError(t, err)
		require.Equal(t, i+1, count)
	}

	a, b, ok := q.TryPairNext()
	require.True(t, ok)
	require.Equal(t, "alice", a.ConnID)
	require.Equal(t, "bob", b.ConnID)

	a, b, ok = q.TryPairNext()
	require.True(t, ok)
	require.Equal(t, "carol", a.ConnID)
	require.Equal(t, "dave", b.ConnID)

	_, _, ok = q.TryPairNext()
	require.False(t, ok)
}

func TestQueueRejectsDuplicateConnection(t *testing.T) {
	q := NewWaitingQueue()

	_, err := q.Enqueue(&Participant{ConnID: "c1", Username: "alice"})
	require.NoError(t, err)

	count, err := q.Enqueue(&Participant{ConnID: "c1", Username: "alice again"})
	require.ErrorIs(t, err, domain.ErrAlreadyQueued)
	require.Equal(t, 1, count)
	require.Equal(t, 1, q.Len())
}

func TestQueueRemoveSkipsDepartedParticipant(t *testing.T) {
	q := NewWaitingQueue()

	_, _ = q.Enqueue(&Participant{ConnID: "c1", Username: "alice"})
	require.True(t, q.Remove("c1"))
	require.False(t, q.Remove("c1"))

	_, _ = q.Enqueue(&Participant{ConnID: "c2", Username: "bob"})
	_, _ = q.Enqueue(&Participant{ConnID: "c3", Username: "carol"})

	a, b, ok := q.TryPairNext()
	require.True(t, ok)
	require.Equal(t, "c2", a.ConnID)
	require.Equal(t, "c3", b.ConnID)
}

func TestQueuePairNeedsTwo(t *testing.T) {
	q := NewWaitingQueue()
	_, _ = q.Enqueue(&Participant{ConnID: "c1", Username: "alice"})

	_, _, ok := q.TryPairNext()
	require.False(t, ok)
	require.Equal(t, 1, q.Len())
}

package app

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bft-labs/devwrite/internal/domain"
)

func req(index, sub int, payload any) domain.WriteRequest {
	return domain.WriteRequest{Key: domain.Key{Index: index, SubIndex: sub}, Payload: payload}
}

func TestQueue_CoalescesInPlace(t *testing.T) {
	q := NewQueue()

	assert.False(t, q.Enqueue(req(1, 0, 5)))
	assert.False(t, q.Enqueue(req(2, 0, "x")))
	assert.False(t, q.Enqueue(req(1, 1, 7)))
	assert.True(t, q.Enqueue(req(1, 0, 9)))

	require.Equal(t, 3, q.Len())
	assert.Equal(t, []domain.Key{{Index: 1}, {Index: 2}, {Index: 1, SubIndex: 1}}, q.Keys())

	head, ok := q.DequeueOldest()
	require.True(t, ok)
	assert.Equal(t, req(1, 0, 9), head)
}

func TestQueue_DequeueEmpty(t *testing.T) {
	q := NewQueue()
	_, ok := q.DequeueOldest()
	assert.False(t, ok)

	q.Enqueue(req(1, 0, 1))
	assert.Equal(t, 1, q.Clear())
	assert.Equal(t, 0, q.Len())
}

// A hot key rewritten on every step keeps its first-seen position, and the
// queue never holds more entries than distinct keys.
func TestQueue_FairnessAndBound(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	q := NewQueue()
	seen := map[domain.Key]bool{}
	var firstSeen []domain.Key

	for i := 0; i < 500; i++ {
		r := req(rng.Intn(8), rng.Intn(3), i)
		if !seen[r.Key] {
			seen[r.Key] = true
			firstSeen = append(firstSeen, r.Key)
		}
		q.Enqueue(r)
		q.Enqueue(req(0, 0, i)) // hot key
		if !seen[domain.Key{}] {
			seen[domain.Key{}] = true
			firstSeen = append(firstSeen, domain.Key{})
		}

		require.LessOrEqual(t, q.Len(), len(seen))
	}

	assert.Equal(t, firstSeen, q.Keys())

	last := map[domain.Key]any{}
	for q.Len() > 0 {
		r, _ := q.DequeueOldest()
		_, dup := last[r.Key]
		require.False(t, dup, "key %v dequeued twice", r.Key)
		last[r.Key] = r.Payload
	}
	assert.Equal(t, 499, last[domain.Key{}])
}

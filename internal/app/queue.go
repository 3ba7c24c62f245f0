package app

import "github.com/bft-labs/devwrite/internal/domain"

// Queue holds pending writes, at most one per Key.
//
// Order is the order in which keys were first seen. Re-enqueueing a queued
// key replaces its payload without moving it, so a key that is updated
// constantly cannot starve the others.
type Queue struct {
	items []domain.WriteRequest
}

// NewQueue creates an empty queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue adds req, or overwrites the payload of the queued request with the
// same key. It reports whether an existing entry was replaced.
func (q *Queue) Enqueue(req domain.WriteRequest) bool {
	for i := range q.items {
		if q.items[i].Key == req.Key {
			q.items[i].Payload = req.Payload
			return true
		}
	}
	q.items = append(q.items, req)
	return false
}

// DequeueOldest removes and returns the head of the queue.
func (q *Queue) DequeueOldest() (domain.WriteRequest, bool) {
	if len(q.items) == 0 {
		return domain.WriteRequest{}, false
	}
	req := q.items[0]
	q.items[0] = domain.WriteRequest{}
	q.items = q.items[1:]
	return req, true
}

// Len returns the number of queued requests.
func (q *Queue) Len() int {
	return len(q.items)
}

// Keys returns the queued keys in dispatch order.
func (q *Queue) Keys() []domain.Key {
	keys := make([]domain.Key, len(q.items))
	for i, it := range q.items {
		keys[i] = it.Key
	}
	return keys
}

// Clear drops everything.
func (q *Queue) Clear() int {
	n := len(q.items)
	q.items = nil
	return n
}

package app

import (
	"sync"

	"skillsprint-arena/internal/domain"
)

// EventSink delivers one outbound event to a single participant. Sends must
// not block event processing; the transport layer buffers behind it.
type EventSink interface {
	Send(event string, payload any)
}

// Participant is one connected actor, alive for the span of its connection.
type Participant struct {
	ConnID   string
	Username string
	Sink     EventSink
}

// Ref returns the participant's opponent-facing identity.
func (p *Participant) Ref() domain.PlayerRef {
	return domain.PlayerRef{ID: p.ConnID, Username: p.Username}
}

// WaitingQueue holds participants seeking a match in strict arrival order.
// All operations are atomic with respect to each other.
type WaitingQueue struct {
	mu      sync.Mutex
	waiting []*Participant
}

func NewWaitingQueue() *WaitingQueue {
	return &WaitingQueue{}
}

// Enqueue appends the participant and returns the resulting queue length.
// A connection already present is rejected; the queue is left untouched.
func (q *WaitingQueue) Enqueue(p *Participant) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, w := range q.waiting {
		if w.ConnID == p.ConnID {
			return len(q.waiting), domain.ErrAlreadyQueued
		}
	}
	q.waiting = append(q.waiting, p)
	return len(q.waiting), nil
}

// TryPairNext removes and returns the two earliest-enqueued participants, or
// ok=false when fewer than two are waiting.
func (q *WaitingQueue) TryPairNext() (a, b *Participant, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.waiting) < 2 {
		return nil, nil, false
	}
	a, b = q.waiting[0], q.waiting[1]
	q.waiting = q.waiting[2:]
	return a, b, true
}

// Remove drops the entry for connID if present and reports whether it did.
func (q *WaitingQueue) Remove(connID string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, w := range q.waiting {
		if w.ConnID == connID {
			q.waiting = append(q.waiting[:i], q.waiting[i+1:]...)
			return true
		}
	}
	return false
}

// Len reports the current number of waiting participants.
func (q *WaitingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.waiting)
}

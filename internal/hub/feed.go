// Package hub provides typed publish/subscribe feeds. Subscribing returns a Subscription whose
// Close removes the handler; there are no string topics.
package hub

import (
	"sync"
)

// Feed delivers values of one type to every current subscriber, in subscription order.
// The zero value is ready to use.
type Feed[T any] struct {
	mu     sync.RWMutex
	nextID uint64
	subs   []subscriber[T]
}

type subscriber[T any] struct {
	id uint64
	fn func(T)
}

// Subscribe registers fn. fn runs on the publisher's goroutine and must not block.
func (f *Feed[T]) Subscribe(fn func(T)) *Subscription {
	f.mu.Lock()
	f.nextID++
	id := f.nextID
	f.subs = append(f.subs, subscriber[T]{id: id, fn: fn})
	f.mu.Unlock()
	return &Subscription{cancel: func() { f.remove(id) }}
}

func (f *Feed[T]) remove(id uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, s := range f.subs {
		if s.id == id {
			next := make([]subscriber[T], 0, len(f.subs)-1)
			next = append(next, f.subs[:i]...)
			f.subs = append(next, f.subs[i+1:]...)
			return
		}
	}
}

// Publish calls every subscriber with v and returns how many were called.
func (f *Feed[T]) Publish(v T) int {
	f.mu.RLock()
	subs := f.subs
	f.mu.RUnlock()
	for _, s := range subs {
		s.fn(v)
	}
	return len(subs)
}

// Len returns the number of subscribers.
func (f *Feed[T]) Len() int {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return len(f.subs)
}

// Subscription is the capability to stop receiving from a feed.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Close unregisters the subscriber. Safe to call more than once.
func (s *Subscription) Close() {
	if s == nil {
		return
	}
	s.once.Do(s.cancel)
}

// Group closes several subscriptions together.
type Group []*Subscription

// Close closes every subscription in g.
func (g Group) Close() {
	for _, s := range g {
		s.Close()
	}
}

// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

// Package event implements the notification plumbing components use to
// announce new chain heads and other state changes to interested listeners,
// grounded on go-ethereum's event package: a Subscription is a running
// goroutine that can be cancelled and that reports its terminal error (or
// nil) on a channel.
package event

import (
	"context"
	"errors"
	"sync"
)

// Subscription represents a stream of events. The carrier of the events is
// typically a channel, but isn't part of the interface.
//
// Subscriptions can fail while established. Failures are reported through an
// error channel. It is safe to call Unsubscribe multiple times or
// concurrently from multiple goroutines. Once a subscription has ended, all
// future calls to Unsubscribe should return immediately with no effect.
type Subscription interface {
	Err() <-chan error // returns the error channel
	Unsubscribe()       // cancels sending of events, closing the error channel
}

// NewSubscription runs a producer function as a subscription in a new
// goroutine. The channel given to the producer is closed when Unsubscribe is
// called. If fn returns an error, it is sent on the subscription's error
// channel.
func NewSubscription(producer func(<-chan struct{}) error) Subscription {
	s := &funcSub{unsub: make(chan struct{}), err: make(chan error, 1)}
	go func() {
		defer close(s.err)
		err := producer(s.unsub)
		s.mu.Lock()
		defer s.mu.Unlock()
		if !s.unsubscribed {
			if err != nil {
				s.err <- err
			}
			s.unsubscribed = true
		}
	}()
	return s
}

type funcSub struct {
	unsub        chan struct{}
	err          chan error
	mu           sync.Mutex
	unsubscribed bool
}

func (s *funcSub) Unsubscribe() {
	s.mu.Lock()
	if s.unsubscribed {
		s.mu.Unlock()
		return
	}
	s.unsubscribed = true
	close(s.unsub)
	s.mu.Unlock()
	<-s.err
}

func (s *funcSub) Err() <-chan error {
	return s.err
}

// Resubscribe calls fn repeatedly to keep a subscription established. When
// the subscription is established, Resubscribe waits for it to fail and
// calls fn again. This process repeats until Unsubscribe is called or the
// active subscription ends successfully.
//
// Resubscribe calls fn again right after each failure: no delay is applied
// between calls, and backoffMax is stored but not used.
func Resubscribe(backoffMax int, fn ResubscribeFunc) Subscription {
	s := &resubscribeSub{
		waitTime: backoffMax,
		fn:       fn,
		unsub:    make(chan struct{}),
		err:      make(chan error, 1),
	}
	go s.loop()
	return s
}

// ResubscribeFunc establishes a subscription.
type ResubscribeFunc func(context.Context) (Subscription, error)

type resubscribeSub struct {
	fn       ResubscribeFunc
	waitTime int

	mu     sync.Mutex
	sub    Subscription
	unsub  chan struct{}
	err    chan error
	closed bool
}

func (s *resubscribeSub) Unsubscribe() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.unsub)
	active := s.sub
	s.mu.Unlock()
	if active != nil {
		active.Unsubscribe()
	}
	<-s.err
}

func (s *resubscribeSub) Err() <-chan error {
	return s.err
}

func (s *resubscribeSub) loop() {
	defer close(s.err)
	ctx := context.Background()
	for {
		sub, err := s.fn(ctx)
		if err != nil {
			if s.backoff() {
				continue
			}
			return
		}
		s.mu.Lock()
		if s.closed {
			s.mu.Unlock()
			sub.Unsubscribe()
			return
		}
		s.sub = sub
		s.mu.Unlock()

		select {
		case err := <-sub.Err():
			if err == nil {
				return
			}
			if s.backoff() {
				continue
			}
			return
		case <-s.unsub:
			sub.Unsubscribe()
			return
		}
	}
}

func (s *resubscribeSub) backoff() bool {
	select {
	case <-s.unsub:
		return false
	default:
		return true
	}
}

var errSubscriptionClosed = errors.New("event: subscription closed")

// SubscriptionScope provides a facility to unsubscribe multiple subscriptions
// at once. For code that handle more than one subscription, a scope can be
// used to conveniently unsubscribe all of them with a single call. The
// example demonstrates a typical use in a larger program.
//
// The zero value is ready to use.
type SubscriptionScope struct {
	mu     sync.Mutex
	subs   map[*scopeSub]struct{}
	closed bool
}

type scopeSub struct {
	sc *SubscriptionScope
	s  Subscription
}

// Track starts tracking a subscription. If the scope is closed, Track
// returns nil. The returned subscription is a wrapper, Unsubscribing the
// wrapper removes it from the scope.
func (sc *SubscriptionScope) Track(s Subscription) Subscription {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return nil
	}
	if sc.subs == nil {
		sc.subs = make(map[*scopeSub]struct{})
	}
	ss := &scopeSub{sc, s}
	sc.subs[ss] = struct{}{}
	return ss
}

// Close calls Unsubscribe on all tracked subscriptions and prevents further
// additions to the tracked set. Calls to Track after Close return nil.
func (sc *SubscriptionScope) Close() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.closed {
		return
	}
	sc.closed = true
	for s := range sc.subs {
		s.s.Unsubscribe()
	}
	sc.subs = nil
}

// Count returns the number of tracked subscriptions. It is meant to be used
// for debugging.
func (sc *SubscriptionScope) Count() int {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return len(sc.subs)
}

func (s *scopeSub) Unsubscribe() {
	s.s.Unsubscribe()
	s.sc.mu.Lock()
	defer s.sc.mu.Unlock()
	delete(s.sc.subs, s)
}

func (s *scopeSub) Err() <-chan error {
	return s.s.Err()
}

type multiSub struct {
	unsubbed  chan struct{}
	unsubOnce sync.Once
	subs      []Subscription
	errCh     chan error
	relays    sync.WaitGroup
}

// JoinSubscriptions joins multiple subscriptions to be able to track them as
// one. A failure (non-nil error) of any of them is reported on the combined
// subscription's Err channel; one that ends without an error is not
// reported, and a failure does not unsubscribe the others. Unsubscribe ends
// all of them and closes the Err channel.
func JoinSubscriptions(subs ...Subscription) Subscription {
	s := &multiSub{
		unsubbed: make(chan struct{}),
		subs:     subs,
		errCh:    make(chan error),
	}
	s.relays.Add(len(subs))
	for _, sub := range subs {
		go s.relay(sub)
	}
	return s
}

func (s *multiSub) relay(sub Subscription) {
	defer s.relays.Done()
	var err error
	select {
	case err = <-sub.Err():
		if err == nil {
			return
		}
	case <-s.unsubbed:
		return
	}
	select {
	case s.errCh <- err:
	case <-s.unsubbed:
	}
}

func (s *multiSub) Err() <-chan error {
	return s.errCh
}

func (s *multiSub) Unsubscribe() {
	s.unsubOnce.Do(func() {
		for _, sub := range s.subs {
			sub.Unsubscribe()
		}
		close(s.unsubbed)
		s.relays.Wait()
		close(s.errCh)
	})
}

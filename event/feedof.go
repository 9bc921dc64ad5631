// Copyright 2024 The coreeth Authors
// This file is part of the coreeth library.

package event

import (
	"context"
	"reflect"
	"sync"
)

// firstSubSendCaseOf is the first subscriber slot in a FeedOf's sendCases.
// Slot 0 is the removeSub recv case (shared with Feed); slot 1 is a
// permanent placeholder recv case bound to whatever ctx.Done() channel the
// in-flight SendWithCtx call supplied (or a nil channel, which never fires,
// when no context-aware send is in progress).
const firstSubSendCaseOf = 2

// FeedOf is a generic implementation of Feed. It is used the same way
// except that the type parameter T sets the event type directly, instead of
// requiring the feed to infer it from the first Send/Subscribe call, so a
// subscriber/sender type mismatch is caught by the compiler rather than at
// runtime.
//
// The zero value is ready to use.
type FeedOf[T any] struct {
	once      sync.Once
	sendLock  chan struct{}
	removeSub chan interface{}
	sendCases caseList

	mu    sync.Mutex
	inbox caseList
}

func (f *FeedOf[T]) init() {
	f.sendLock = make(chan struct{}, 1)
	f.sendLock <- struct{}{}
	f.removeSub = make(chan interface{})
	f.sendCases = caseList{
		{Chan: reflect.ValueOf(f.removeSub), Dir: reflect.SelectRecv},
		{Chan: reflect.ValueOf((chan struct{})(nil)), Dir: reflect.SelectRecv},
	}
}

// Subscribe adds a channel to the feed. Future sends will be delivered on
// the channel until the subscription is canceled.
func (f *FeedOf[T]) Subscribe(channel chan<- T) Subscription {
	f.once.Do(f.init)

	sub := &feedOfSub[T]{feed: f, channel: channel, err: make(chan error, 1)}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.inbox = append(f.inbox, reflect.SelectCase{Dir: reflect.SelectSend, Chan: reflect.ValueOf(channel)})
	return sub
}

func (f *FeedOf[T]) remove(sub *feedOfSub[T]) {
	ch := interface{}(sub.channel)
	f.mu.Lock()
	index := f.inbox.find(ch)
	if index != -1 {
		f.inbox = f.inbox.delete(index)
		f.mu.Unlock()
		return
	}
	f.mu.Unlock()

	select {
	case f.removeSub <- ch:
	case <-f.sendLock:
		if index := f.sendCases.find(ch); index != -1 {
			f.sendCases = f.sendCases.delete(index)
		}
		f.sendLock <- struct{}{}
	}
}

// Send delivers to all subscribed channels simultaneously, blocking until
// every live subscriber has received the value. It returns the number of
// subscribers the value was sent to.
func (f *FeedOf[T]) Send(value T) (nsent int) {
	nsent, _ = f.SendWithCtx(context.Background(), false, value)
	return nsent
}

// SendWithCtx delivers value like Send, but when drop is true, any
// subscriber that still hasn't accepted the value once ctx is canceled is
// unsubscribed (its channel closed) instead of left blocking the sender
// forever. This matches how a miner's pending-block builder feeds new
// transactions to listeners without letting one stalled consumer wedge block
// production. It returns the number sent and the number dropped.
func (f *FeedOf[T]) SendWithCtx(ctx context.Context, drop bool, value T) (nsent, ndropped int) {
	f.once.Do(f.init)
	rvalue := reflect.ValueOf(value)
	<-f.sendLock

	f.mu.Lock()
	f.sendCases = append(f.sendCases, f.inbox...)
	f.inbox = nil
	f.mu.Unlock()

	if drop {
		f.sendCases[1].Chan = reflect.ValueOf(ctx.Done())
	} else {
		f.sendCases[1].Chan = reflect.ValueOf((chan struct{})(nil))
	}
	for i := firstSubSendCaseOf; i < len(f.sendCases); i++ {
		f.sendCases[i].Send = rvalue
	}

	cases := f.sendCases
	for {
		for i := firstSubSendCaseOf; i < len(cases); i++ {
			if cases[i].Chan.TrySend(rvalue) {
				nsent++
				cases = cases.deactivate(i)
				i--
			}
		}
		if len(cases) == firstSubSendCaseOf {
			break
		}

		chosen, recv, _ := reflect.Select(cases)
		switch {
		case chosen == 0:
			index := f.sendCases.find(recv.Interface())
			if index != -1 {
				f.sendCases = f.sendCases.delete(index)
			}
			if index >= 0 && index < len(cases) {
				cases = f.sendCases[:len(cases)-1]
			}
		case drop && chosen == 1:
			for i := len(cases) - 1; i >= firstSubSendCaseOf; i-- {
				cases[i].Chan.Close()
				if index := f.sendCases.find(cases[i].Chan.Interface()); index != -1 {
					f.sendCases = f.sendCases.delete(index)
				}
				ndropped++
			}
			cases = cases[:firstSubSendCaseOf]
		default:
			nsent++
			cases = cases.deactivate(chosen)
		}
	}

	for i := firstSubSendCaseOf; i < len(f.sendCases); i++ {
		f.sendCases[i].Send = reflect.Value{}
	}
	f.sendLock <- struct{}{}
	return nsent, ndropped
}

type feedOfSub[T any] struct {
	feed    *FeedOf[T]
	channel chan<- T
	errOnce sync.Once
	err     chan error
}

func (sub *feedOfSub[T]) Unsubscribe() {
	sub.errOnce.Do(func() {
		sub.feed.remove(sub)
		close(sub.err)
	})
}

func (sub *feedOfSub[T]) Err() <-chan error {
	return sub.err
}

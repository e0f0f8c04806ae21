package events

import (
	"context"
	"sort"
	"sync"
)

type localSub struct {
	queue string // empty for plain subscribers
	fn    func([]byte)
}

// LocalBus delivers events synchronously inside one process.
// It is used when no NATS server is configured.
type LocalBus struct {
	mu     sync.RWMutex
	nextID int
	subs   map[string]map[int]localSub
}

func NewLocalBus() *LocalBus {
	return &LocalBus{subs: make(map[string]map[int]localSub)}
}

func (b *LocalBus) Publish(_ context.Context, subject string, payload any) error {
	data, err := encode(subject, payload)
	if err != nil {
		return err
	}

	b.mu.RLock()
	ids := make([]int, 0, len(b.subs[subject]))
	for id := range b.subs[subject] {
		ids = append(ids, id)
	}
	sort.Ints(ids)

	// 每个队列组只投递给最早注册的成员
	seen := make(map[string]bool)
	handlers := make([]func([]byte), 0, len(ids))
	for _, id := range ids {
		sub := b.subs[subject][id]
		if sub.queue != "" {
			if seen[sub.queue] {
				continue
			}
			seen[sub.queue] = true
		}
		handlers = append(handlers, sub.fn)
	}
	b.mu.RUnlock()

	for _, fn := range handlers {
		fn(data)
	}
	return nil
}

func (b *LocalBus) Subscribe(subject string, fn func(data []byte)) (func(), error) {
	return b.add(subject, localSub{fn: fn}), nil
}

func (b *LocalBus) QueueSubscribe(subject, queue string, fn func(data []byte)) (func(), error) {
	return b.add(subject, localSub{queue: queue, fn: fn}), nil
}

func (b *LocalBus) add(subject string, sub localSub) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.subs[subject] == nil {
		b.subs[subject] = make(map[int]localSub)
	}
	id := b.nextID
	b.nextID++
	b.subs[subject][id] = sub

	return func() {
		b.mu.Lock()
		delete(b.subs[subject], id)
		b.mu.Unlock()
	}
}

func (b *LocalBus) Close() {
	b.mu.Lock()
	b.subs = make(map[string]map[int]localSub)
	b.mu.Unlock()
}

package feed

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// FetchFunc loads one snapshot
type FetchFunc[T any] func(ctx context.Context) (T, error)

// Poller runs a fetch on every tick. Ticks do not wait for earlier fetches
// to finish; ordering is restored by the tracker.
type Poller[T any] struct {
	Name     string
	Interval time.Duration
	Fetch    FetchFunc[T]
	// OnUpdate is called for accepted results only, one call at a time. A
	// result superseded before its turn is skipped.
	OnUpdate func(T)

	tracker *Tracker[T]
	deliver sync.Mutex
	wg      sync.WaitGroup
	log     *logrus.Entry
}

// NewPoller creates a poller with its own tracker
func NewPoller[T any](name string, interval time.Duration, fetch FetchFunc[T], onUpdate func(T)) *Poller[T] {
	return &Poller[T]{
		Name:     name,
		Interval: interval,
		Fetch:    fetch,
		OnUpdate: onUpdate,
		tracker:  NewTracker[T](),
		log:      logrus.WithField("poller", name),
	}
}

// Tracker exposes the poller's tracker
func (p *Poller[T]) Tracker() *Tracker[T] {
	return p.tracker
}

// Run fetches immediately and then on every tick until ctx is done. It waits
// for in-flight fetches before returning.
func (p *Poller[T]) Run(ctx context.Context) {
	p.log.WithField("interval", p.Interval).Info("Poller started")

	ticker := time.NewTicker(p.Interval)
	defer ticker.Stop()

	p.Trigger(ctx)
	for {
		select {
		case <-ctx.Done():
			p.wg.Wait()
			p.log.Info("Poller stopped")
			return
		case <-ticker.C:
			p.Trigger(ctx)
		}
	}
}

// Trigger starts one fetch in its own goroutine
func (p *Poller[T]) Trigger(ctx context.Context) {
	gen := p.tracker.Begin()
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.poll(ctx, gen)
	}()
}

// Wait blocks until every triggered fetch has finished
func (p *Poller[T]) Wait() {
	p.wg.Wait()
}

func (p *Poller[T]) poll(ctx context.Context, gen Generation) {
	value, err := p.Fetch(ctx)
	if err != nil {
		p.log.WithError(err).WithField("generation", gen).Warn("Poll failed")
		return
	}

	if !p.tracker.Commit(gen, value) {
		p.log.WithField("generation", gen).Debug("Discarded stale response")
		return
	}

	if p.OnUpdate == nil {
		return
	}

	p.deliver.Lock()
	defer p.deliver.Unlock()
	if p.tracker.Committed() != gen {
		p.log.WithField("generation", gen).Debug("Skipped superseded update")
		return
	}
	p.OnUpdate(value)
}

package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/yeremiapane/table-order/utils"
)

// Poller runs Task right away and then every Interval until Stop is called
// or the context passed to Start ends.
type Poller struct {
	Name     string
	Interval time.Duration
	Task     func(ctx context.Context) error
	OnError  func(err error)

	StopChan chan struct{}
	stopOnce sync.Once
	started  atomic.Bool
	done     chan struct{}
}

func NewPoller(name string, interval time.Duration, task func(ctx context.Context) error) *Poller {
	return &Poller{
		Name:     name,
		Interval: interval,
		Task:     task,
		StopChan: make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (p *Poller) Start(ctx context.Context) {
	if !p.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(p.done)
		p.run(ctx)

		ticker := time.NewTicker(p.Interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				p.run(ctx)
			case <-p.StopChan:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the loop and waits for a running Task to return. It is safe to
// call more than once.
func (p *Poller) Stop() {
	p.stopOnce.Do(func() { close(p.StopChan) })
	if p.started.Load() {
		<-p.done
	}
}

// Done is closed once the loop has exited.
func (p *Poller) Done() <-chan struct{} {
	return p.done
}

func (p *Poller) run(ctx context.Context) {
	if err := p.Task(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		utils.ErrorLogger.Printf("Poller %s: %v", p.Name, err)
		if p.OnError != nil {
			p.OnError(err)
		}
	}
}

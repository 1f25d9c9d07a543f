package clock

import (
	"sync"
	"time"
)

// Fake is a deterministic Clock for tests. Time stands still until
// Advance or Set is called; Tick delivers a tick to every ticker
// created from this clock. Safe for concurrent use.
type Fake struct {
	mu      sync.Mutex
	current time.Time
	tickers []chan time.Time
}

// NewFake returns a Fake initialized to the given time.
func NewFake(initial time.Time) *Fake {
	return &Fake{current: initial}
}

// Now returns the fake current time.
func (f *Fake) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.current
}

// Advance moves the fake time forward by d.
func (f *Fake) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = f.current.Add(d)
}

// Set pins the fake time to t.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.current = t
}

// NewTicker returns a Ticker that fires only when Tick is called.
func (f *Fake) NewTicker(d time.Duration) *Ticker {
	if d <= 0 {
		panic("non-positive interval for NewTicker")
	}
	ch := make(chan time.Time, 1)
	f.mu.Lock()
	f.tickers = append(f.tickers, ch)
	f.mu.Unlock()
	return &Ticker{C: ch, stop: func() {}}
}

// Tick delivers the current time to all tickers. Ticks that would
// block are dropped, matching time.Ticker behavior.
func (f *Fake) Tick() {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, ch := range f.tickers {
		select {
		case ch <- f.current:
		default:
		}
	}
}

package pipeline

import "sync"

// Progress counts settled uploads. Inc is the only mutation; each call
// publishes the new count while holding the lock, so subscribers see a
// non-decreasing sequence.
type Progress struct {
	mu      sync.Mutex
	done    int
	total   int
	publish func(done, total int)
}

func NewProgress(total int, publish func(done, total int)) *Progress {
	if publish == nil {
		publish = func(int, int) {}
	}
	return &Progress{total: total, publish: publish}
}

// Start publishes the initial 0/total reading.
func (p *Progress) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.publish(p.done, p.total)
}

func (p *Progress) Inc() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.done++
	p.publish(p.done, p.total)
	return p.done
}

func (p *Progress) Done() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.done
}

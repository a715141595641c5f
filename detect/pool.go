package detect

import (
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/vistream/vistream/vision"
)

// Pool maintains a fixed set of detector instances and a FIFO queue of
// requests waiting for one. Detection calls block until an instance is free.
type Pool struct {
	mu sync.Mutex
	cond *sync.Cond
	detectors []Detector
	idle []Detector
	queue []int
	nextTicket int
	closed bool
}

func NewPool(n int, factory func() (Detector, error)) (*Pool, error) {
	p := &Pool{}
	p.cond = sync.NewCond(&p.mu)
	for i := 0; i < n; i++ {
		d, err := factory()
		if err != nil {
			p.Close()
			return nil, err
		}
		p.detectors = append(p.detectors, d)
		p.idle = append(p.idle, d)
	}

	// periodically report queue positions while requests are waiting
	go func() {
		for {
			time.Sleep(5*time.Second)
			p.mu.Lock()
			if p.closed {
				p.mu.Unlock()
				return
			}
			p.mu.Unlock()
			p.logQueue()
		}
	}()

	return p, nil
}

func (p *Pool) logQueue() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.queue) == 0 {
		return
	}
	log.Printf("[pool] %d requests waiting for %d detectors", len(p.queue), len(p.detectors))
	for i, ticket := range p.queue {
		log.Printf("[pool] request %d: position in queue is %d", ticket, i)
	}
}

// acquire blocks until this caller is at the head of the queue and an idle
// detector exists.
func (p *Pool) acquire() Detector {
	p.mu.Lock()
	defer p.mu.Unlock()
	ticket := p.nextTicket
	p.nextTicket++
	p.queue = append(p.queue, ticket)
	for {
		if p.closed {
			return nil
		}
		if len(p.idle) > 0 && p.queue[0] == ticket {
			break
		}
		p.cond.Wait()
	}
	n := copy(p.queue[0:], p.queue[1:])
	p.queue = p.queue[0:n]
	d := p.idle[len(p.idle)-1]
	p.idle = p.idle[0:len(p.idle)-1]
	p.cond.Broadcast()
	return d
}

func (p *Pool) release(d Detector) {
	p.mu.Lock()
	if !p.closed {
		p.idle = append(p.idle, d)
	}
	p.cond.Broadcast()
	p.mu.Unlock()
}

func (p *Pool) InputDims() [2]int {
	if len(p.detectors) == 0 {
		return [2]int{}
	}
	return p.detectors[0].InputDims()
}

func (p *Pool) Categories() []string {
	if len(p.detectors) == 0 {
		return nil
	}
	return p.detectors[0].Categories()
}

func (p *Pool) Detect(images []vision.Image) ([][]vision.Detection, error) {
	d := p.acquire()
	if d == nil {
		return nil, fmt.Errorf("pool is closed")
	}
	defer p.release(d)
	return d.Detect(images)
}

func (p *Pool) Close() {
	p.mu.Lock()
	p.closed = true
	detectors := p.detectors
	p.detectors = nil
	p.idle = nil
	p.cond.Broadcast()
	p.mu.Unlock()
	for _, d := range detectors {
		d.Close()
	}
}

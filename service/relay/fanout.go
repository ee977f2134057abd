package relay

import (
	"sync"

	"github.com/sybui2004/SeaU-sub001/tools/safe"
)

type fanoutJob struct {
	clients []*Client
	payload []byte
}

// Fanout spreads one payload over many client queues on a small worker pool,
// so a wide presence broadcast never stalls the read loop that triggered it.
// Enqueueing per client is non-blocking; a slow client loses the frame, the
// rest of the batch is unaffected.
type Fanout struct {
	jobs      chan fanoutJob
	done      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

func NewFanout(workers, queue int) *Fanout {
	if workers <= 0 {
		workers = 4
	}
	if queue <= 0 {
		queue = 1024
	}
	f := &Fanout{
		jobs: make(chan fanoutJob, queue),
		done: make(chan struct{}),
	}
	f.wg.Add(workers)
	for i := 0; i < workers; i++ {
		safe.SafeGo(func() {
			defer f.wg.Done()
			for {
				select {
				case <-f.done:
					return
				case job := <-f.jobs:
					for _, c := range job.clients {
						c.Enqueue(job.payload)
					}
				}
			}
		})
	}
	return f
}

// Broadcast queues one delivery batch. Drops the whole batch if the pool
// queue itself is saturated; presence snapshots are self-healing on the
// next announce/forget, so backpressure beats blocking here. Safe to call
// concurrently with Close: disconnect broadcasts still race in from read
// loops while the gateway shuts down, and they must land as no-ops.
func (f *Fanout) Broadcast(clients []*Client, payload []byte) {
	if len(clients) == 0 || len(payload) == 0 {
		return
	}
	select {
	case <-f.done:
		return
	default:
	}
	select {
	case f.jobs <- fanoutJob{clients: clients, payload: payload}:
	case <-f.done:
	default:
	}
}

// Close stops the workers; jobs not yet picked up are dropped. The jobs
// channel is never closed, so late Broadcast calls cannot panic.
func (f *Fanout) Close() {
	f.closeOnce.Do(func() { close(f.done) })
	f.wg.Wait()
}

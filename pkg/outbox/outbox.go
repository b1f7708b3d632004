package outbox

import "sync"

// Outbox runs jobs one at a time in the order they were pushed. It has no
// goroutine of its own: whoever calls Flush first drains the queue, jobs
// pushed meanwhile included. The zero value is ready to use.
type Outbox struct {
	mu       sync.Mutex
	jobs     []func()
	flushing bool
}

// Push queues job. Pushing while holding an outer lock makes the run order
// follow the order in which that lock was taken.
func (o *Outbox) Push(job func()) {
	o.mu.Lock()
	o.jobs = append(o.jobs, job)
	o.mu.Unlock()
}

// Flush runs queued jobs until none are left. It returns at once when
// another goroutine is already flushing; that goroutine runs the jobs.
func (o *Outbox) Flush() {
	o.mu.Lock()
	if o.flushing {
		o.mu.Unlock()
		return
	}
	o.flushing = true

	for len(o.jobs) > 0 {
		job := o.jobs[0]
		o.jobs[0] = nil
		o.jobs = o.jobs[1:]
		o.mu.Unlock()

		job()

		o.mu.Lock()
	}

	o.flushing = false
	o.mu.Unlock()
}

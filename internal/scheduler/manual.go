package scheduler

import (
	"sort"
	"sync"
	"time"

	"github.com/bft-labs/devwrite/internal/ports"
)

// Manual is a Scheduler driven explicitly by the caller on virtual time.
// Nothing runs until RunPending, Advance or RunJobs is called. Post and Go
// are safe to call from any goroutine; the driving methods are not meant to
// be called concurrently with each other.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	queue   []func()
	timers  []*manualTimer
	jobs    []*Job
	seq     int
	stopped bool
}

// NewManual creates a manual scheduler whose clock starts at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the virtual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Post queues fn.
func (m *Manual) Post(fn func()) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.stopped {
		return false
	}
	m.queue = append(m.queue, fn)
	return true
}

// AfterFunc schedules fn at Now()+d.
func (m *Manual) AfterFunc(d time.Duration, fn func()) ports.Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, at: m.now.Add(d), seq: m.seq, fn: fn}
	m.timers = append(m.timers, t)
	return t
}

// Go records a job. The work does not run until RunJobs or Job.Run.
func (m *Manual) Go(work func() error, done func(err error)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs = append(m.jobs, &Job{owner: m, work: work, done: done})
}

// Stop makes further posts fail, like Loop.Stop.
func (m *Manual) Stop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopped = true
}

// RunPending runs queued callbacks, including ones queued while running,
// until the queue is empty. It returns how many ran.
func (m *Manual) RunPending() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return n
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()

		fn()
		n++
	}
}

// Advance moves the clock forward by d, firing due timers in deadline order
// and draining the queue after each one.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	m.RunPending()
	for {
		m.mu.Lock()
		t := m.nextDue(target)
		if t == nil {
			m.now = target
			m.mu.Unlock()
			break
		}
		m.now = t.at
		m.removeTimer(t)
		m.mu.Unlock()

		t.fn()
		m.RunPending()
	}
	m.RunPending()
}

// RunJobs runs every recorded job to completion and drains the queue.
func (m *Manual) RunJobs() int {
	n := 0
	for {
		m.mu.Lock()
		if len(m.jobs) == 0 {
			m.mu.Unlock()
			break
		}
		j := m.jobs[0]
		m.mu.Unlock()

		j.Run()
		n++
	}
	m.RunPending()
	return n
}

// Jobs returns the jobs that have not run yet.
func (m *Manual) Jobs() []*Job {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*Job(nil), m.jobs...)
}

// PendingTimers returns how many timers are armed.
func (m *Manual) PendingTimers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.timers)
}

// NextDeadline returns the earliest armed timer deadline.
func (m *Manual) NextDeadline() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t := m.nextDue(time.Time{})
	if t == nil {
		return time.Time{}, false
	}
	return t.at, true
}

// nextDue returns the earliest timer due at or before limit; a zero limit
// means no limit. Must be called with mu held.
func (m *Manual) nextDue(limit time.Time) *manualTimer {
	if len(m.timers) == 0 {
		return nil
	}
	sort.Slice(m.timers, func(i, j int) bool {
		if m.timers[i].at.Equal(m.timers[j].at) {
			return m.timers[i].seq < m.timers[j].seq
		}
		return m.timers[i].at.Before(m.timers[j].at)
	})
	t := m.timers[0]
	if !limit.IsZero() && t.at.After(limit) {
		return nil
	}
	return t
}

func (m *Manual) removeTimer(t *manualTimer) {
	for i, c := range m.timers {
		if c == t {
			m.timers = append(m.timers[:i], m.timers[i+1:]...)
			return
		}
	}
}

func (m *Manual) removeJob(j *Job) bool {
	for i, c := range m.jobs {
		if c == j {
			m.jobs = append(m.jobs[:i], m.jobs[i+1:]...)
			return true
		}
	}
	return false
}

type manualTimer struct {
	owner *Manual
	at    time.Time
	seq   int
	fn    func()
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	for _, c := range t.owner.timers {
		if c == t {
			t.owner.removeTimer(t)
			return true
		}
	}
	return false
}

// Job is background work recorded by Manual.Go.
type Job struct {
	owner *Manual
	work  func() error
	done  func(err error)
}

// Run executes the work now and queues its completion. Running a job twice
// is a no-op.
func (j *Job) Run() {
	j.owner.mu.Lock()
	ok := j.owner.removeJob(j)
	j.owner.mu.Unlock()
	if !ok {
		return
	}

	err := j.work()
	j.owner.Post(func() { j.done(err) })
}

var _ ports.Scheduler = (*Manual)(nil)

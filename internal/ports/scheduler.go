package ports

import "time"

// Scheduler is a single-threaded execution context.
// Every callback it runs (posted functions, timer callbacks, job
// completions) runs on the same goroutine, one at a time, in order.
type Scheduler interface {
	// Now returns the scheduler's current time.
	Now() time.Time

	// Post queues fn to run on the scheduler. It returns false when the
	// scheduler no longer runs callbacks, in which case fn is dropped.
	Post(fn func()) bool

	// AfterFunc runs fn on the scheduler once d has elapsed.
	AfterFunc(d time.Duration, fn func()) Timer

	// Go runs work outside the scheduler and posts done(err) back onto it.
	Go(work func() error, done func(err error))
}

// Timer is a handle to a callback scheduled with AfterFunc.
type Timer interface {
	// Stop prevents the callback from running. It returns false if the
	// callback already ran or was already stopped.
	Stop() bool
}

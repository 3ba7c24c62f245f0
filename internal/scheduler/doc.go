// Package scheduler provides the single-threaded execution contexts the
// dispatcher runs on.
//
// [Loop] runs every callback on one goroutine in FIFO order; timers and
// background job completions are funneled into the same queue, so state
// owned by loop callbacks never needs a lock. [Manual] implements the same
// contract on virtual time for deterministic tests.
package scheduler

package rct

import (
	"context"
	"errors"
	"time"

	"github.com/Baumus/rctgolib/internal/coarsetime"
)

// job is one unit of work on the connection's FIFO queue. Its done
// channel is the future resolved by the worker.
type job struct {
	ctx  context.Context
	fn   func() (any, error)
	done chan jobResult
}

type jobResult struct {
	value any
	err   error
}

// submit appends a job to the queue and starts the worker if none is
// running. It never blocks; the returned job's wait resolves the result.
func (c *Connection) submit(ctx context.Context, fn func() (any, error)) (*job, error) {
	j := &job{ctx: ctx, fn: fn, done: make(chan jobResult, 1)}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	c.queue = append(c.queue, j)
	c.activeJobs++
	if !c.processing {
		c.processing = true
		go c.process()
	}
	c.mu.Unlock()
	return j, nil
}

// wait blocks until the job resolves. Cancelling the context fails this
// job's future without affecting sibling jobs; the worker skips a
// cancelled job when it reaches it.
func (j *job) wait() (any, error) {
	select {
	case res := <-j.done:
		return res.value, res.err
	case <-j.ctx.Done():
		return nil, j.ctx.Err()
	}
}

// enqueueWait is submit followed by wait.
func (c *Connection) enqueueWait(ctx context.Context, fn func() (any, error)) (any, error) {
	j, err := c.submit(ctx, fn)
	if err != nil {
		return nil, err
	}
	return j.wait()
}

// process drains the queue, running exactly one job at a time. It exits
// when the queue is empty, handing the processing flag back so the next
// submit restarts it.
func (c *Connection) process() {
	for {
		c.mu.Lock()
		if len(c.queue) == 0 {
			c.processing = false
			shouldClose := c.pendingClose && c.activeJobs == 0
			if !shouldClose {
				c.resetIdleTimerLocked()
			}
			c.mu.Unlock()
			if shouldClose {
				c.shutdown()
			}
			return
		}
		j := c.queue[0]
		c.queue = c.queue[1:]
		c.mu.Unlock()

		res := c.runJob(j)
		j.done <- res

		if res.err != nil && !IsRecoverable(res.err) {
			c.stats.recordError()
			var te *TransportError
			if errors.As(res.err, &te) && !te.Transient {
				// A dead transport invalidates the whole connection.
				c.shutdown()
			}
		}

		c.mu.Lock()
		c.activeJobs--
		c.lastUsed = coarsetime.Now()
		c.resetIdleTimerLocked()
		c.mu.Unlock()
	}
}

func (c *Connection) runJob(j *job) jobResult {
	if err := j.ctx.Err(); err != nil {
		return jobResult{err: err}
	}
	if c.breaker != nil {
		v, err := c.breaker.Execute(j.fn)
		return jobResult{value: v, err: err}
	}
	v, err := j.fn()
	return jobResult{value: v, err: err}
}

// withRetry runs one attempt of fn per iteration of the backoff schedule.
// Only recoverable errors consume the retry budget; terminal errors
// surface immediately. Exhaustion wraps the last recoverable cause.
func (c *Connection) withRetry(ctx context.Context, fn func() (any, error)) (any, error) {
	delay := c.cfg.InitialBackoff
	var lastErr error

	for attempt := 1; attempt <= c.cfg.MaxRetries; attempt++ {
		v, err := fn()
		if err == nil {
			return v, nil
		}
		if !IsRecoverable(err) {
			return nil, err
		}
		lastErr = err
		if attempt == c.cfg.MaxRetries {
			break
		}

		c.stats.recordRetry()
		c.logger.Debug().Err(err).Int("attempt", attempt).Dur("backoff", delay).Msg("retrying after recoverable error")
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
		delay = time.Duration(float64(delay) * c.cfg.BackoffMultiplier)
	}
	return nil, &RetryBudgetError{Attempts: c.cfg.MaxRetries, Last: lastErr}
}

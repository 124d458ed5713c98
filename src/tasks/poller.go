// Package tasks polls asynchronous platform tasks to a terminal state or a
// bounded timeout ceiling.
package tasks

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"volume-reconcile/src/inventory"
)

// Design-default polling values. Deployments may extend the reconcile
// ceiling since datastore reconciliation is a heavier operation.
const (
	DefaultInterval         = 5 * time.Second
	DefaultDeleteCeiling    = 300 * time.Second
	DefaultReconcileCeiling = 300 * time.Second
)

// Result is the three-way outcome of awaiting a task. Timeout is distinct
// from failure: a timed-out task may still complete remotely.
type Result int

const (
	Success Result = iota
	Failed
	Timeout
)

func (r Result) String() string {
	switch r {
	case Success:
		return "success"
	case Failed:
		return "failed"
	case Timeout:
		return "timeout"
	default:
		return fmt.Sprintf("result(%d)", int(r))
	}
}

// Outcome carries the result of one awaited task plus the platform's error
// detail when it failed.
type Outcome struct {
	Result Result
	Detail string
}

// Poller awaits submitted tasks. It never submits work itself and never
// cancels in-flight work; callers confirm eligibility before submitting
// anything destructive.
type Poller struct {
	Client   inventory.Client
	Interval time.Duration
	Log      *slog.Logger
}

// NewPoller returns a poller with the design-default interval.
func NewPoller(c inventory.Client, log *slog.Logger) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{Client: c, Interval: DefaultInterval, Log: log.With(slog.String("component", "poller"))}
}

// Await polls handle at the fixed interval until it reaches a terminal
// state or ceiling elapses. Each poll is separated by the full interval;
// there is no busy spin. The returned error is non-nil only for provider
// connectivity failures or context cancellation, both of which abort the
// run.
func (p *Poller) Await(ctx context.Context, handle inventory.TaskHandle, ceiling time.Duration) (Outcome, error) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	deadline := time.Now().Add(ceiling)
	last := inventory.TaskState("")

	for {
		st, err := p.Client.TaskStatus(handle)
		if err != nil {
			return Outcome{}, err
		}
		if st.State != last {
			p.Log.Debug("task state", slog.String("handle", string(handle)), slog.String("state", string(st.State)))
			last = st.State
		}
		switch st.State {
		case inventory.TaskSuccess:
			return Outcome{Result: Success}, nil
		case inventory.TaskFailed:
			return Outcome{Result: Failed, Detail: st.Err}, nil
		}

		if time.Now().Add(interval).After(deadline) {
			p.Log.Warn("task did not reach a terminal state before ceiling; leaving it to complete remotely",
				slog.String("handle", string(handle)), slog.Duration("ceiling", ceiling))
			return Outcome{Result: Timeout, Detail: fmt.Sprintf("task %s still %s after %s", handle, st.State, ceiling)}, nil
		}
		select {
		case <-ctx.Done():
			return Outcome{}, fmt.Errorf("awaiting task %s: %w", handle, ctx.Err())
		case <-time.After(interval):
		}
	}
}

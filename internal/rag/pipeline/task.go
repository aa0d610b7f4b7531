package pipeline

import "context"

// Task is one pipeline run. Background is set when the run had to wait for another one.
type Task struct {
	Background bool

	done  chan struct{}
	stats Stats
	err   error
}

func (t *Task) Done() <-chan struct{} {
	return t.done
}

func (t *Task) Wait(ctx context.Context) (Stats, error) {
	select {
	case <-t.done:
		return t.stats, t.err
	case <-ctx.Done():
		return Stats{}, ctx.Err()
	}
}

// Run executes the pipeline in the caller's goroutine when it is idle. While another run
// is in progress it returns at once with a background task that runs afterwards, detached
// from the caller's cancellation.
func (p *Pipeline) Run(ctx context.Context) *Task {
	t := &Task{done: make(chan struct{})}
	if p.running.TryLock() {
		defer p.running.Unlock()
		t.stats, t.err = p.process(ctx)
		close(t.done)
		return t
	}

	p.logger.FromContext(ctx).Warn("Pipeline already running, queueing as a background task")
	t.Background = true
	bg := context.WithoutCancel(ctx)
	go func() {
		defer close(t.done)
		t.stats, t.err = p.ProcessAll(bg)
	}()
	return t
}

package widget

import (
	"context"
	"time"
)

// Start publishes the initial zero count, fetches the count once right
// away and then every poll interval until Stop is called or ctx ends.
// Starting a running widget is a no-op.
func (w *Widget) Start(ctx context.Context) {
	w.loopMu.Lock()
	defer w.loopMu.Unlock()

	if w.cancel != nil {
		return
	}

	loopCtx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	w.update(func(s *state) { s.loop = LoopPolling })
	w.log.WithField("interval", w.pollInterval).Info("notification polling started")

	go w.poll(loopCtx, w.done)
}

// Stop ends polling and drops every listener. It is safe to call more
// than once.
func (w *Widget) Stop() {
	w.loopMu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.loopMu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done

	w.mu.Lock()
	w.st.loop = LoopIdle
	w.listeners = make(map[int]Listener)
	w.mu.Unlock()

	w.log.Info("notification polling stopped")
}

// poll runs the repeating count fetch. Each tick stands alone: a failed
// fetch is not retried early and does not slow the schedule.
func (w *Widget) poll(ctx context.Context, done chan struct{}) {
	defer close(done)

	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	w.RefreshCount(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.RefreshCount(ctx)
		}
	}
}

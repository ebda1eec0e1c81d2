package engine

// startDebounceTimer arms the completion trigger. Each text change while
// typing restarts it, so a request only fires once the editor goes quiet.
func (e *Engine) startDebounceTimer() {
	e.stopDebounceTimer()

	e.debounceTimer = e.clock.AfterFunc(e.cfg.Debounce, func() {
		e.mu.RLock()
		stopped := e.stopped
		mainCtx := e.mainCtx
		e.mu.RUnlock()
		if stopped || mainCtx == nil {
			return
		}

		select {
		case e.eventChan <- Event{Type: EventDebounceTimeout}:
		case <-mainCtx.Done():
		}
	})
}

func (e *Engine) stopDebounceTimer() {
	if e.debounceTimer != nil {
		e.debounceTimer.Stop()
		e.debounceTimer = nil
	}
}

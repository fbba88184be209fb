package refresh

// SessionListener returns a channel that receives the session-ended signal,
// plus an unsubscribe func. Delivery of the terminal event is guaranteed.
func (c *Coordinator) SessionListener() (<-chan SessionEvent, func()) {
	c.muListeners.Lock()
	defer c.muListeners.Unlock()

	ch := make(chan SessionEvent, 1)
	c.listeners = append(c.listeners, ch)

	unsub := func() {
		c.muListeners.Lock()
		defer c.muListeners.Unlock()

		out := c.listeners[:0]
		for _, l := range c.listeners {
			if l != ch {
				out = append(out, l)
			}
		}
		c.listeners = out
		close(ch)
	}

	return ch, unsub
}

func (c *Coordinator) emit(ev SessionEvent) {
	c.muListeners.Lock()
	listeners := append([]chan SessionEvent(nil), c.listeners...)
	c.muListeners.Unlock()

	for _, ch := range listeners {
		// Session end must be delivered.
		// Avoid deadlock: do NOT hold muListeners while sending.
		select {
		case ch <- ev:
		default:
			// Buffer full: fall back to blocking send in a goroutine.
			go func(c chan SessionEvent, e SessionEvent) {
				// Best effort: if unsub closed the channel, recover.
				defer func() { _ = recover() }()
				c <- e
			}(ch, ev)
		}
	}
}

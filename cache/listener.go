package cache

// Subscribe returns a channel of state transitions for a key and an
// unsubscribe func. Settled states (Fresh, Error) are always delivered;
// intermediate ones (Loading, Stale) may be dropped when the subscriber is
// slow.
func (c *Cache) Subscribe(key Key) (<-chan Notification, func()) {
	c.muListeners.Lock()
	defer c.muListeners.Unlock()

	ch := make(chan Notification, 10)
	ks := key.String()
	c.listenersByKey[ks] = append(c.listenersByKey[ks], ch)

	unsub := func() {
		c.muListeners.Lock()
		defer c.muListeners.Unlock()

		chans := c.listenersByKey[ks]
		out := chans[:0]
		for _, ch2 := range chans {
			if ch2 != ch {
				out = append(out, ch2)
			}
		}
		if len(out) == 0 {
			delete(c.listenersByKey, ks)
		} else {
			c.listenersByKey[ks] = out
		}
		close(ch)
	}

	return ch, unsub
}

func (c *Cache) hasListeners(key Key) bool {
	c.muListeners.Lock()
	defer c.muListeners.Unlock()
	return len(c.listenersByKey[key.String()]) > 0
}

// publish is the unified notification function.
func (c *Cache) publish(key Key, state EntryState, err error) {
	n := Notification{Key: key.String(), State: state, Err: err}
	c.status.Set(n.Key, n)

	c.muListeners.Lock()
	listeners := append([]chan Notification(nil), c.listenersByKey[n.Key]...)
	c.muListeners.Unlock()

	isSettled := state == StateFresh || state == StateError

	for _, ch := range listeners {
		if isSettled {
			// Ensure settled events are delivered.
			// Avoid deadlock: do NOT hold muListeners while sending.
			select {
			case ch <- n:
			default:
				// Buffer full: fall back to blocking send in a goroutine.
				// This guarantees delivery without stalling the publisher.
				go func(ch2 chan Notification, n2 Notification) {
					// Best effort: if unsub closed the channel, recover.
					defer func() { _ = recover() }()
					ch2 <- n2
				}(ch, n)
			}
		} else {
			// Transitional updates can be dropped
			select {
			case ch <- n:
			default:
			}
		}
	}
}

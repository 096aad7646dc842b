package store

// listeners keeps removal callbacks per cause in registration order.
//
// While held, notifications are queued instead of delivered so that a
// wrapping lock can be released before any listener runs.
type listeners[V any] struct {
	byCause map[RemovalCause][]RemovalListener[V]

	held    bool
	pending pendingNotices[V]
}

// notice is one queued notification. fns is the listener list at the time
// of the removal.
type notice[V any] struct {
	fns   []RemovalListener[V]
	value V
}

type pendingNotices[V any] []notice[V]

func (p pendingNotices[V]) dispatch() {
	for _, n := range p {
		for _, fn := range n.fns {
			fn(n.value)
		}
	}
}

func newListeners[V any]() *listeners[V] {
	return &listeners[V]{byCause: make(map[RemovalCause][]RemovalListener[V])}
}

func (l *listeners[V]) add(cause RemovalCause, fn RemovalListener[V]) {
	if fn == nil {
		return
	}
	l.byCause[cause] = append(l.byCause[cause], fn)
}

func (l *listeners[V]) notify(cause RemovalCause, v V) {
	fns := l.byCause[cause]
	if len(fns) == 0 {
		return
	}
	if l.held {
		l.pending = append(l.pending, notice[V]{fns: fns[:len(fns):len(fns)], value: v})
		return
	}
	for _, fn := range fns {
		fn(v)
	}
}

func (l *listeners[V]) hold() {
	l.held = true
}

// release stops queueing and hands back what was queued.
func (l *listeners[V]) release() pendingNotices[V] {
	pending := l.pending
	l.held, l.pending = false, nil
	return pending
}

func (l *listeners[V]) copy() *listeners[V] {
	c := newListeners[V]()
	for cause, fns := range l.byCause {
		c.byCause[cause] = append([]RemovalListener[V](nil), fns...)
	}
	return c
}

// notificationQueue is implemented by stores whose listener calls can be
// postponed while a wrapper holds its lock.
type notificationQueue[V any] interface {
	holdNotifications()
	releaseNotifications() pendingNotices[V]
}

func (m *Memory[V]) holdNotifications() {
	m.listeners.hold()
}

func (m *Memory[V]) releaseNotifications() pendingNotices[V] {
	return m.listeners.release()
}

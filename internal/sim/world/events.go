package world

// eventRing keeps the most recent events in a fixed-size ring.
type eventRing struct {
	buf   []Event
	next  int
	count int
}

func newEventRing(size int) *eventRing {
	return &eventRing{buf: make([]Event, size)}
}

func (r *eventRing) add(e Event) {
	r.buf[r.next] = e
	r.next = (r.next + 1) % len(r.buf)
	if r.count < len(r.buf) {
		r.count++
	}
}

// list returns events oldest first.
func (r *eventRing) list() []Event {
	out := make([]Event, 0, r.count)
	start := r.next - r.count
	if start < 0 {
		start += len(r.buf)
	}
	for i := 0; i < r.count; i++ {
		out = append(out, r.buf[(start+i)%len(r.buf)])
	}
	return out
}

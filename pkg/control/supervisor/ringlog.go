package supervisor

import "sync"

// ringLog is a bounded, append-only line buffer. When capacity is exceeded
// the oldest lines are dropped. A max of 0 keeps every line.
type ringLog struct {
	mu      sync.Mutex
	max     int
	lines   []string
	start   int
	dropped int
}

func newRingLog(max int) *ringLog {
	return &ringLog{max: max}
}

func (r *ringLog) Append(line string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.max <= 0 {
		r.lines = append(r.lines, line)
		return
	}

	if len(r.lines) < r.max {
		r.lines = append(r.lines, line)
		return
	}
	r.lines[r.start] = line
	r.start = (r.start + 1) % r.max
	r.dropped++
}

// Lines returns a snapshot in append order.
func (r *ringLog) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.lines) == 0 {
		return []string{}
	}
	out := make([]string, 0, len(r.lines))
	for i := 0; i < len(r.lines); i++ {
		out = append(out, r.lines[(r.start+i)%len(r.lines)])
	}
	return out
}

// Tail returns up to n of the most recent lines.
func (r *ringLog) Tail(n int) []string {
	lines := r.Lines()
	if n <= 0 || len(lines) <= n {
		return lines
	}
	return lines[len(lines)-n:]
}

// Dropped reports how many lines the ring has evicted.
func (r *ringLog) Dropped() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dropped
}

package logging

import "sync"

// ringCapacity is the number of most-recent log lines retained for the
// admin stream-logs endpoint.
const ringCapacity = 500

// Ring is a bounded in-memory log buffer. It implements io.Writer so it can
// sit alongside the primary handler's stdout output via io.MultiWriter,
// giving the admin HTTP surface something to tail without standing up a
// separate log-shipping pipeline.
type Ring struct {
	mu    sync.Mutex
	lines [][]byte
	next  int
	full  bool
}

// NewRing builds an empty Ring.
func NewRing() *Ring {
	return &Ring{lines: make([][]byte, ringCapacity)}
}

// Write appends p as one ring entry. It always returns (len(p), nil); a
// logging sink must never cause the logger call site to fail.
func (r *Ring) Write(p []byte) (int, error) {
	line := append([]byte(nil), p...)

	r.mu.Lock()
	r.lines[r.next] = line
	r.next = (r.next + 1) % len(r.lines)
	if r.next == 0 {
		r.full = true
	}
	r.mu.Unlock()

	return len(p), nil
}

// Tail returns up to the last n log lines, oldest first.
func (r *Ring) Tail(n int) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var ordered [][]byte
	if r.full {
		ordered = append(ordered, r.lines[r.next:]...)
		ordered = append(ordered, r.lines[:r.next]...)
	} else {
		ordered = r.lines[:r.next]
	}

	if n > 0 && n < len(ordered) {
		ordered = ordered[len(ordered)-n:]
	}

	out := make([]string, len(ordered))
	for i, line := range ordered {
		out[i] = string(line)
	}
	return out
}

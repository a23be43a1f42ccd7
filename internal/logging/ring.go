package logging

import (
	"bytes"
	"sync"
)

const defaultRingLines = 200

// Ring keeps the most recent lines written to it. It outlives any single Log so the
// tail survives a bot restart.
type Ring struct {
	mu    sync.Mutex
	lines []string
	head  int
	full  bool
	part  []byte
}

// NewRing creates a Ring holding up to size lines.
func NewRing(size int) *Ring {
	if size <= 0 {
		size = defaultRingLines
	}
	return &Ring{lines: make([]string, size)}
}

// Write implements io.Writer. Each complete line becomes one entry; a trailing
// fragment waits for its newline. The oldest entry is overwritten once full.
func (r *Ring) Write(p []byte) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := p
	for {
		i := bytes.IndexByte(data, '\n')
		if i < 0 {
			r.part = append(r.part, data...)
			return len(p), nil
		}
		r.push(string(append(r.part, data[:i]...)))
		r.part = r.part[:0]
		data = data[i+1:]
	}
}

func (r *Ring) push(line string) {
	r.lines[r.head] = line
	r.head = (r.head + 1) % len(r.lines)
	if r.head == 0 {
		r.full = true
	}
}

// Lines returns the buffered lines, oldest first.
func (r *Ring) Lines() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.full {
		return append([]string(nil), r.lines[:r.head]...)
	}
	out := make([]string, 0, len(r.lines))
	out = append(out, r.lines[r.head:]...)
	return append(out, r.lines[:r.head]...)
}

// Len returns the number of buffered lines.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.full {
		return len(r.lines)
	}
	return r.head
}

// Capacity returns the maximum number of lines kept.
func (r *Ring) Capacity() int {
	return len(r.lines)
}

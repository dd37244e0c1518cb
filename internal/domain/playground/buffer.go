package playground

// lineBuffer keeps the most recent lines in insertion order.
// A limit of zero disables eviction.
type lineBuffer struct {
	lines   []string
	start   int
	limit   int
	dropped uint64
}

func newLineBuffer(limit int) *lineBuffer {
	if limit < 0 {
		limit = 0
	}
	return &lineBuffer{limit: limit}
}

func (b *lineBuffer) append(line string) {
	if b.limit == 0 || len(b.lines) < b.limit {
		b.lines = append(b.lines, line)
		return
	}
	b.lines[b.start] = line
	b.start = (b.start + 1) % b.limit
	b.dropped++
}

// slice returns a copy in oldest-first order.
func (b *lineBuffer) slice() []string {
	out := make([]string, len(b.lines))
	n := copy(out, b.lines[b.start:])
	copy(out[n:], b.lines[:b.start])
	return out
}

func (b *lineBuffer) reset() {
	b.lines = nil
	b.start = 0
	b.dropped = 0
}

package sensor

// HistorySize is how many readings the history keeps.
const HistorySize = 60

// history is a fixed-capacity FIFO of readings; once full, each push
// evicts the oldest entry. Not safe for concurrent use; caller must
// synchronize.
type history struct {
	buf   [HistorySize]Reading
	head  int // next write position
	count int
}

func (h *history) push(r Reading) {
	h.buf[h.head] = r
	h.head = (h.head + 1) % HistorySize
	if h.count < HistorySize {
		h.count++
	}
}

// readings returns a copy of the history, oldest first.
func (h *history) readings() []Reading {
	result := make([]Reading, h.count)
	// Oldest item is at (head - count) mod capacity
	start := (h.head - h.count + HistorySize) % HistorySize
	for i := 0; i < h.count; i++ {
		result[i] = h.buf[(start+i)%HistorySize]
	}
	return result
}

func (h *history) len() int {
	return h.count
}

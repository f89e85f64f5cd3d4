package display

import "sync"

// FakeScreen is a test double that keeps the text of a 2-line display.
type FakeScreen struct {
	mu    sync.Mutex
	lines [2][]byte
	row   uint8
	draws int
}

// ClearDisplay blanks both lines.
func (f *FakeScreen) ClearDisplay() {
	f.mu.Lock()
	f.lines = [2][]byte{}
	f.row = 0
	f.mu.Unlock()
}

// SetCursor moves to row; the column is ignored.
func (f *FakeScreen) SetCursor(col, row uint8) {
	f.mu.Lock()
	f.row = row % 2
	f.mu.Unlock()
}

// Print appends data to the current row.
func (f *FakeScreen) Print(data []byte) {
	f.mu.Lock()
	f.lines[f.row] = append(f.lines[f.row], data...)
	if f.row == 1 {
		f.draws++
	}
	f.mu.Unlock()
}

// Text returns both lines.
func (f *FakeScreen) Text() (string, string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return string(f.lines[0]), string(f.lines[1])
}

// DrawCount returns how many full redraws have completed.
func (f *FakeScreen) DrawCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.draws
}

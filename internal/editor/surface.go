// Package editor implements the text manipulation behind the post editor: trigger detection for
// @-mentions and :emoji: autocomplete, and the placeholder lifecycle of inline image uploads.
//
// Everything operates on a Surface so it can run against the real editing widget or an in-memory
// Buffer in tests.
package editor

import (
	"strings"
	"sync"
)

// Position is a caret location as zero-based line and column (in runes).
type Position struct {
	Line int
	Ch   int
}

// Surface is a text-editing widget.
type Surface interface {
	Value() string
	SetValue(text string)
	Caret() Position
	// ReplaceLine swaps the whole text of line for text, which may itself span lines.
	ReplaceLine(line int, text string)
	// Attached reports whether the surface is still mounted. Detached surfaces must not be mutated.
	Attached() bool
}

// Buffer is an in-memory Surface.
type Buffer struct {
	mu       sync.Mutex
	text     string
	caret    Position
	detached bool
}

// NewBuffer returns an attached Buffer holding text with the caret at its end.
func NewBuffer(text string) *Buffer {
	b := &Buffer{text: text}
	lines := strings.Split(text, "\n")
	last := len(lines) - 1
	b.caret = Position{Line: last, Ch: len([]rune(lines[last]))}
	return b
}

func (b *Buffer) Value() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

func (b *Buffer) SetValue(text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.text = text
}

func (b *Buffer) Caret() Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.caret
}

// SetCaret moves the caret.
func (b *Buffer) SetCaret(p Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.caret = p
}

// ReplaceLine replaces line; an out-of-range line appends a new one.
func (b *Buffer) ReplaceLine(line int, text string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	lines := strings.Split(b.text, "\n")
	if line < 0 || line >= len(lines) {
		lines = append(lines, text)
	} else {
		lines[line] = text
	}
	b.text = strings.Join(lines, "\n")
}

func (b *Buffer) Attached() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return !b.detached
}

// Detach marks the buffer as unmounted.
func (b *Buffer) Detach() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.detached = true
}

// Line returns the text of line n, or "" when out of range.
func (b *Buffer) Line(n int) string {
	lines := strings.Split(b.Value(), "\n")
	if n < 0 || n >= len(lines) {
		return ""
	}
	return lines[n]
}

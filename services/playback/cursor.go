// Package playback tracks which lyric line is active while a track plays.
// The player owns the clock: the cursor only reacts to the time samples it is given.
package playback

import (
	"karaoke-api-go/services/lrc"
	"math"
	"sync"
)

const (
	// NoIndex means no line is active yet
	NoIndex = -1

	// DefaultOffset is added to every sample so a line lights up slightly before it is sung
	DefaultOffset = 0.3
)

// IndexAt returns the last line whose time is <= t + DefaultOffset,
// or NoIndex when lines is empty or the adjusted time precedes the first line.
func IndexAt(lines []lrc.Line, t float64) int {
	return indexAt(lines, t+DefaultOffset)
}

// indexAt binary-searches a time-sorted sequence for the last entry at or before t
func indexAt(lines []lrc.Line, t float64) int {
	if len(lines) == 0 || t < lines[0].Time {
		return NoIndex
	}

	left, right := 0, len(lines)-1
	result := NoIndex
	for left <= right {
		mid := (left + right) / 2
		if lines[mid].Time <= t {
			result = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}
	return result
}

// Cursor follows one lyric sequence against an external clock.
// It never modifies the lines it was given.
type Cursor struct {
	mu       sync.Mutex
	lines    []lrc.Line
	offset   float64
	active   int
	lastTime float64
	onScroll func(index int)
}

// NewCursor creates a cursor with DefaultOffset. onScroll, if not nil, is called
// with the new index every time the active line changes.
func NewCursor(lines []lrc.Line, onScroll func(index int)) *Cursor {
	return NewCursorWithOffset(lines, DefaultOffset, onScroll)
}

// NewCursorWithOffset is NewCursor with a custom lookahead in seconds
func NewCursorWithOffset(lines []lrc.Line, offset float64, onScroll func(index int)) *Cursor {
	c := &Cursor{offset: offset, onScroll: onScroll}
	c.reset(lines)
	return c
}

func initialIndex(lines []lrc.Line) int {
	if len(lines) == 0 {
		return NoIndex
	}
	return 0
}

func (c *Cursor) reset(lines []lrc.Line) {
	c.lines = lines
	c.active = initialIndex(lines)
	c.lastTime = 0
}

// Update feeds a player time sample in seconds. The active index moves only when
// the sample lands on a different line; a sample before the first line leaves it as is.
// Seeking backwards is handled like any other sample.
func (c *Cursor) Update(currentTime float64) (index int, changed bool) {
	c.mu.Lock()
	if math.IsNaN(currentTime) || math.IsInf(currentTime, 0) {
		index = c.active
		c.mu.Unlock()
		return index, false
	}

	c.lastTime = currentTime
	next := indexAt(c.lines, currentTime+c.offset)
	if next != NoIndex && next != c.active {
		c.active = next
		changed = true
	}
	index = c.active
	onScroll := c.onScroll
	c.mu.Unlock()

	if changed && onScroll != nil {
		onScroll(index)
	}
	return index, changed
}

// ActiveIndex returns the currently active line index
func (c *Cursor) ActiveIndex() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// LastTime returns the last valid time sample
func (c *Cursor) LastTime() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastTime
}

// Reset swaps in a new sequence and starts over
func (c *Cursor) Reset(lines []lrc.Line) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reset(lines)
}

// Lines returns the sequence the cursor follows. Callers must not modify it.
func (c *Cursor) Lines() []lrc.Line {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lines
}

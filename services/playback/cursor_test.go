package playback

import (
	"karaoke-api-go/services/lrc"
	"math"
	"testing"
)

// demoLines mirrors a typical song opening: a section marker, then sung lines
var demoLines = []lrc.Line{
	{Time: 0, Text: "[Intro]", Kind: lrc.KindSection},
	{Time: 5, Text: "Welcome to the stage", Kind: lrc.KindLine},
	{Time: 8, Text: "Where dreams come alive", Kind: lrc.KindLine},
	{Time: 12, Text: "[Verse 1]", Kind: lrc.KindSection},
	{Time: 15, Text: "Sing your heart out loud", Kind: lrc.KindLine},
}

func TestIndexAt(t *testing.T) {
	tests := []struct {
		name     string
		lines    []lrc.Line
		time     float64
		expected int
	}{
		{"empty", nil, 10, NoIndex},
		{"before first line", []lrc.Line{{Time: 2}}, 1.5, NoIndex},
		{"within lookahead of first line", []lrc.Line{{Time: 2}}, 1.7, 0},
		{"start", demoLines, 0, 0},
		{"just before lookahead", demoLines, 4.69, 0},
		{"at lookahead", demoLines, 4.7, 1},
		{"between lines", demoLines, 6, 1},
		{"section lines count", demoLines, 12.5, 3},
		{"after last", demoLines, 500, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IndexAt(tt.lines, tt.time); got != tt.expected {
				t.Errorf("IndexAt(%v) = %d, expected %d", tt.time, got, tt.expected)
			}
		})
	}
}

func TestIndexAt_DuplicateTimes(t *testing.T) {
	lines := []lrc.Line{
		{Time: 1, Text: "a"},
		{Time: 3, Text: "b"},
		{Time: 3, Text: "c"},
		{Time: 5, Text: "d"},
	}

	// The last of equal timestamps wins
	if got := IndexAt(lines, 3); got != 2 {
		t.Errorf("Expected index 2, got %d", got)
	}
}

// IndexAt must agree with a linear scan for every sample
func TestIndexAt_MatchesLinearScan(t *testing.T) {
	lines := lrc.Parse("[00:01.00]a\n[00:01.50]b\n[00:01.50]c\n[00:04.20]d\n[00:09.99]e\n[01:00.00]f")

	linear := func(t float64) int {
		idx := NoIndex
		for i, line := range lines {
			if line.Time <= t+DefaultOffset {
				idx = i
			}
		}
		return idx
	}

	for sample := -1.0; sample < 65; sample += 0.05 {
		if got, want := IndexAt(lines, sample), linear(sample); got != want {
			t.Fatalf("IndexAt(%v) = %d, linear scan = %d", sample, got, want)
		}
	}
}

func TestCursor_InitialState(t *testing.T) {
	if got := NewCursor(demoLines, nil).ActiveIndex(); got != 0 {
		t.Errorf("Expected initial index 0, got %d", got)
	}
	if got := NewCursor(nil, nil).ActiveIndex(); got != NoIndex {
		t.Errorf("Expected NoIndex for empty sequence, got %d", got)
	}
}

func TestCursor_UpdateAndScroll(t *testing.T) {
	var scrolled []int
	c := NewCursor(demoLines, func(index int) {
		scrolled = append(scrolled, index)
	})

	samples := []struct {
		time        float64
		wantIndex   int
		wantChanged bool
	}{
		{0.1, 0, false},
		{4.8, 1, true},
		{4.9, 1, false},
		{7.8, 2, true},
		{16, 4, true},
		{5.5, 1, true}, // seek backwards
	}

	for _, s := range samples {
		index, changed := c.Update(s.time)
		if index != s.wantIndex || changed != s.wantChanged {
			t.Errorf("Update(%v) = (%d, %v), expected (%d, %v)", s.time, index, changed, s.wantIndex, s.wantChanged)
		}
	}

	expectedScrolls := []int{1, 2, 4, 1}
	if len(scrolled) != len(expectedScrolls) {
		t.Fatalf("Expected scrolls %v, got %v", expectedScrolls, scrolled)
	}
	for i := range expectedScrolls {
		if scrolled[i] != expectedScrolls[i] {
			t.Errorf("Scroll %d = %d, expected %d", i, scrolled[i], expectedScrolls[i])
		}
	}
	if c.LastTime() != 5.5 {
		t.Errorf("LastTime = %v, expected 5.5", c.LastTime())
	}
}

func TestCursor_SampleBeforeFirstLineKeepsIndex(t *testing.T) {
	lines := []lrc.Line{{Time: 10, Text: "late start"}, {Time: 12, Text: "next"}}
	c := NewCursor(lines, nil)

	c.Update(12)
	if c.ActiveIndex() != 1 {
		t.Fatalf("Expected index 1, got %d", c.ActiveIndex())
	}

	index, changed := c.Update(2)
	if index != 1 || changed {
		t.Errorf("Sample before first line should leave index unchanged, got (%d, %v)", index, changed)
	}
}

func TestCursor_IgnoresNonFiniteSamples(t *testing.T) {
	c := NewCursor(demoLines, nil)
	c.Update(8)

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		index, changed := c.Update(v)
		if index != 2 || changed {
			t.Errorf("Update(%v) = (%d, %v), expected (2, false)", v, index, changed)
		}
	}
	if c.LastTime() != 8 {
		t.Errorf("LastTime should keep last valid sample, got %v", c.LastTime())
	}
}

func TestCursor_Reset(t *testing.T) {
	c := NewCursor(demoLines, nil)
	c.Update(16)

	replacement := []lrc.Line{{Time: 1, Text: "new"}}
	c.Reset(replacement)

	if c.ActiveIndex() != 0 {
		t.Errorf("Expected index 0 after reset, got %d", c.ActiveIndex())
	}
	if c.LastTime() != 0 {
		t.Errorf("Expected LastTime 0 after reset, got %v", c.LastTime())
	}
	if len(c.Lines()) != 1 {
		t.Errorf("Expected replacement lines, got %d", len(c.Lines()))
	}

	c.Reset(nil)
	if c.ActiveIndex() != NoIndex {
		t.Errorf("Expected NoIndex after reset to empty, got %d", c.ActiveIndex())
	}
	if _, changed := c.Update(5); changed {
		t.Error("Empty sequence should never change")
	}
}

func TestCursor_DoesNotMutateLines(t *testing.T) {
	lines := append([]lrc.Line(nil), demoLines...)
	c := NewCursor(lines, nil)

	for s := 0.0; s < 20; s += 0.1 {
		c.Update(s)
	}

	for i := range demoLines {
		if lines[i] != demoLines[i] {
			t.Errorf("Line %d changed: %+v", i, lines[i])
		}
	}
}

func TestCursor_CustomOffset(t *testing.T) {
	c := NewCursorWithOffset(demoLines, 0, nil)

	if index, _ := c.Update(4.9); index != 0 {
		t.Errorf("With zero offset 4.9s should still be line 0, got %d", index)
	}
	if index, _ := c.Update(5); index != 1 {
		t.Errorf("With zero offset 5s should be line 1, got %d", index)
	}
}

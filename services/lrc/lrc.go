// Package lrc parses and writes the LRC lyric format: physical lines prefixed with one
// or more [mm:ss] or [mm:ss.cc] timestamp tags.
package lrc

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Kind distinguishes sung lines from structural markers such as "[Chorus]"
type Kind string

const (
	KindLine    Kind = "line"
	KindSection Kind = "section"
)

// Line is one timed lyric entry
type Line struct {
	Time float64 `json:"time"` // seconds from track start
	Text string  `json:"text"`
	Kind Kind    `json:"kind"`
}

// maxTimestampMs is [99:59.99], the largest tag the parser accepts
const maxTimestampMs = 99*60000 + 59990

var (
	// Timestamp tag: [mm:ss] or [mm:ss.cc]
	timeTagRegex = regexp.MustCompile(`\[(\d{2}):(\d{2})(?:\.(\d{2}))?\]`)

	// Text entirely wrapped in one bracket pair, e.g. "[Verse 1]"
	sectionRegex = regexp.MustCompile(`^\[.*\]$`)
)

// Parse converts LRC text into a time-sorted sequence of lines.
// Lines without a timestamp tag, or with no text once tags are removed, are dropped.
// A line carrying several tags produces one entry per tag. Ties keep input order.
func Parse(content string) []Line {
	lines := []Line{}
	if content == "" {
		return lines
	}

	for _, rawLine := range strings.Split(content, "\n") {
		matches := timeTagRegex.FindAllStringSubmatch(rawLine, -1)
		if len(matches) == 0 {
			continue
		}

		text := strings.TrimSpace(timeTagRegex.ReplaceAllString(rawLine, ""))
		if text == "" {
			continue
		}

		kind := KindLine
		if sectionRegex.MatchString(text) {
			kind = KindSection
		}

		for _, match := range matches {
			lines = append(lines, Line{
				Time: tagSeconds(match[1], match[2], match[3]),
				Text: text,
				Kind: kind,
			})
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		return lines[i].Time < lines[j].Time
	})

	return lines
}

func tagSeconds(mm, ss, cc string) float64 {
	minutes, _ := strconv.Atoi(mm)
	seconds, _ := strconv.Atoi(ss)
	centis := 0
	if cc != "" {
		centis, _ = strconv.Atoi(cc)
	}
	return float64(minutes*60+seconds) + float64(centis)/100
}

// FormatTimestampMs renders a millisecond offset as an LRC tag, e.g. 83450 -> "[01:23.45]".
// Centiseconds are truncated, not rounded. Minutes are two digits, so offsets past
// 99:59.99 are clamped to it.
func FormatTimestampMs(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	if ms > maxTimestampMs {
		ms = maxTimestampMs
	}
	minutes := ms / 60000
	seconds := (ms / 1000) % 60
	centis := (ms % 1000) / 10
	return fmt.Sprintf("[%02d:%02d.%02d]", minutes, seconds, centis)
}

// FormatTimestamp renders a time in seconds as an LRC tag, rounding to the nearest centisecond
func FormatTimestamp(seconds float64) string {
	centis := int64(math.Round(seconds * 100))
	return FormatTimestampMs(centis * 10)
}

// Format serializes lines back into LRC text, one tag per line
func Format(lines []Line) string {
	var sb strings.Builder
	for i, line := range lines {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(FormatTimestamp(line.Time))
		sb.WriteString(line.Text)
	}
	return sb.String()
}

// FromPlainText synthesizes timing for untimed lyrics: one entry per non-blank line,
// spaced secondsPerLine apart. The result is an approximation of the real timing.
func FromPlainText(text string, secondsPerLine float64) []Line {
	lines := []Line{}
	for _, raw := range strings.Split(text, "\n") {
		if strings.TrimSpace(raw) == "" {
			continue
		}
		lines = append(lines, Line{
			Time: float64(len(lines)) * secondsPerLine,
			Text: strings.TrimRight(raw, "\r"),
			Kind: KindLine,
		})
	}
	return lines
}

package lrc

import "time"

// Index returns the last line whose time is at or before pos, or -1 when
// pos comes before the first line.
func Index(lines []Line, pos time.Duration) int {
	index := -1
	for i, line := range lines {
		if line.Time > pos {
			break
		}
		index = i
	}
	return index
}

// Tracker maps a periodically sampled playback position onto the current
// lyric line. Positions normally grow, so the scan resumes from the last
// match instead of the first line.
type Tracker struct {
	lines []Line
	last  int
}

func NewTracker(lines []Line) *Tracker {
	return &Tracker{lines: lines, last: -1}
}

func (t *Tracker) Reset(lines []Line) {
	t.lines = lines
	t.last = -1
}

func (t *Tracker) Len() int {
	return len(t.lines)
}

func (t *Tracker) Lines() []Line {
	return t.lines
}

func (t *Tracker) Current() int {
	return t.last
}

// Update moves the tracker to pos and reports whether the current line
// changed.
func (t *Tracker) Update(pos time.Duration) (int, bool) {
	if len(t.lines) == 0 {
		return -1, false
	}

	index := -1
	start := 0

	// a position behind the memoized line means a backward seek
	if t.last >= 0 && t.last < len(t.lines) && t.lines[t.last].Time <= pos {
		index = t.last
		start = t.last + 1
	}

	for i := start; i < len(t.lines); i++ {
		if t.lines[i].Time > pos {
			break
		}
		index = i
	}

	if index == t.last {
		return index, false
	}

	t.last = index
	return index, true
}

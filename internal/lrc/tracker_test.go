package lrc

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleLines() []Line {
	return []Line{
		{Time: 1 * time.Second, Text: "a"},
		{Time: 3 * time.Second, Text: "b"},
		{Time: 3 * time.Second, Text: "b2"},
		{Time: 6 * time.Second, Text: "c"},
		{Time: 9 * time.Second, Text: "d"},
	}
}

func TestIndex(t *testing.T) {
	lines := sampleLines()

	assert.Equal(t, -1, Index(nil, time.Second))
	assert.Equal(t, -1, Index(lines, 500*time.Millisecond))
	assert.Equal(t, 0, Index(lines, time.Second))
	assert.Equal(t, 2, Index(lines, 3*time.Second))
	assert.Equal(t, 3, Index(lines, 8*time.Second))
	assert.Equal(t, 4, Index(lines, time.Hour))
}

func TestTracker_MonotonicPositions(t *testing.T) {
	tracker := NewTracker(sampleLines())
	assert.Equal(t, -1, tracker.Current())

	idx, changed := tracker.Update(0)
	assert.Equal(t, -1, idx)
	assert.False(t, changed)

	idx, changed = tracker.Update(1100 * time.Millisecond)
	assert.Equal(t, 0, idx)
	assert.True(t, changed)

	idx, changed = tracker.Update(1200 * time.Millisecond)
	assert.Equal(t, 0, idx)
	assert.False(t, changed)

	idx, changed = tracker.Update(3 * time.Second)
	assert.Equal(t, 2, idx)
	assert.True(t, changed)

	idx, changed = tracker.Update(20 * time.Second)
	assert.Equal(t, 4, idx)
	assert.True(t, changed)
	assert.Equal(t, 4, tracker.Current())
}

func TestTracker_BackwardSeekRescans(t *testing.T) {
	tracker := NewTracker(sampleLines())

	tracker.Update(10 * time.Second)
	assert.Equal(t, 4, tracker.Current())

	idx, changed := tracker.Update(2 * time.Second)
	assert.Equal(t, 0, idx)
	assert.True(t, changed)

	idx, changed = tracker.Update(100 * time.Millisecond)
	assert.Equal(t, -1, idx)
	assert.True(t, changed)
}

func TestTracker_AgreesWithIndex(t *testing.T) {
	lines := sampleLines()
	tracker := NewTracker(lines)

	positions := []time.Duration{0, 2, 4, 4, 7, 1, 12, 5, 3, 0, 9}
	for _, p := range positions {
		pos := p * time.Second
		idx, _ := tracker.Update(pos)
		assert.Equal(t, Index(lines, pos), idx, "position %s", pos)
	}
}

func TestTracker_EmptyAndReset(t *testing.T) {
	tracker := NewTracker(nil)

	idx, changed := tracker.Update(5 * time.Second)
	assert.Equal(t, -1, idx)
	assert.False(t, changed)
	assert.Equal(t, 0, tracker.Len())

	tracker.Reset(sampleLines())
	assert.Equal(t, 5, tracker.Len())
	assert.Equal(t, -1, tracker.Current())

	idx, changed = tracker.Update(6 * time.Second)
	assert.Equal(t, 3, idx)
	assert.True(t, changed)

	tracker.Reset([]Line{{Time: 0, Text: "only"}})
	idx, changed = tracker.Update(6 * time.Second)
	assert.Equal(t, 0, idx)
	assert.True(t, changed)
}

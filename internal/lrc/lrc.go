package lrc

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"
)

// PlainLineInterval paces lyrics that carry no timestamps.
const PlainLineInterval = 3 * time.Second

type Line struct {
	Time time.Duration
	Text string
}

type Lyrics struct {
	Title  string
	Artist string
	Album  string
	By     string
	Offset time.Duration
	Synced bool
	Lines  []Line
}

func (l *Lyrics) IsEmpty() bool {
	return l == nil || len(l.Lines) == 0
}

func ParseString(raw string) *Lyrics {
	lyrics, _ := Parse(strings.NewReader(raw))
	return lyrics
}

// Parse reads LRC text. Malformed lines are skipped, only read errors are
// returned.
func Parse(r io.Reader) (*Lyrics, error) {
	result := &Lyrics{}
	var plain []string

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			line = strings.TrimPrefix(line, "\ufeff")
			first = false
		}

		trimmed := strings.TrimSpace(line)
		if trimmed == "" {
			continue
		}

		if !strings.HasPrefix(trimmed, "[") {
			plain = append(plain, trimmed)
			continue
		}

		times, text := splitTags(trimmed, result)
		for _, t := range times {
			result.Lines = append(result.Lines, Line{Time: t, Text: text})
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read lyrics: %w", err)
	}

	if len(result.Lines) > 0 {
		result.Synced = true
		result.applyOffset()
		sort.SliceStable(result.Lines, func(i, j int) bool {
			return result.Lines[i].Time < result.Lines[j].Time
		})
		return result, nil
	}

	// no timestamps at all, pace the text so it still scrolls
	for i, text := range plain {
		result.Lines = append(result.Lines, Line{
			Time: time.Duration(i) * PlainLineInterval,
			Text: text,
		})
	}

	return result, nil
}

// splitTags consumes the leading bracket tags of a line. Timestamps are
// returned, metadata tags are written into meta.
func splitTags(line string, meta *Lyrics) ([]time.Duration, string) {
	var times []time.Duration
	rest := line

	for strings.HasPrefix(rest, "[") {
		end := strings.Index(rest, "]")
		if end < 0 {
			break
		}

		tag := rest[1:end]
		if t, err := ParseTimestamp(tag); err == nil {
			times = append(times, t)
			rest = rest[end+1:]
			continue
		}

		// anything but a timestamp ends the tag run. after a timestamp it
		// belongs to the text.
		if len(times) == 0 {
			meta.setTag(tag)
			rest = rest[end+1:]
		}
		break
	}

	return times, strings.TrimSpace(rest)
}

func (l *Lyrics) setTag(tag string) {
	key, value, ok := strings.Cut(tag, ":")
	if !ok {
		return
	}
	value = strings.TrimSpace(value)

	switch strings.ToLower(strings.TrimSpace(key)) {
	case "ti":
		l.Title = value
	case "ar":
		l.Artist = value
	case "al":
		l.Album = value
	case "by":
		l.By = value
	case "offset":
		ms, err := strconv.Atoi(strings.TrimPrefix(value, "+"))
		if err == nil {
			l.Offset = time.Duration(ms) * time.Millisecond
		}
	}
}

func (l *Lyrics) applyOffset() {
	if l.Offset == 0 {
		return
	}
	for i := range l.Lines {
		shifted := l.Lines[i].Time - l.Offset
		if shifted < 0 {
			shifted = 0
		}
		l.Lines[i].Time = shifted
	}
}

// ParseTimestamp accepts m:ss, mm:ss.xx, mm:ss.xxx, mm:ss:xx and h:mm:ss.xx.
func ParseTimestamp(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, errors.New("empty time value")
	}

	parts := strings.Split(raw, ":")

	var hours, minutes int
	var secPart, fracPart string
	var err error

	switch len(parts) {
	case 2:
		minutes, err = parseDigits(parts[0])
		if err != nil {
			return 0, err
		}
		secPart, fracPart, _ = strings.Cut(parts[1], ".")
	case 3:
		if strings.Contains(parts[2], ".") {
			hours, err = parseDigits(parts[0])
			if err != nil {
				return 0, err
			}
			minutes, err = parseDigits(parts[1])
			if err != nil {
				return 0, err
			}
			if minutes >= 60 {
				return 0, fmt.Errorf("invalid minutes in %q", raw)
			}
			secPart, fracPart, _ = strings.Cut(parts[2], ".")
		} else {
			minutes, err = parseDigits(parts[0])
			if err != nil {
				return 0, err
			}
			secPart, fracPart = parts[1], parts[2]
		}
	default:
		return 0, fmt.Errorf("invalid time format: %s", raw)
	}

	seconds, err := parseDigits(secPart)
	if err != nil {
		return 0, err
	}
	if seconds >= 60 {
		return 0, fmt.Errorf("invalid seconds in %q", raw)
	}

	millis, err := parseFraction(fracPart)
	if err != nil {
		return 0, err
	}

	total := time.Duration(hours)*time.Hour +
		time.Duration(minutes)*time.Minute +
		time.Duration(seconds)*time.Second +
		time.Duration(millis)*time.Millisecond

	return total, nil
}

func parseDigits(s string) (int, error) {
	if s == "" {
		return 0, errors.New("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("invalid number %q", s)
		}
	}
	return strconv.Atoi(s)
}

// parseFraction turns 1, 2 or 3 digits into milliseconds. longer fractions
// are truncated.
func parseFraction(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	if len(s) > 3 {
		s = s[:3]
	}
	value, err := parseDigits(s)
	if err != nil {
		return 0, err
	}
	switch len(s) {
	case 1:
		return value * 100, nil
	case 2:
		return value * 10, nil
	default:
		return value, nil
	}
}

func FormatTimestamp(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	centis := int64(d / (10 * time.Millisecond))
	minutes := centis / 6000
	seconds := (centis / 100) % 60
	return fmt.Sprintf("%02d:%02d.%02d", minutes, seconds, centis%100)
}

// Format renders lyrics back into LRC. offsets are already folded into the
// line times, so no offset tag is written.
func Format(l *Lyrics) string {
	if l == nil {
		return ""
	}

	var b strings.Builder
	writeTag := func(key string, value string) {
		if value != "" {
			fmt.Fprintf(&b, "[%s:%s]\n", key, value)
		}
	}
	writeTag("ti", l.Title)
	writeTag("ar", l.Artist)
	writeTag("al", l.Album)
	writeTag("by", l.By)

	for _, line := range l.Lines {
		if l.Synced {
			fmt.Fprintf(&b, "[%s]%s\n", FormatTimestamp(line.Time), line.Text)
		} else {
			b.WriteString(line.Text)
			b.WriteString("\n")
		}
	}

	return b.String()
}

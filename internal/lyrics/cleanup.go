package lyrics

import (
	"regexp"
	"strings"
)

var (
	audioExtRe     = regexp.MustCompile(`(?i)\.(mp3|flac|m4a|ogg|opus|wav)$`)
	featGroupRe    = regexp.MustCompile(`(?i)\s*[(\[]\s*(feat\.?|ft\.?)\s*[^)\]]+[)\]]`)
	featTrailingRe = regexp.MustCompile(`(?i)\s+(feat\.?|ft\.?)\s+.+$`)
	junkRe         = regexp.MustCompile(`(?i)\((official video|official audio|lyrics)\)`)
)

func isUnknownArtist(artist string) bool {
	switch strings.ToLower(strings.TrimSpace(artist)) {
	case "", "<unknown>", "unknown", "unknown artist":
		return true
	default:
		return false
	}
}

// CleanupMetadata tidies the title and artist reported by players and file
// tags before they are sent to the lyrics server. An artist that stays
// unknown comes back empty.
func CleanupMetadata(title, artist string) (string, string) {
	title = strings.TrimSpace(title)
	artist = strings.TrimSpace(artist)

	title = audioExtRe.ReplaceAllString(title, "")

	unknown := isUnknownArtist(artist)

	// "Artist - Song" file names
	if unknown {
		if left, right, ok := strings.Cut(title, " - "); ok {
			left = strings.TrimSpace(left)
			if left != "" {
				artist = left
				title = strings.TrimSpace(right)
				unknown = false
			}
		}
	}

	title = featGroupRe.ReplaceAllString(title, "")
	title = featTrailingRe.ReplaceAllString(title, "")
	title = junkRe.ReplaceAllString(title, "")

	title = normalizeString(title)
	artist = normalizeString(artist)

	if unknown {
		artist = ""
	}

	return title, artist
}

// normalizeString collapses runs of whitespace.
func normalizeString(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stripVersionInfo removes text in parentheses and brackets (remixes, versions, etc)
func stripVersionInfo(s string) string {
	s = strings.TrimSpace(s)

	for _, pair := range [][2]string{{"(", ")"}, {"[", "]"}} {
		for {
			start := strings.Index(s, pair[0])
			end := strings.Index(s, pair[1])
			if start < 0 || end <= start {
				break
			}
			s = s[:start] + " " + s[end+1:]
		}
	}

	return normalizeString(s)
}

func searchQuery(title, artist string) string {
	stripped := stripVersionInfo(title)
	if stripped == "" {
		stripped = title
	}
	return normalizeString(stripped + " " + artist)
}

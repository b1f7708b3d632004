package autoqueue

import (
	"regexp"
	"strings"
)

// Qualifiers that mark alternate uploads of the same song.
var (
	qualifierRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*\(official\s*(music\s*)?video\)`),
		regexp.MustCompile(`(?i)\s*\[official\s*(music\s*)?video\]`),
		regexp.MustCompile(`(?i)\s*\(official\s*audio\)`),
		regexp.MustCompile(`(?i)\s*\[official\s*audio\]`),
		regexp.MustCompile(`(?i)\s*\(lyrics?\)`),
		regexp.MustCompile(`(?i)\s*\[lyrics?\]`),
		regexp.MustCompile(`(?i)\s*\(audio\)`),
		regexp.MustCompile(`(?i)\s*\[audio\]`),
	}
	extraQualifierRes = []*regexp.Regexp{
		regexp.MustCompile(`(?i)\s*\(visualizer\)`),
		regexp.MustCompile(`(?i)\s*\[visualizer\]`),
		regexp.MustCompile(`(?i)\s*\(lyric video\)`),
		regexp.MustCompile(`(?i)\s*\[lyric video\]`),
	}
	trailingHDRe = regexp.MustCompile(`(?i)\s*HD\s*$`)
	trailingHQRe = regexp.MustCompile(`(?i)\s*HQ\s*$`)
	punctRe      = regexp.MustCompile(`[^\w\s]`)
	spacesRe     = regexp.MustCompile(`\s+`)
)

var titleSeparators = []string{" - ", " – ", " — ", " | "}

func stripAll(s string, res []*regexp.Regexp) string {
	for _, re := range res {
		s = re.ReplaceAllString(s, "")
	}
	return s
}

// Normalize reduces a title to the form used for duplicate detection:
// lower case, without qualifiers such as "(Official Video)", punctuation
// or repeated whitespace.
func Normalize(title string) string {
	s := strings.ToLower(title)
	s = stripAll(s, qualifierRes)
	s = stripAll(s, extraQualifierRes)
	s = trailingHDRe.ReplaceAllString(s, "")
	s = trailingHQRe.ReplaceAllString(s, "")
	s = punctRe.ReplaceAllString(s, "")
	s = spacesRe.ReplaceAllString(s, " ")

	return strings.TrimSpace(s)
}

type ParsedTitle struct {
	Artist string
	Song   string
}

// ParseTitle splits "Artist - Song" style titles. Artist is empty when no
// separator is present.
func ParseTitle(title string) ParsedTitle {
	cleaned := stripAll(title, qualifierRes)
	cleaned = trailingHDRe.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)

	for _, sep := range titleSeparators {
		parts := strings.Split(cleaned, sep)
		if len(parts) >= 2 {
			return ParsedTitle{
				Artist: strings.TrimSpace(parts[0]),
				Song:   strings.TrimSpace(strings.Join(parts[1:], sep)),
			}
		}
	}

	return ParsedTitle{Song: cleaned}
}

// SearchSeed returns the artist to search more songs of.
func SearchSeed(title string) string {
	if artist := ParseTitle(title).Artist; artist != "" {
		return artist
	}

	head, _, _ := strings.Cut(title, "-")
	return strings.TrimSpace(head)
}

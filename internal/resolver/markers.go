package resolver

import (
	"regexp"
	"strings"
)

// Hunk is one conflicted region of a file.
type Hunk struct {
	// OursLabel and TheirsLabel are the text after the opening and
	// closing markers (usually a ref name or commit subject).
	OursLabel   string
	TheirsLabel string

	Ours   string
	Base   string
	Theirs string
}

var (
	openMarker  = regexp.MustCompile(`(?m)^<{7}(?: |\r?$)`)
	closeMarker = regexp.MustCompile(`(?m)^>{7}(?: |\r?$)`)
)

// HasMarkers reports whether content still carries git conflict markers.
func HasMarkers(content string) bool {
	return openMarker.MatchString(content) || closeMarker.MatchString(content)
}

type hunkSection int

const (
	outside hunkSection = iota
	inOurs
	inBase
	inTheirs
)

// ParseHunks extracts every conflicted region from content, including
// diff3 style base sections. Unterminated regions are dropped.
func ParseHunks(content string) []Hunk {
	var (
		hunks   []Hunk
		cur     Hunk
		section = outside
		ours    []string
		base    []string
		theirs  []string
	)

	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSuffix(line, "\r")
		switch {
		case strings.HasPrefix(line, "<<<<<<<"):
			cur = Hunk{OursLabel: strings.TrimSpace(line[7:])}
			ours, base, theirs = nil, nil, nil
			section = inOurs
		case section == inOurs && strings.HasPrefix(line, "|||||||"):
			section = inBase
		case (section == inOurs || section == inBase) && line == "=======":
			section = inTheirs
		case section == inTheirs && strings.HasPrefix(line, ">>>>>>>"):
			cur.TheirsLabel = strings.TrimSpace(line[7:])
			cur.Ours = strings.Join(ours, "\n")
			cur.Base = strings.Join(base, "\n")
			cur.Theirs = strings.Join(theirs, "\n")
			hunks = append(hunks, cur)
			section = outside
		case section == inOurs:
			ours = append(ours, line)
		case section == inBase:
			base = append(base, line)
		case section == inTheirs:
			theirs = append(theirs, line)
		}
	}

	return hunks
}

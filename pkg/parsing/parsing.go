// Package parsing holds the pure text transforms used by the chat client:
// turning a user supplied chat name into a file stem and splitting model
// output into prose and fenced code.
package parsing

import (
	"regexp"
	"strings"
)

// MaxFilenameLength is the maximum number of characters kept by CleanFilename.
const MaxFilenameLength = 50

var (
	unsafeFilenameChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	// Everything strings.TrimSpace would strip, so a cleaned name never
	// gains or loses characters on a second pass.
	whitespaceRun = regexp.MustCompile(`[\s\v\x{85}\p{Zs}\x{2028}\x{2029}]+`)

	// Opening fence with an optional language tag, a body matched lazily
	// across lines, and a closing fence on its own line.
	codeFence = regexp.MustCompile("(?s)```(\\w+)?\\s*\\n(.*?)\\n```")
)

// CleanFilename normalizes a chat name into a safe file stem.
// It never fails; an empty or whitespace-only name yields "".
func CleanFilename(name string) string {
	name = strings.TrimSpace(name)
	name = unsafeFilenameChars.ReplaceAllString(name, "")
	name = whitespaceRun.ReplaceAllString(name, "_")

	runes := []rune(name)
	if len(runes) > MaxFilenameLength {
		runes = runes[:MaxFilenameLength]
	}
	return string(runes)
}

// SegmentKind tells prose and code segments apart.
type SegmentKind int

const (
	SegmentText SegmentKind = iota
	SegmentCode
)

func (k SegmentKind) String() string {
	if k == SegmentCode {
		return "code"
	}
	return "text"
}

// DefaultLanguage is used for fences without a language tag.
const DefaultLanguage = "text"

// Segment is one piece of rendered model output.
type Segment struct {
	Kind    SegmentKind
	Content string
	// Language is only set for code segments.
	Language string
}

// Text returns a prose segment.
func Text(content string) Segment {
	return Segment{Kind: SegmentText, Content: content}
}

// Code returns a code segment.
func Code(content, language string) Segment {
	return Segment{Kind: SegmentCode, Content: content, Language: language}
}

// ExtractCodeBlocks splits text into prose and fenced code segments in order
// of appearance. Prose runs are trimmed and dropped when blank. Code bodies
// are trimmed and end with exactly one newline.
func ExtractCodeBlocks(text string) []Segment {
	var segments []Segment
	lastEnd := 0

	for _, loc := range codeFence.FindAllStringSubmatchIndex(text, -1) {
		if plain := strings.TrimSpace(text[lastEnd:loc[0]]); plain != "" {
			segments = append(segments, Text(plain))
		}

		lang := DefaultLanguage
		if loc[2] >= 0 {
			lang = text[loc[2]:loc[3]]
		}
		body := strings.TrimSpace(text[loc[4]:loc[5]]) + "\n"
		segments = append(segments, Code(body, lang))

		lastEnd = loc[1]
	}

	if tail := strings.TrimSpace(text[lastEnd:]); tail != "" {
		segments = append(segments, Text(tail))
	}
	return segments
}

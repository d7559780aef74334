package parsing

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanFilename(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"blank", "   \t ", ""},
		{"spaces collapse", "My Project", "My_Project"},
		{"runs collapse", "  a   b\t\tc  ", "a_b_c"},
		{"unsafe removed", `a\b/c:d*e?f"g<h>i|j`, "abcdefghij"},
		{"unsafe between spaces", "notes : draft", "notes_draft"},
		{"unicode kept", "café crème", "café_crème"},
		{"truncated", strings.Repeat("x", 80), strings.Repeat("x", 50)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, CleanFilename(tc.in))
		})
	}
}

func TestCleanFilename_IdempotentAndBounded(t *testing.T) {
	inputs := []string{
		"",
		"My Project",
		strings.Repeat("ab ", 40),
		strings.Repeat("é", 49) + " tail",
		strings.Repeat("y", 49) + "\u00a0z",
		strings.Repeat("w", 49) + "\vz",
		"\u3000wide\u3000space\u3000",
		`C:\Users\me\chat?.txt`,
	}
	for _, in := range inputs {
		once := CleanFilename(in)
		assert.Equal(t, once, CleanFilename(once), "not idempotent for %q", in)
		assert.LessOrEqual(t, utf8.RuneCountInString(once), MaxFilenameLength)
	}
}

func TestExtractCodeBlocks_NoFences(t *testing.T) {
	segs := ExtractCodeBlocks("  just some prose\nover two lines  ")
	require.Len(t, segs, 1)
	assert.Equal(t, Text("just some prose\nover two lines"), segs[0])

	assert.Empty(t, ExtractCodeBlocks(""))
	assert.Empty(t, ExtractCodeBlocks(" \n\t "))
}

func TestExtractCodeBlocks_InlineScenario(t *testing.T) {
	segs := ExtractCodeBlocks("pre ```python\nprint(1)\n``` post")
	assert.Equal(t, []Segment{
		Text("pre"),
		Code("print(1)\n", "python"),
		Text("post"),
	}, segs)
}

func TestExtractCodeBlocks_Multiple(t *testing.T) {
	input := "Intro:\n\n```go\nfmt.Println(\"a\")\n\n```\n\n```\nplain\n```\nDone."
	segs := ExtractCodeBlocks(input)
	assert.Equal(t, []Segment{
		Text("Intro:"),
		Code("fmt.Println(\"a\")\n", "go"),
		Code("plain\n", DefaultLanguage),
		Text("Done."),
	}, segs)
}

func TestExtractCodeBlocks_BlankRunsOmitted(t *testing.T) {
	segs := ExtractCodeBlocks("```sh\nls\n```\n   \n```sh\npwd\n```")
	require.Len(t, segs, 2)
	assert.Equal(t, SegmentCode, segs[0].Kind)
	assert.Equal(t, SegmentCode, segs[1].Kind)
	assert.Equal(t, "pwd\n", segs[1].Content)
}

func TestExtractCodeBlocks_UnclosedFenceIsText(t *testing.T) {
	segs := ExtractCodeBlocks("look:\n```js\nalert(1)")
	require.Len(t, segs, 1)
	assert.Equal(t, SegmentText, segs[0].Kind)
	assert.Equal(t, "look:\n```js\nalert(1)", segs[0].Content)
}

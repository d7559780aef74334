package textfile

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/mariozechner/gemini-helper/pkg/store"
)

const (
	MetadataStartTag = "# METADATA_START"
	MetadataEndTag   = "# METADATA_END"
)

// Transcript lines look like "[USER] hello".
var transcriptLine = regexp.MustCompile(`^\[([A-Za-z_]+)\] ?(.*)$`)

// rawMetadata mirrors store.Metadata with pointers so absent fields can be
// told apart from zero values.
type rawMetadata struct {
	Name         *string       `json:"name"`
	SystemPrompt *string       `json:"system_prompt"`
	Temperature  *float64      `json:"temperature"`
	SavedAt      string        `json:"saved_at"`
	History      store.History `json:"gemini_history"`
}

// Encode writes rec in the chat file format: the metadata block between the
// start and end tags, a blank line, then one "[ROLE] content" line per
// transcript message.
func Encode(w io.Writer, rec store.Record) error {
	meta := rec.Metadata
	if meta.History == nil {
		meta.History = store.History{}
	}

	bw := bufio.NewWriter(w)
	if _, err := bw.WriteString(MetadataStartTag + "\n"); err != nil {
		return err
	}

	enc := json.NewEncoder(bw)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(meta); err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}

	if _, err := bw.WriteString(MetadataEndTag + "\n\n"); err != nil {
		return err
	}

	for _, msg := range rec.Transcript {
		if _, err := fmt.Fprintf(bw, "[%s] %s\n", msg.Role, msg.Content); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Decode parses a chat file. The first start tag line and the first end tag
// line after it delimit the metadata block; anything after the end tag is
// the transcript body.
func Decode(r io.Reader) (store.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return store.Record{}, err
	}

	block, body, err := splitMetadata(data)
	if err != nil {
		return store.Record{}, err
	}

	var raw rawMetadata
	if err := json.Unmarshal(block, &raw); err != nil {
		return store.Record{}, fmt.Errorf("%w: %v", store.ErrCorruptMetadata, err)
	}

	rec := store.Record{
		Metadata: store.Metadata{
			SavedAt: raw.SavedAt,
			History: raw.History,
		},
		Transcript: parseTranscript(body),
	}
	if rec.Metadata.History == nil {
		rec.Metadata.History = store.History{}
	}

	if raw.Name != nil {
		rec.Metadata.Name = *raw.Name
	} else {
		rec.MissingName = true
	}
	if raw.SystemPrompt != nil {
		rec.Metadata.SystemPrompt = *raw.SystemPrompt
	} else {
		rec.MissingSystemPrompt = true
	}
	if raw.Temperature != nil {
		rec.Metadata.Temperature = *raw.Temperature
	} else {
		rec.MissingTemperature = true
	}

	return rec, nil
}

func splitMetadata(data []byte) (block, body []byte, err error) {
	lines := bytes.SplitAfter(data, []byte("\n"))

	start, end := -1, -1
	for i, line := range lines {
		text := strings.TrimRight(string(line), "\r\n")
		if start < 0 {
			if text == MetadataStartTag {
				start = i
			}
			continue
		}
		if text == MetadataEndTag {
			end = i
			break
		}
	}
	if start < 0 || end < 0 {
		return nil, nil, store.ErrCorruptFormat
	}

	block = bytes.Join(lines[start+1:end], nil)
	body = bytes.Join(lines[end+1:], nil)
	return block, body, nil
}

// parseTranscript reverses the "[ROLE] content" body. Lines that do not start
// with a role tag continue the previous message.
func parseTranscript(body []byte) []store.Message {
	var msgs []store.Message
	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), len(body)+1)

	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")
		if m := transcriptLine.FindStringSubmatch(line); m != nil {
			msgs = append(msgs, store.Message{Role: store.Role(m[1]), Content: m[2]})
			continue
		}
		if len(msgs) == 0 {
			continue
		}
		msgs[len(msgs)-1].Content += "\n" + line
	}

	// Trailing blank lines belong to the file layout, not to the message.
	if n := len(msgs); n > 0 {
		msgs[n-1].Content = strings.TrimRight(msgs[n-1].Content, "\n")
	}
	return msgs
}

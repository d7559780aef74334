package gemini

import (
	"context"
	"testing"

	"github.com/google/generative-ai-go/genai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mariozechner/gemini-helper/pkg/models"
	"github.com/mariozechner/gemini-helper/pkg/store"
)

func TestNew_OfflineWithoutKey(t *testing.T) {
	svc, err := New(context.Background(), "", "gemini-2.5-flash", "prompt", 0.5)
	require.NoError(t, err)
	defer svc.Close()

	assert.True(t, svc.Offline())
	assert.Equal(t, "gemini-2.5-flash", svc.ModelName())

	reply := svc.Send(context.Background(), "hello")
	assert.Equal(t, models.OfflineNotice, reply.Text)
	assert.ErrorIs(t, reply.Err, models.ErrOffline)

	assert.Equal(t, store.History{}, svc.FullHistory())

	_, err = svc.List(context.Background())
	assert.ErrorIs(t, err, models.ErrOffline)
}

func TestRestore_OfflineValidatesButKeepsNoHistory(t *testing.T) {
	svc, err := New(context.Background(), "", "m", "", 0)
	require.NoError(t, err)

	require.NoError(t, svc.Restore(store.History{{Role: "user", Parts: []store.Part{{Text: "x"}}}}))
	assert.False(t, svc.HistoryLoaded())

	err = svc.Restore(store.History{{Role: "robot", Parts: []store.Part{{Text: "x"}}}})
	assert.ErrorIs(t, err, models.ErrHistoryRestore)
}

func TestToContents(t *testing.T) {
	contents, err := toContents(store.History{
		{Role: "system", Parts: []store.Part{{Text: "be nice"}}},
		{Role: "USER", Parts: []store.Part{{Text: "a"}, {Text: "b"}}},
		{Role: "model", Parts: []store.Part{{Text: "c"}}},
	})
	require.NoError(t, err)
	require.Len(t, contents, 2)

	assert.Equal(t, "user", contents[0].Role)
	assert.Equal(t, []genai.Part{genai.Text("a"), genai.Text("b")}, contents[0].Parts)
	assert.Equal(t, "model", contents[1].Role)
}

func TestToContents_Malformed(t *testing.T) {
	cases := map[string]store.History{
		"empty role":   {{Role: "", Parts: []store.Part{{Text: "x"}}}},
		"unknown role": {{Role: "assistant", Parts: []store.Part{{Text: "x"}}}},
		"no parts":     {{Role: "user"}},
	}
	for name, h := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := toContents(h)
			assert.ErrorIs(t, err, models.ErrHistoryRestore)
		})
	}
}

func TestFromContents(t *testing.T) {
	history := fromContents([]*genai.Content{
		{Role: "user", Parts: []genai.Part{genai.Text("hi")}},
		nil,
		{Role: "model", Parts: []genai.Part{genai.Text("one"), genai.FunctionCall{Name: "noop"}, genai.Text("two")}},
		{Role: "model", Parts: []genai.Part{genai.FunctionCall{Name: "only-call"}}},
	})

	assert.Equal(t, store.History{
		{Role: "user", Parts: []store.Part{{Text: "hi"}}},
		{Role: "model", Parts: []store.Part{{Text: "one"}, {Text: "two"}}},
	}, history)
}

func TestHistoryConversionRoundTrip(t *testing.T) {
	in := store.History{
		{Role: "user", Parts: []store.Part{{Text: "question"}}},
		{Role: "model", Parts: []store.Part{{Text: "answer"}, {Text: "more"}}},
	}
	contents, err := toContents(in)
	require.NoError(t, err)
	assert.Equal(t, in, fromContents(contents))
}

func TestResponseText(t *testing.T) {
	assert.Equal(t, "", responseText(nil))

	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{
			{Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text("Hello, "), genai.Text("world")}}},
			{Content: &genai.Content{Role: "model", Parts: []genai.Part{genai.Text("ignored")}}},
		},
	}
	assert.Equal(t, "Hello, world", responseText(resp))
}

func TestRedactKey(t *testing.T) {
	assert.Equal(t, "key=REDACTED&x=1", redactKey("key=secret&x=1", "secret"))
	assert.Equal(t, "unchanged", redactKey("unchanged", ""))
}

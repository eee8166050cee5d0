package adapt

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

func entry(t *testing.T, name string) registry.Entry {
	t.Helper()
	for _, e := range Entries() {
		if e.Name == name {
			return e
		}
	}
	t.Fatalf("no adapter %q", name)
	return registry.Entry{}
}

func sample() *unit.Unit {
	u := unit.New("doc.png[prompt:from directive]")
	u.SetText("body")
	u.AddMedia(unit.NewBlob("image/png", []byte{1, 2, 3}))
	return u
}

func TestOpenAIChat(t *testing.T) {
	out, err := entry(t, OpenAIChat).Adapt(context.Background(), sample(), "describe")
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	msgs := out.([]openai.ChatCompletionMessage)
	want := []openai.ChatCompletionMessage{{
		Role: openai.ChatMessageRoleUser,
		MultiContent: []openai.ChatMessagePart{
			{Type: openai.ChatMessagePartTypeText, Text: "describe"},
			{Type: openai.ChatMessagePartTypeText, Text: "body"},
			{Type: openai.ChatMessagePartTypeImageURL, ImageURL: &openai.ChatMessageImageURL{
				URL: "data:image/png;base64,AQID", Detail: openai.ImageURLDetailAuto,
			}},
		},
	}}
	if diff := cmp.Diff(want, msgs); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestClaude_PromptFromDirective(t *testing.T) {
	out, err := entry(t, Claude).Adapt(context.Background(), sample(), "")
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	want := []ClaudeMessage{{Role: "user", Content: []ClaudeBlock{
		{Type: "text", Text: "from directive\n\nbody"},
		{Type: "image", Source: &ClaudeImageSource{Type: "base64", MediaType: "image/png", Data: "AQID"}},
	}}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
}

func TestGemini(t *testing.T) {
	out, err := entry(t, Gemini).Adapt(context.Background(), sample(), "describe")
	if err != nil {
		t.Fatalf("adapt: %v", err)
	}
	contents := out.([]*genai.Content)
	if len(contents) != 1 || contents[0].Role != string(genai.RoleUser) {
		t.Fatalf("contents = %+v", contents)
	}
	parts := contents[0].Parts
	if len(parts) != 3 || parts[0].Text != "describe" || parts[1].Text != "body" {
		t.Fatalf("parts = %+v", parts)
	}
	if parts[2].InlineData == nil || !cmp.Equal(parts[2].InlineData.Data, []byte{1, 2, 3}) {
		t.Errorf("inline data = %+v", parts[2].InlineData)
	}
}

func TestAdapters_RequireContent(t *testing.T) {
	for _, name := range Names() {
		_, err := entry(t, name).Adapt(context.Background(), unit.New("empty.txt"), "")
		if !errors.Is(err, errNoContent) {
			t.Errorf("%s: expected errNoContent, got %v", name, err)
		}
	}
}

// Package adapt provides the adapters that turn a unit into the message shape
// of an LLM provider API.
package adapt

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	"github.com/kailas-cloud/attachments/internal/registry"
)

// Adapter names.
const (
	OpenAIChat = "openai_chat"
	Claude     = "claude"
	Gemini     = "gemini"
)

// Names lists the built-in adapter names.
func Names() []string { return []string{OpenAIChat, Claude, Gemini} }

var errNoContent = errors.New("unit has no text, media or prompt")

// Entries returns the adapters.
func Entries() []registry.Entry {
	return []registry.Entry{
		{Name: OpenAIChat, Stage: domain.StageAdapt, Match: registry.Always, Description: "OpenAI chat completion messages", Adapt: openAIChat},
		{Name: Claude, Stage: domain.StageAdapt, Match: registry.Always, Description: "Anthropic messages API content blocks", Adapt: claude},
		{Name: Gemini, Stage: domain.StageAdapt, Match: registry.Always, Description: "Gemini generateContent contents", Adapt: gemini},
	}
}

// effectivePrompt prefers the explicit prompt over the [prompt:...] directive.
func effectivePrompt(u *unit.Unit, prompt string) string {
	if prompt != "" {
		return prompt
	}
	return u.Directives().Value("prompt")
}

func requireContent(u *unit.Unit, prompt string) error {
	if u.Text() == "" && u.MediaCount() == 0 && prompt == "" {
		return errNoContent
	}
	return nil
}

func openAIChat(_ context.Context, u *unit.Unit, prompt string) (any, error) {
	prompt = effectivePrompt(u, prompt)
	if err := requireContent(u, prompt); err != nil {
		return nil, err
	}
	var parts []openai.ChatMessagePart
	if prompt != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: prompt})
	}
	if u.Text() != "" {
		parts = append(parts, openai.ChatMessagePart{Type: openai.ChatMessagePartTypeText, Text: u.Text()})
	}
	for _, b := range u.Media() {
		parts = append(parts, openai.ChatMessagePart{
			Type:     openai.ChatMessagePartTypeImageURL,
			ImageURL: &openai.ChatMessageImageURL{URL: b.DataURL(), Detail: openai.ImageURLDetailAuto},
		})
	}
	return []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, MultiContent: parts}}, nil
}

// ClaudeMessage is one message of the Anthropic messages API.
type ClaudeMessage struct {
	Role    string        `json:"role"`
	Content []ClaudeBlock `json:"content"`
}

// ClaudeBlock is a text or image content block.
type ClaudeBlock struct {
	Type   string             `json:"type"`
	Text   string             `json:"text,omitempty"`
	Source *ClaudeImageSource `json:"source,omitempty"`
}

// ClaudeImageSource carries base64 image data.
type ClaudeImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

func claude(_ context.Context, u *unit.Unit, prompt string) (any, error) {
	prompt = effectivePrompt(u, prompt)
	if err := requireContent(u, prompt); err != nil {
		return nil, err
	}
	var blocks []ClaudeBlock
	if text := strings.Join(nonEmpty(prompt, u.Text()), "\n\n"); text != "" {
		blocks = append(blocks, ClaudeBlock{Type: "text", Text: text})
	}
	for _, b := range u.Media() {
		blocks = append(blocks, ClaudeBlock{
			Type:   "image",
			Source: &ClaudeImageSource{Type: "base64", MediaType: b.MIMEType, Data: b.Data},
		})
	}
	return []ClaudeMessage{{Role: "user", Content: blocks}}, nil
}

func gemini(_ context.Context, u *unit.Unit, prompt string) (any, error) {
	prompt = effectivePrompt(u, prompt)
	if err := requireContent(u, prompt); err != nil {
		return nil, err
	}
	var parts []*genai.Part
	for _, text := range nonEmpty(prompt, u.Text()) {
		parts = append(parts, genai.NewPartFromText(text))
	}
	for i, b := range u.Media() {
		data, err := b.Bytes()
		if err != nil {
			return nil, fmt.Errorf("media %d: %w", i, err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, b.MIMEType))
	}
	return []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}, nil
}

func nonEmpty(ss ...string) []string {
	out := make([]string, 0, len(ss))
	for _, s := range ss {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

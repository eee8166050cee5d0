package attachments

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"google.golang.org/genai"

	dombatch "github.com/kailas-cloud/attachments/internal/domain/batch"
	"github.com/kailas-cloud/attachments/internal/domain/collection"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
	processuc "github.com/kailas-cloud/attachments/internal/usecase/process"
)

// Attachments is the processed content of one or more identifiers.
// Text, Images and Metadata describe everything combined; Results has the per-identifier view.
type Attachments struct {
	results  []dombatch.Result
	combined *unit.Unit
	process  processUseCase
	obs      *observer
}

func newAttachments(results []dombatch.Result, process processUseCase, obs *observer) *Attachments {
	return &Attachments{
		results:  results,
		combined: processuc.Combine(results),
		process:  process,
		obs:      obs,
	}
}

// Text returns the combined text. With several units each one is a "## <path>" section.
func (a *Attachments) Text() string { return a.combined.Text() }

// Images returns every extracted image in order.
func (a *Attachments) Images() []Image { return images(a.combined.Media()) }

// Metadata returns the combined metadata, including file_count, image_count and files.
func (a *Attachments) Metadata() map[string]any { return a.combined.Metadata() }

// String returns the combined text.
func (a *Attachments) String() string { return a.Text() }

// Results returns one entry per processed identifier, in input order.
func (a *Attachments) Results() []Result {
	out := make([]Result, len(a.results))
	for i, r := range a.results {
		res := Result{
			Identifier: r.ID(),
			OK:         r.OK(),
			Err:        r.Err(),
		}
		if !r.Value().IsZero() {
			u := collection.Merge(r.Value())
			res.Text = u.Text()
			res.Images = images(u.Media())
			res.Metadata = u.Metadata()
		}
		out[i] = res
	}
	return out
}

// Adapt shapes the combined content for the named adapter. The prompt is
// placed before the content; an empty prompt falls back to a [prompt:...] directive.
func (a *Attachments) Adapt(ctx context.Context, adapter, prompt string) (_ any, err error) {
	start := time.Now()
	defer func() { a.obs.observe("adapt", start, err, slog.String("adapter", adapter)) }()

	out, err := a.process.Adapt(ctx, a.results, adapter, prompt)
	if err != nil {
		return nil, fmt.Errorf("attachments: %w", err)
	}
	return out, nil
}

// OpenAI returns chat completion messages for the OpenAI API.
func (a *Attachments) OpenAI(prompt string) ([]openai.ChatCompletionMessage, error) {
	return adaptAs[[]openai.ChatCompletionMessage](a, AdapterOpenAIChat, prompt)
}

// Claude returns messages for the Anthropic messages API.
func (a *Attachments) Claude(prompt string) ([]ClaudeMessage, error) {
	return adaptAs[[]ClaudeMessage](a, AdapterClaude, prompt)
}

// Gemini returns contents for the Gemini API.
func (a *Attachments) Gemini(prompt string) ([]*genai.Content, error) {
	return adaptAs[[]*genai.Content](a, AdapterGemini, prompt)
}

// adaptAs runs a built-in adapter. Adapters only reshape in-memory content, so no context is needed.
func adaptAs[T any](a *Attachments, adapter, prompt string) (T, error) {
	var zero T
	out, err := a.Adapt(context.Background(), adapter, prompt)
	if err != nil {
		return zero, err
	}
	v, ok := out.(T)
	if !ok {
		return zero, fmt.Errorf("attachments: adapter %s returned %T", adapter, out)
	}
	return v, nil
}

func images(media []unit.Blob) []Image {
	out := make([]Image, len(media))
	for i, b := range media {
		out[i] = Image{MIMEType: b.MIMEType, Data: b.Data}
	}
	return out
}

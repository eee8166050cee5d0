package attachments

import (
	"encoding/base64"

	"github.com/kailas-cloud/attachments/internal/verbs/adapt"
)

// Adapter names accepted by Attachments.Adapt.
const (
	AdapterOpenAIChat = adapt.OpenAIChat
	AdapterClaude     = adapt.Claude
	AdapterGemini     = adapt.Gemini
)

// ClaudeMessage is one message of the Anthropic messages API.
type ClaudeMessage = adapt.ClaudeMessage

// Image is one extracted image, base64 encoded.
type Image struct {
	MIMEType string
	Data     string
}

// DataURL renders the image as a data: URL.
func (i Image) DataURL() string {
	return "data:" + i.MIMEType + ";base64," + i.Data
}

// Bytes decodes the image data.
func (i Image) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(i.Data)
}

// Result is the outcome for one identifier.
type Result struct {
	Identifier string
	OK         bool
	Err        error
	Text       string
	Images     []Image
	Metadata   map[string]any
}

// VerbInfo describes one registered verb.
type VerbInfo struct {
	Stage       string // load, modify, split, present, refine, adapt
	Name        string
	Kind        string // scalar, decompose, reduce, adapt
	Category    string // text, media, both; empty outside present/refine
	Format      string
	Fallback    bool
	Description string
}

package domain

import (
	"mime"
	"strings"
)

// Resource is a fetched remote document.
type Resource struct {
	URL         string `json:"url"`
	StatusCode  int    `json:"status_code"`
	ContentType string `json:"content_type"`
	Body        []byte `json:"body"`
}

// MediaType returns the content type without parameters, lowercased.
func (r Resource) MediaType() string {
	mt, _, err := mime.ParseMediaType(r.ContentType)
	if err != nil {
		mt, _, _ = strings.Cut(r.ContentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mt))
}

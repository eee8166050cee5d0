// Package payload defines the built-in payload variants carried by units.
package payload

import (
	"image"

	"golang.org/x/net/html"

	"github.com/kailas-cloud/attachments/internal/domain"
)

// Built-in payload kinds.
const (
	KindText    domain.Kind = "text"
	KindHTML    domain.Kind = "html"
	KindTable   domain.Kind = "table"
	KindImage   domain.Kind = "image"
	KindArchive domain.Kind = "archive"
)

// Text is a decoded text document. Format names the source syntax (plain, markdown, json...).
type Text struct {
	Content string
	Format  string
}

// Kind implements domain.Payload.
func (Text) Kind() domain.Kind { return KindText }

// HTML is a parsed HTML document.
type HTML struct {
	Root *html.Node
}

// Kind implements domain.Payload.
func (HTML) Kind() domain.Kind { return KindHTML }

// Table is a rectangular table with a header row.
type Table struct {
	Header []string
	Rows   [][]string
}

// Kind implements domain.Payload.
func (Table) Kind() domain.Kind { return KindTable }

// Image is a decoded raster image. Format is the source encoding (png, jpeg, gif).
type Image struct {
	Img    image.Image
	Format string
}

// Kind implements domain.Payload.
func (Image) Kind() domain.Kind { return KindImage }

// Entry is one file inside an archive.
type Entry struct {
	Name string
	Data []byte
}

// Archive is an ordered set of files.
type Archive struct {
	Entries []Entry
}

// Kind implements domain.Payload.
func (Archive) Kind() domain.Kind { return KindArchive }

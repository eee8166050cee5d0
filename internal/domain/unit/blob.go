package unit

import "encoding/base64"

// Blob is one encoded media item.
type Blob struct {
	MIMEType string `json:"mime_type"`
	Data     string `json:"data"` // base64, standard encoding
}

// NewBlob base64-encodes raw bytes.
func NewBlob(mimeType string, raw []byte) Blob {
	return Blob{MIMEType: mimeType, Data: base64.StdEncoding.EncodeToString(raw)}
}

// DataURL renders the blob as a data: URL.
func (b Blob) DataURL() string {
	return "data:" + b.MIMEType + ";base64," + b.Data
}

// Bytes decodes the blob data.
func (b Blob) Bytes() ([]byte, error) {
	return base64.StdEncoding.DecodeString(b.Data)
}

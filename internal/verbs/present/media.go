package present

import (
	"context"
	"fmt"
	"slices"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

// infoKeys are the metadata keys shown by the metadata presenter, in display order.
var infoKeys = []string{
	"format", "size", "content_type", "status_code", "file_size",
	"rows", "columns", "entry_count", "selected_pages", "from_zip", "zip_filename",
}

func imagesOfImage(_ context.Context, u *unit.Unit) error {
	data, err := u.Payload().(payload.Image).PNG()
	if err != nil {
		return err
	}
	u.AddMedia(unit.NewBlob("image/png", data))
	return nil
}

// metadata appends a File Info list of the user-facing metadata and any
// recorded errors. Units without such metadata are left unchanged.
func metadata(_ context.Context, u *unit.Unit) error {
	meta := u.Metadata()
	var lines []string
	for _, key := range infoKeys {
		if v, ok := meta[key]; ok {
			lines = append(lines, infoLine(key, v))
		}
	}
	var errKeys []string
	for key := range meta {
		if strings.HasSuffix(key, "_error") {
			errKeys = append(errKeys, key)
		}
	}
	slices.Sort(errKeys)
	for _, key := range errKeys {
		lines = append(lines, infoLine(key, meta[key]))
	}
	if len(lines) == 0 {
		return nil
	}
	u.AppendText("## File Info\n\n"+strings.Join(lines, "\n"), blockSeparator)
	return nil
}

func infoLine(key string, v any) string {
	if size, ok := v.([]int); ok && key == "size" && len(size) == 2 {
		return fmt.Sprintf("- **Size**: %d × %d pixels", size[0], size[1])
	}
	return fmt.Sprintf("- **%s**: %v", displayKey(key), v)
}

func displayKey(key string) string {
	words := strings.Split(key, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

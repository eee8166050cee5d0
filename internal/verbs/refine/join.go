package refine

import (
	"context"
	"path"

	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

const joinSeparator = "\n\n"

// join concatenates member text and media in order. The result is named after
// the common directory of the members when they share one.
func join(_ context.Context, members []*unit.Unit) (*unit.Unit, error) {
	out := unit.New(commonDir(members))
	sources := make([]string, 0, len(members))
	for _, m := range members {
		out.AppendText(m.Text(), joinSeparator)
		out.AddMedia(m.Media()...)
		sources = append(sources, m.Path())
	}
	out.MergeMeta(map[string]any{"joined_count": len(members), "sources": sources})
	return out, nil
}

func commonDir(members []*unit.Unit) string {
	if len(members) == 0 {
		return ""
	}
	dir := path.Dir(members[0].Path())
	for _, m := range members[1:] {
		if path.Dir(m.Path()) != dir {
			return ""
		}
	}
	if dir == "." {
		return ""
	}
	return dir
}

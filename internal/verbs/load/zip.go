package load

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/kailas-cloud/attachments/internal/domain"
	"github.com/kailas-cloud/attachments/internal/domain/payload"
	"github.com/kailas-cloud/attachments/internal/domain/unit"
)

func loadZip(_ context.Context, u *unit.Unit) error {
	zr, err := zip.OpenReader(u.Path())
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrResourceUnavailable, err)
	}
	defer zr.Close()

	archive := payload.Archive{}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() || strings.HasPrefix(f.Name, "__MACOSX/") {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return fmt.Errorf("read %s from %s: %w", f.Name, u.Path(), err)
		}
		archive.Entries = append(archive.Entries, payload.Entry{Name: f.Name, Data: data})
	}
	u.SetPayload(archive)
	u.SetMeta("entry_count", len(archive.Entries))
	return nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

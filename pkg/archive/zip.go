// Package archive streams several attachments into a single zip file.
package archive

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"strconv"

	"github.com/attache-dev/attache/pkg/api"
	"github.com/attache-dev/attache/pkg/blob"
)

// Write streams the given attachments as a zip archive to w. Entries
// are named after the original client filename; duplicate names get a
// numeric suffix so no entry silently overwrites another.
func Write(ctx context.Context, w io.Writer, blobs blob.Store, attachments []api.Attachment) error {
	zw := zip.NewWriter(w)
	seen := make(map[string]int, len(attachments))

	for i := range attachments {
		att := &attachments[i]
		if err := ctx.Err(); err != nil {
			zw.Close()
			return err
		}

		rc, err := blobs.Open(ctx, att.StoredPath)
		if err != nil {
			zw.Close()
			return fmt.Errorf("opening %s: %w", att.ID, err)
		}

		entry, err := zw.CreateHeader(&zip.FileHeader{
			Name:     entryName(seen, att.OriginalFileName),
			Method:   zip.Deflate,
			Modified: att.UploadedAt,
		})
		if err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("creating entry for %s: %w", att.ID, err)
		}

		if _, err := io.Copy(entry, rc); err != nil {
			rc.Close()
			zw.Close()
			return fmt.Errorf("writing %s: %w", att.ID, err)
		}
		rc.Close()
	}

	return zw.Close()
}

// entryName deduplicates archive entry names: the second "report.pdf"
// becomes "report (2).pdf".
func entryName(seen map[string]int, name string) string {
	if name == "" {
		name = "attachment"
	}
	seen[name]++
	if seen[name] == 1 {
		return name
	}

	base, ext := name, ""
	for i := len(name) - 1; i > 0; i-- {
		if name[i] == '.' {
			base, ext = name[:i], name[i:]
			break
		}
	}
	return base + " (" + strconv.Itoa(seen[name]) + ")" + ext
}

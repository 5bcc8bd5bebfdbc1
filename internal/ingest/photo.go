package ingest

import (
	"fmt"
	"io/fs"
)

// maxPhotoBytes keeps a photo well inside the 16 MiB document limit once
// embedded alongside the rest of a report.
const maxPhotoBytes = 8 << 20

// LoadPhoto reads an observation photo from fsys.
func LoadPhoto(fsys fs.FS, name string) ([]byte, error) {
	info, err := fs.Stat(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("stat photo %s: %w", name, err)
	}
	if info.Size() > maxPhotoBytes {
		return nil, fmt.Errorf("photo %s is %d bytes, limit %d", name, info.Size(), maxPhotoBytes)
	}
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read photo %s: %w", name, err)
	}
	return data, nil
}

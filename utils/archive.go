// utils/archive.go
package utils

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
)

// MaxEntrySize caps how much of a single archive entry is read into memory.
const MaxEntrySize = 1 << 20 // 1MB, map.xml is a few KB

var (
	ErrEntryNotFound = errors.New("entry not found in archive")
	ErrEntryTooLarge = errors.New("archive entry too large")
)

// ReadZipEntry returns the contents of the entry called exactly name.
// Only the first matching entry is read; nothing is extracted to disk.
func ReadZipEntry(src, name string) ([]byte, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != name || f.FileInfo().IsDir() {
			continue
		}

		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		defer rc.Close()

		data, err := io.ReadAll(io.LimitReader(rc, MaxEntrySize+1))
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", name, err)
		}
		if len(data) > MaxEntrySize {
			return nil, fmt.Errorf("%s: %w", name, ErrEntryTooLarge)
		}
		return data, nil
	}

	return nil, ErrEntryNotFound
}

package pipeline

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

// Every stage names its output after the source file name alone, so two sources with
// the same name in different directories share one set of cache files.

func (p *Pipeline) parsedPath(source string) string {
	return filepath.Join(p.parsedDir, filepath.Base(source)+parsedSuffix)
}

func (p *Pipeline) chunkedPath(source string) string {
	return filepath.Join(p.chunkedDir, filepath.Base(source)+chunkedSuffix)
}

func (p *Pipeline) markerPath(source string) string {
	return p.chunkedPath(source) + markerSuffix
}

// Invalidate drops the cached outputs of source so the next run parses, chunks and embeds it again.
func (p *Pipeline) Invalidate(source string) error {
	var errs []error
	for _, path := range []string{p.parsedPath(source), p.chunkedPath(source), p.markerPath(source)} {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Indexed reports whether source has an embed marker at least as recent as the file itself.
func (p *Pipeline) Indexed(source string) bool {
	info, err := os.Stat(source)
	if err != nil {
		return false
	}
	marker, err := os.Stat(p.markerPath(source))
	if err != nil {
		return false
	}
	return !marker.ModTime().Before(info.ModTime())
}

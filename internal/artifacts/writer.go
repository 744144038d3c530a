// Package artifacts turns sync decisions into the on-disk library: one .strm
// pointer file per movie/episode, optionally with NFO sidecars, under a
// Movies/Series folder hierarchy. All filesystem access goes through afero
// so tests run against an in-memory tree.
package artifacts

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
)

// Writer owns the artifact tree under a single library root. Workers write
// disjoint files, so the writer itself carries no locking.
type Writer struct {
	fs   afero.Fs
	root string
}

// NewWriter creates a Writer over the OS filesystem rooted at root.
func NewWriter(root string) *Writer {
	return &Writer{fs: afero.NewOsFs(), root: root}
}

// NewWriterFs creates a Writer over an arbitrary filesystem, used by tests.
func NewWriterFs(fs afero.Fs, root string) *Writer {
	return &Writer{fs: fs, root: root}
}

// Root returns the library root path.
func (w *Writer) Root() string {
	return w.root
}

func (w *Writer) abs(rel string) string {
	return filepath.Join(w.root, filepath.FromSlash(rel))
}

// WriteOrUpdate writes content to the artifact at rel (relative to the
// library root), creating parent directories. An existing file with
// identical content is left untouched so media servers don't rescan
// unchanged items.
func (w *Writer) WriteOrUpdate(rel string, content []byte) error {
	target := w.abs(rel)

	if existing, err := afero.ReadFile(w.fs, target); err == nil && bytes.Equal(existing, content) {
		return nil
	}

	if err := w.fs.MkdirAll(filepath.Dir(target), 0755); err != nil {
		return fmt.Errorf("failed to create artifact directory: %w", err)
	}
	if err := afero.WriteFile(w.fs, target, content, 0644); err != nil {
		return fmt.Errorf("failed to write artifact %s: %w", rel, err)
	}
	return nil
}

// Delete removes the artifact at rel, which may be a single file or a whole
// item directory. Missing paths are not an error: the orphan may already be
// gone.
func (w *Writer) Delete(rel string) error {
	target := w.abs(rel)
	info, err := w.fs.Stat(target)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	if info.IsDir() {
		return w.fs.RemoveAll(target)
	}
	return w.fs.Remove(target)
}

// ListExisting walks the library root and returns every .strm pointer file,
// as paths relative to the root. Used to seed the orphan-candidate set and
// as the denominator of the deletion safety threshold.
func (w *Writer) ListExisting() ([]string, error) {
	var found []string
	err := afero.Walk(w.fs, w.root, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() {
			return nil
		}
		if strings.EqualFold(filepath.Ext(p), strmExt) {
			rel, relErr := filepath.Rel(w.root, p)
			if relErr != nil {
				return relErr
			}
			found = append(found, filepath.ToSlash(rel))
		}
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return found, nil
}

// ListStrmUnder returns the pointer files below rel (relative to the library
// root), as root-relative slash paths. A missing directory yields an empty
// list.
func (w *Writer) ListStrmUnder(rel string) ([]string, error) {
	target := w.abs(rel)
	var found []string
	err := afero.Walk(w.fs, target, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if info.IsDir() || !strings.EqualFold(filepath.Ext(p), strmExt) {
			return nil
		}
		relPath, relErr := filepath.Rel(w.root, p)
		if relErr != nil {
			return relErr
		}
		found = append(found, filepath.ToSlash(relPath))
		return nil
	})
	if err != nil && !os.IsNotExist(err) {
		return nil, err
	}
	return found, nil
}

// CountStrm returns how many pointer files live under rel (relative to the
// library root). rel may point at a single file.
func (w *Writer) CountStrm(rel string) int {
	target := w.abs(rel)
	info, err := w.fs.Stat(target)
	if err != nil {
		return 0
	}
	if !info.IsDir() {
		if strings.EqualFold(filepath.Ext(target), strmExt) {
			return 1
		}
		return 0
	}
	count := 0
	afero.Walk(w.fs, target, func(p string, info os.FileInfo, err error) error {
		if err != nil {
			return nil
		}
		if !info.IsDir() && strings.EqualFold(filepath.Ext(p), strmExt) {
			count++
		}
		return nil
	})
	return count
}

// PruneEmptyDirs walks upward from rel removing directories that contain no
// files, stopping at (and never removing) the library root.
func (w *Writer) PruneEmptyDirs(rel string) error {
	dir := filepath.Dir(w.abs(filepath.FromSlash(rel)))
	root := filepath.Clean(w.root)

	for {
		dir = filepath.Clean(dir)
		if dir == root || !strings.HasPrefix(dir, root+string(filepath.Separator)) {
			return nil
		}

		entries, err := afero.ReadDir(w.fs, dir)
		if err != nil {
			if os.IsNotExist(err) {
				dir = filepath.Dir(dir)
				continue
			}
			return err
		}
		if len(entries) > 0 {
			return nil
		}
		if err := w.fs.Remove(dir); err != nil {
			return err
		}
		dir = filepath.Dir(dir)
	}
}

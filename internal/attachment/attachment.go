// Package attachment keeps profile images on disk in step with the
// profileImage field of student records.
//
// Files live flat in one directory and are named "<uuid><ext>", so the
// stored reference a record holds is just the file name. Store never
// touches a record; callers persist the returned reference themselves.
package attachment

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

var (
	// ErrUnsupportedType is returned by Store when the content is not one
	// of the accepted image formats.
	ErrUnsupportedType = errors.New("unsupported image type")

	// ErrTooLarge is returned by Store when the content exceeds the
	// manager's size limit.
	ErrTooLarge = errors.New("image too large")

	// ErrEmpty is returned by Store for zero-byte content.
	ErrEmpty = errors.New("image is empty")
)

// allowed maps accepted MIME types to the extension files are stored with.
var allowed = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/gif":  ".gif",
	"image/webp": ".webp",
	"image/bmp":  ".bmp",
	"image/tiff": ".tif",
	"image/avif": ".avif",
	"image/heic": ".heic",
}

// tmpPrefix marks half-written files. The file server never serves them
// and Sweep removes them once they are past the grace period.
const tmpPrefix = ".tmp-"

// Manager stores, replaces and discards image files under Dir.
type Manager struct {
	dir      string
	maxBytes int64
}

// New creates dir if needed and returns a Manager rooted there.
// maxBytes <= 0 disables the size limit.
func New(dir string, maxBytes int64) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("attachment.New: create dir: %w", err)
	}
	return &Manager{dir: dir, maxBytes: maxBytes}, nil
}

// Dir is the directory images are stored in.
func (m *Manager) Dir() string {
	return m.dir
}

// Store writes the content of r under a fresh unique name and returns
// that name. The file is synced and renamed into place, so once Store
// returns the image is durable and a reader never sees a partial file.
// originalName is only used for logging.
func (m *Manager) Store(r io.Reader, originalName string) (string, error) {
	// Read the sniff window first; mimetype needs the leading bytes only.
	head := make([]byte, 3072)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("Store: read: %w", err)
	}
	head = head[:n]
	if n == 0 {
		return "", ErrEmpty
	}

	mtype := mimetype.Detect(head)
	ext, ok := allowed[mtype.String()]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedType, mtype.String())
	}

	tmp, err := os.CreateTemp(m.dir, tmpPrefix+"*")
	if err != nil {
		return "", fmt.Errorf("Store: create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpName)
		}
	}()

	var body io.Reader = io.MultiReader(bytes.NewReader(head), r)
	if m.maxBytes > 0 {
		// One extra byte tells "exactly at the limit" from "over it".
		body = io.LimitReader(body, m.maxBytes+1)
	}
	written, err := io.Copy(tmp, body)
	if err != nil {
		return "", fmt.Errorf("Store: write: %w", err)
	}
	if m.maxBytes > 0 && written > m.maxBytes {
		return "", fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, m.maxBytes)
	}

	if err := tmp.Sync(); err != nil {
		return "", fmt.Errorf("Store: sync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("Store: close: %w", err)
	}

	name := uuid.NewString() + ext
	if err := os.Rename(tmpName, filepath.Join(m.dir, name)); err != nil {
		return "", fmt.Errorf("Store: rename: %w", err)
	}
	committed = true

	slog.Debug("stored attachment",
		slog.String("ref", name),
		slog.String("original", originalName),
		slog.String("type", mtype.String()),
		slog.Int64("bytes", written),
	)
	return name, nil
}

// CommitFunc persists ref on the owning record and returns the reference
// the record held before, which Replace then discards.
type CommitFunc func(ref string) (previous *string, err error)

// Replace swaps a record's image in three steps:
//
//  1. store the new content under a fresh name,
//  2. commit the new reference to the record,
//  3. discard the file the record previously pointed at.
//
// The old file is never removed while a record still references it, and
// the new one is durable before the record points at it. If commit fails
// the new file is discarded and commit's error is returned unchanged.
// A failure in step 3 is only logged: the record is already updated and
// the leftover file is an orphan for Sweep.
func (m *Manager) Replace(r io.Reader, originalName string, commit CommitFunc) (string, error) {
	ref, err := m.Store(r, originalName)
	if err != nil {
		return "", err
	}

	previous, err := commit(ref)
	if err != nil {
		if derr := m.Discard(&ref); derr != nil {
			slog.Warn("cannot discard uncommitted attachment",
				slog.String("ref", ref), slog.String("error", derr.Error()))
		}
		return "", err
	}

	if previous != nil && *previous == ref {
		return ref, nil
	}
	if err := m.Discard(previous); err != nil {
		slog.Warn("cannot discard replaced attachment",
			slog.String("ref", *previous), slog.String("error", err.Error()))
	}
	return ref, nil
}

// MaxBytes is the size limit for a single image, or 0 for none.
func (m *Manager) MaxBytes() int64 {
	return m.maxBytes
}

// Discard deletes the file named by ref. A nil or empty ref, or a file
// that is already gone, is not an error.
func (m *Manager) Discard(ref *string) error {
	if ref == nil || *ref == "" {
		return nil
	}
	path, ok := m.path(*ref)
	if !ok {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("Discard %s: %w", *ref, err)
	}
	slog.Debug("discarded attachment", slog.String("ref", *ref))
	return nil
}

// Exists reports whether ref names a stored file.
func (m *Manager) Exists(ref string) bool {
	path, ok := m.path(ref)
	if !ok {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Sweep removes files that no record references. Files modified within
// olderThan are kept: they may belong to a create or update that has
// stored its image but not yet written the row. Hidden files such as
// .gitkeep are never attachments and are left alone, except stale
// half-written temp files. With dryRun set nothing is removed. Returns
// the names removed (or that would be).
func (m *Manager) Sweep(referenced []string, olderThan time.Duration, dryRun bool) ([]string, error) {
	keep := make(map[string]struct{}, len(referenced))
	for _, ref := range referenced {
		keep[filepath.Base(ref)] = struct{}{}
	}

	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return nil, fmt.Errorf("Sweep: read dir: %w", err)
	}

	cutoff := time.Now().Add(-olderThan)
	removed := make([]string, 0)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		if strings.HasPrefix(name, ".") && !strings.HasPrefix(name, tmpPrefix) {
			continue
		}
		if _, ok := keep[name]; ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return removed, fmt.Errorf("Sweep: stat %s: %w", name, err)
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if !dryRun {
			if err := os.Remove(filepath.Join(m.dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
				return removed, fmt.Errorf("Sweep: remove %s: %w", name, err)
			}
		}
		removed = append(removed, name)
	}
	return removed, nil
}

// path resolves ref inside the upload dir. References are plain file
// names; anything else, such as "../x" or a hidden file, is rejected.
func (m *Manager) path(ref string) (string, bool) {
	name := filepath.Base(ref)
	if name != ref || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return "", false
	}
	return filepath.Join(m.dir, name), true
}

package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
)

// ImageExtensions are the file extensions treated as dataset images.
var ImageExtensions = []string{".jpg", ".jpeg", ".png", ".bmp", ".webp"}

// IsImage reports whether name has a known image extension.
func IsImage(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range ImageExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// Stem returns the base name without its extension.
func Stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// LabelName returns the label file name paired with an image file name.
func LabelName(imageName string) string {
	return Stem(imageName) + ".txt"
}

// ValidName rejects anything that is not a plain file name inside a store.
func ValidName(name string) bool {
	return name != "" &&
		name == filepath.Base(name) &&
		!strings.HasPrefix(name, ".") &&
		!strings.ContainsAny(name, `/\`)
}

// FindImage looks for an image with the given stem in dir, trying every
// known extension. It returns "" when none exists.
func FindImage(dir, stem string) string {
	for _, ext := range ImageExtensions {
		for _, candidate := range []string{stem + ext, stem + strings.ToUpper(ext)} {
			if _, err := os.Stat(filepath.Join(dir, candidate)); err == nil {
				return candidate
			}
		}
	}
	return ""
}

// IsLabel reports whether name is a label text file.
func IsLabel(name string) bool {
	return strings.EqualFold(filepath.Ext(name), ".txt")
}

// ListImages returns the sorted image file names in dir.
func ListImages(dir string) ([]string, error) {
	return listFiles(dir, IsImage)
}

// ListLabels returns the sorted label file names in dir.
func ListLabels(dir string) ([]string, error) {
	return listFiles(dir, IsLabel)
}

// listFiles returns sorted regular, non-hidden file names in dir that match keep.
func listFiles(dir string, keep func(string) bool) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || strings.HasPrefix(name, ".") || !keep(name) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// writeFileAtomic writes data next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-"+filepath.Base(path)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

// CopyFile copies src to dst through a temporary file, keeping the
// modification time. An existing dst is replaced.
func CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(dst), ".tmp-"+filepath.Base(dst)+"-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() {
		tmp.Close()
		os.Remove(tmpName)
	}

	if _, err := io.Copy(tmp, in); err != nil {
		cleanup()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, info.Mode().Perm()); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chtimes(tmpName, info.ModTime(), info.ModTime()); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, dst)
}

// MoveFile renames src to dst, falling back to copy and delete when they
// live on different filesystems.
func MoveFile(src, dst string) error {
	err := os.Rename(src, dst)
	if err == nil {
		return nil
	}

	var linkErr *os.LinkError
	if !errors.As(err, &linkErr) || !errors.Is(linkErr.Err, syscall.EXDEV) {
		return err
	}

	if err := CopyFile(src, dst); err != nil {
		return err
	}
	return os.Remove(src)
}

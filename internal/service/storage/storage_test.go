package storage

import (
	"bytes"
	"errors"
	"image"
	"image/jpeg"
	"os"
	"path/filepath"
	"regexp"
	"testing"
	"time"

	"labelstation/internal/config"
	"labelstation/internal/logger"
	"labelstation/internal/model"
	"labelstation/internal/repository/memory"
)

// ========================================
// Test Setup Helpers
// ========================================

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	l := logger.NewLogger(&config.Config{LogDirectory: t.TempDir()})
	t.Cleanup(func() { l.Close() })
	return l
}

func testJPEG(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, image.NewGray(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatalf("Failed to encode jpeg: %v", err)
	}
	return buf.Bytes()
}

func newTestCaptureStore(t *testing.T) *CaptureStore {
	t.Helper()
	store, err := NewCaptureStore(filepath.Join(t.TempDir(), "captures"), memory.NewCaptureRepository(), newTestLogger(t))
	if err != nil {
		t.Fatalf("NewCaptureStore failed: %v", err)
	}
	return store
}

// ========================================
// Capture Store Tests
// ========================================

var captureName = regexp.MustCompile(`^\d{8}_\d{6}_\d{6}\.jpg$`)

func TestCaptureStore_EnqueueUniqueNames(t *testing.T) {
	store := newTestCaptureStore(t)
	fixed := time.Date(2026, 2, 6, 19, 1, 46, 656283000, time.UTC)
	store.now = func() time.Time { return fixed }

	data := testJPEG(t, 4, 4)
	seen := make(map[string]bool)
	var previous string
	for i := 0; i < 5; i++ {
		item, err := store.Enqueue(data, 4, 4)
		if err != nil {
			t.Fatalf("Enqueue failed: %v", err)
		}
		if !captureName.MatchString(item.Filename) {
			t.Errorf("Unexpected capture name %s", item.Filename)
		}
		if seen[item.Filename] {
			t.Fatalf("Duplicate capture name %s", item.Filename)
		}
		if previous != "" && item.Filename <= previous {
			t.Errorf("Capture names should increase: %s after %s", item.Filename, previous)
		}
		seen[item.Filename] = true
		previous = item.Filename
	}

	if !seen["20260206_190146_656283.jpg"] {
		t.Errorf("Expected first name to carry the clock time, got %v", seen)
	}
}

func TestCaptureStore_PeekOldestIsIdempotent(t *testing.T) {
	store := newTestCaptureStore(t)

	first, err := store.PeekOldest()
	if err != nil || first != nil {
		t.Fatalf("Expected empty queue, got %+v, %v", first, err)
	}

	data := testJPEG(t, 4, 4)
	a, _ := store.Enqueue(data, 4, 4)
	store.Enqueue(data, 4, 4)

	for i := 0; i < 3; i++ {
		got, err := store.PeekOldest()
		if err != nil {
			t.Fatalf("PeekOldest failed: %v", err)
		}
		if got == nil || got.Filename != a.Filename {
			t.Fatalf("Expected %s, got %+v", a.Filename, got)
		}
	}
}

func TestCaptureStore_LookupAndRemove(t *testing.T) {
	store := newTestCaptureStore(t)
	item, _ := store.Enqueue(testJPEG(t, 4, 4), 4, 4)

	if _, err := store.Lookup(item.Filename); err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if _, err := store.Lookup("nope.jpg"); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := store.Lookup("../etc/passwd"); !errors.Is(err, model.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload for path traversal, got %v", err)
	}

	if err := store.Remove(item.Filename); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	if err := store.Remove(item.Filename); err != nil {
		t.Errorf("Second Remove should be a no-op, got %v", err)
	}
	if _, err := store.Read(item.Filename); !errors.Is(err, model.ErrNotFound) {
		t.Errorf("Expected ErrNotFound after remove, got %v", err)
	}
}

func TestCaptureStore_ClaimOnce(t *testing.T) {
	store := newTestCaptureStore(t)
	item, _ := store.Enqueue(testJPEG(t, 4, 4), 4, 4)

	if err := store.Claim(item.Filename, model.CaptureIntegrating); err != nil {
		t.Fatalf("First claim failed: %v", err)
	}
	err := store.Claim(item.Filename, model.CaptureDiscarding)
	if !errors.Is(err, model.ErrNotFound) || !errors.Is(err, ErrNotPending) {
		t.Errorf("Expected ErrNotFound and ErrNotPending, got %v", err)
	}

	if next, _ := store.PeekOldest(); next != nil {
		t.Errorf("Claimed capture should leave the queue, got %+v", next)
	}
}

func TestCaptureStore_Adopt(t *testing.T) {
	store := newTestCaptureStore(t)
	data := testJPEG(t, 6, 3)

	for _, name := range []string{"20260206_190220_095713.jpg", "20260206_190146_656283.jpg"} {
		if err := os.WriteFile(store.Path(name), data, 0644); err != nil {
			t.Fatalf("Failed to write capture: %v", err)
		}
	}
	os.WriteFile(store.Path("broken.jpg"), []byte("garbage"), 0644)
	os.WriteFile(store.Path("notes.txt"), []byte("ignore me"), 0644)

	n, err := store.Adopt()
	if err != nil {
		t.Fatalf("Adopt failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 adopted captures, got %d", n)
	}

	oldest, _ := store.PeekOldest()
	if oldest == nil || oldest.Filename != "20260206_190146_656283.jpg" {
		t.Errorf("Expected lexically first capture at the head, got %+v", oldest)
	}
	if oldest != nil && (oldest.Width != 6 || oldest.Height != 3) {
		t.Errorf("Expected 6x3, got %dx%d", oldest.Width, oldest.Height)
	}

	again, _ := store.Adopt()
	if again != 0 {
		t.Errorf("Second Adopt should add nothing, got %d", again)
	}
}

// ========================================
// Dataset Store Tests
// ========================================

func newTestDatasetStore(t *testing.T) *DatasetStore {
	t.Helper()
	store, err := NewDatasetStore(filepath.Join(t.TempDir(), "dataset_full"), newTestLogger(t))
	if err != nil {
		t.Fatalf("NewDatasetStore failed: %v", err)
	}
	return store
}

func TestDatasetStore_Insert(t *testing.T) {
	store := newTestDatasetStore(t)

	if err := store.Insert("a.jpg", []byte("img"), []byte("0 0.5 0.5 0.2 0.2\n")); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	label, err := os.ReadFile(filepath.Join(store.LabelsDir(), "a.txt"))
	if err != nil {
		t.Fatalf("Label missing: %v", err)
	}
	if string(label) != "0 0.5 0.5 0.2 0.2\n" {
		t.Errorf("Unexpected label %q", label)
	}
	if img, lbl := store.Has("a.jpg"); !img || !lbl {
		t.Errorf("Expected both halves, got image=%v label=%v", img, lbl)
	}

	staged, _ := os.ReadDir(filepath.Join(store.Root(), stagingDirName))
	if len(staged) != 0 {
		t.Errorf("Staging should be empty after insert, found %d", len(staged))
	}
}

func TestDatasetStore_InsertRejectsBadName(t *testing.T) {
	store := newTestDatasetStore(t)
	if err := store.Insert("../a.jpg", []byte("img"), nil); !errors.Is(err, model.ErrMalformedPayload) {
		t.Errorf("Expected ErrMalformedPayload, got %v", err)
	}
}

func TestDatasetStore_EntriesAndOrphans(t *testing.T) {
	store := newTestDatasetStore(t)

	store.Insert("a.jpg", []byte("img"), []byte(""))
	store.Insert("b.jpg", []byte("img"), []byte(""))
	os.WriteFile(filepath.Join(store.ImagesDir(), "lonely.jpg"), []byte("img"), 0644)
	os.WriteFile(filepath.Join(store.LabelsDir(), "ghost.txt"), []byte(""), 0644)

	entries, orphans, err := store.Entries()
	if err != nil {
		t.Fatalf("Entries failed: %v", err)
	}
	if len(entries) != 2 || entries[0].Stem != "a" || entries[1].Stem != "b" {
		t.Errorf("Unexpected entries: %+v", entries)
	}
	if len(orphans) != 2 {
		t.Errorf("Expected 2 orphans, got %v", orphans)
	}
}

func TestDatasetStore_PurgeStaging(t *testing.T) {
	store := newTestDatasetStore(t)
	os.WriteFile(filepath.Join(store.Root(), stagingDirName, "x.jpg"), []byte("img"), 0644)

	n, err := store.PurgeStaging()
	if err != nil {
		t.Fatalf("PurgeStaging failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 purged file, got %d", n)
	}
}

// ========================================
// Rejection Store and File Helper Tests
// ========================================

func TestRejectionStore_Accept(t *testing.T) {
	dir := t.TempDir()
	store, err := NewRejectionStore(filepath.Join(dir, "delete"))
	if err != nil {
		t.Fatalf("NewRejectionStore failed: %v", err)
	}

	src := filepath.Join(dir, "a.jpg")
	os.WriteFile(src, []byte("img"), 0644)

	if err := store.Accept(src, "a.jpg"); err != nil {
		t.Fatalf("Accept failed: %v", err)
	}
	if _, err := os.Stat(src); !os.IsNotExist(err) {
		t.Error("Source should be moved, not copied")
	}
	if !store.Has("a.jpg") {
		t.Error("Rejected file should be present")
	}
	if n, _ := store.Count(); n != 1 {
		t.Errorf("Expected count 1, got %d", n)
	}
}

func TestCopyFile_PreservesModTime(t *testing.T) {
	dir := t.TempDir()
	src := filepath.Join(dir, "src.jpg")
	dst := filepath.Join(dir, "dst.jpg")
	os.WriteFile(src, []byte("payload"), 0644)
	old := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	os.Chtimes(src, old, old)
	os.WriteFile(dst, []byte("stale content"), 0644)

	if err := CopyFile(src, dst); err != nil {
		t.Fatalf("CopyFile failed: %v", err)
	}
	data, _ := os.ReadFile(dst)
	if string(data) != "payload" {
		t.Errorf("Expected overwritten content, got %q", data)
	}
	info, _ := os.Stat(dst)
	if !info.ModTime().Equal(old) {
		t.Errorf("Expected mod time %v, got %v", old, info.ModTime())
	}
}

func TestNames(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
		label string
	}{
		{"20260206_190146_656283.jpg", true, "20260206_190146_656283.txt"},
		{"a.b.png", true, "a.b.txt"},
		{".hidden.jpg", false, ".hidden.txt"},
		{"../x.jpg", false, "x.txt"},
		{"", false, ".txt"},
	}

	for _, tt := range tests {
		if got := ValidName(tt.name); got != tt.valid {
			t.Errorf("ValidName(%q) = %v, expected %v", tt.name, got, tt.valid)
		}
		if tt.name != "" {
			if got := LabelName(tt.name); got != tt.label {
				t.Errorf("LabelName(%q) = %q, expected %q", tt.name, got, tt.label)
			}
		}
	}
}

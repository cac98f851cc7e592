package editor

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"cv-editor/internal/types"
)

func TestHistorySaveAndUndo(t *testing.T) {
	h := NewHistoryManager(t.TempDir(), 0)

	for i := 1; i <= 3; i++ {
		if _, err := h.SaveVersion("cv", []byte(fmt.Sprintf("v%d", i))); err != nil {
			t.Fatalf("SaveVersion(%d) error = %v", i, err)
		}
	}

	latest, err := h.Latest("cv")
	if err != nil || string(latest) != "v3" {
		t.Fatalf("Latest() = %q, %v", latest, err)
	}

	for _, want := range []string{"v3", "v2", "v1"} {
		got, err := h.Undo("cv")
		if err != nil {
			t.Fatalf("Undo() error = %v", err)
		}
		if string(got) != want {
			t.Errorf("Undo() = %q, want %q", got, want)
		}
	}

	_, err = h.Undo("cv")
	var appErr *types.AppError
	if !errors.As(err, &appErr) || appErr.Code != types.ErrFileNotFound {
		t.Errorf("Undo() on empty history error = %v, want %s", err, types.ErrFileNotFound)
	}
}

func TestHistoryMaxVersions(t *testing.T) {
	dir := t.TempDir()
	h := NewHistoryManager(dir, 2)
	for i := 0; i < 5; i++ {
		if _, err := h.SaveVersion("doc", []byte{byte(i)}); err != nil {
			t.Fatalf("SaveVersion() error = %v", err)
		}
	}

	versions, err := h.ListVersions("doc")
	if err != nil {
		t.Fatalf("ListVersions() error = %v", err)
	}
	if len(versions) != 2 {
		t.Fatalf("kept %d versions, want 2", len(versions))
	}
	newest, _ := os.ReadFile(versions[0])
	oldest, _ := os.ReadFile(versions[1])
	if !bytes.Equal(newest, []byte{4}) || !bytes.Equal(oldest, []byte{3}) {
		t.Errorf("kept versions %v and %v, want 4 and 3", newest, oldest)
	}
}

func TestHistoryDocumentsAreSeparate(t *testing.T) {
	h := NewHistoryManager(t.TempDir(), 5)
	h.SaveVersion("alice", []byte("a"))
	h.SaveVersion("bob", []byte("b"))

	got, err := h.Undo("alice")
	if err != nil || string(got) != "a" {
		t.Errorf("Undo(alice) = %q, %v", got, err)
	}
	if versions, _ := h.ListVersions("bob"); len(versions) != 1 {
		t.Errorf("bob has %d versions, want 1", len(versions))
	}

	if err := h.Clear("bob"); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}
	if versions, _ := h.ListVersions("bob"); len(versions) != 0 {
		t.Errorf("bob has %d versions after Clear", len(versions))
	}
}

func TestHistoryRejectsUnsafeIDs(t *testing.T) {
	dir := t.TempDir()
	h := NewHistoryManager(filepath.Join(dir, "history"), 0)
	for _, id := range []string{"", "..", "../escape", "a/b", "."} {
		if _, err := h.SaveVersion(id, []byte("x")); err == nil {
			t.Errorf("SaveVersion(%q) should fail", id)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "escape")); err == nil {
		t.Error("a version was written outside the history directory")
	}
}

func TestDocumentID(t *testing.T) {
	a := DocumentID([]byte("%PDF-1.4 a"))
	if a != DocumentID([]byte("%PDF-1.4 a")) {
		t.Error("DocumentID is not stable")
	}
	if a == DocumentID([]byte("%PDF-1.4 b")) {
		t.Error("different documents share an ID")
	}
	if len(a) != 16 || !validDocumentID.MatchString(a) {
		t.Errorf("DocumentID = %q", a)
	}
}

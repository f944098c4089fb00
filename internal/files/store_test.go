package files

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveKeepsExtensionOnly(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}

	name, err := store.Save(strings.NewReader("receipt-bytes"), "../../etc/Lunch Receipt.PDF")
	if err != nil {
		t.Fatalf("save: %v", err)
	}
	if !strings.HasSuffix(name, ".pdf") {
		t.Fatalf("expected lowercased extension, got %q", name)
	}
	if strings.ContainsAny(name, "/\\") {
		t.Fatalf("stored name must be a bare filename, got %q", name)
	}

	data, err := os.ReadFile(filepath.Join(store.Dir(), name))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}
	if string(data) != "receipt-bytes" {
		t.Fatalf("unexpected content %q", data)
	}
}

func TestSaveGeneratesUniqueNames(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	a, _ := store.Save(strings.NewReader("a"), "same.png")
	b, _ := store.Save(strings.NewReader("b"), "same.png")
	if a == b {
		t.Fatalf("expected distinct names, both %q", a)
	}
}

func TestRemoveMissingFileIsNoop(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if err := store.Remove("never-existed.png"); err != nil {
		t.Fatalf("remove missing: %v", err)
	}
}

package artifact

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestFileStore_PutGet(t *testing.T) {
	root := t.TempDir()
	s, err := NewFileStore(root)
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()

	if err := s.Put(ctx, "reports/a.txt", []byte("hello"), "text/plain"); err != nil {
		t.Fatalf("Put: %v", err)
	}
	got, err := s.Get(ctx, "reports/a.txt")
	if err != nil || string(got) != "hello" {
		t.Fatalf("Get: %q %v", got, err)
	}

	// Nothing half-written sits next to the artifact.
	entries, err := os.ReadDir(filepath.Join(root, "reports"))
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("unexpected files: %v", entries)
	}
}

func TestFileStore_RejectsEscapingKeys(t *testing.T) {
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"", "../outside.txt", "/etc/passwd", "a/../../b"} {
		if err := s.Put(ctx, key, []byte("x"), ""); err == nil {
			t.Fatalf("key %q accepted", key)
		}
	}
}

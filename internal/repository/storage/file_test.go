package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
)

func TestFileBackend_ReadMissing(t *testing.T) {
	b, err := NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}

	if _, err := b.Read(context.Background(), "users.json"); !errors.Is(err, ErrNotExist) {
		t.Errorf("Read() error = %v, want ErrNotExist", err)
	}
}

func TestFileBackend_WriteReplaces(t *testing.T) {
	dir := t.TempDir()
	b, err := NewFileBackend(filepath.Join(dir, "nested", "data"))
	if err != nil {
		t.Fatalf("NewFileBackend() error = %v", err)
	}
	ctx := context.Background()

	if err := b.Write(ctx, "shares.json", []byte(`{"a":1}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if err := b.Write(ctx, "shares.json", []byte(`{}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := b.Read(ctx, "shares.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != `{}` {
		t.Errorf("Read() = %s, want {}", got)
	}

	entries, err := os.ReadDir(filepath.Join(dir, "nested", "data"))
	if err != nil {
		t.Fatalf("ReadDir() error = %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("data dir has %d entries, temp files were left behind", len(entries))
	}
}

func TestFileBackend_NameCannotEscapeDir(t *testing.T) {
	dir := t.TempDir()
	b, _ := NewFileBackend(filepath.Join(dir, "data"))

	if err := b.Write(context.Background(), "../escape.json", []byte(`{}`)); err != nil {
		t.Fatalf("Write() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "escape.json")); err == nil {
		t.Error("document was written outside the data dir")
	}
}

func TestFileBackend_ConcurrentWritesStayWhole(t *testing.T) {
	b, _ := NewFileBackend(t.TempDir())
	ctx := context.Background()
	docs := []string{`{"writer":"one"}`, `{"writer":"two"}`}

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(doc string) {
			defer wg.Done()
			b.Write(ctx, "conversations.json", []byte(doc))
		}(docs[i%2])
	}
	wg.Wait()

	got, err := b.Read(ctx, "conversations.json")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if string(got) != docs[0] && string(got) != docs[1] {
		t.Errorf("Read() = %s, want one writer's whole document", got)
	}
}

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	bterrors "github.com/matzehuels/btgraph/pkg/errors"
)

func TestFileStoreSaveLoad(t *testing.T) {
	ctx := context.Background()
	s, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore() error = %v", err)
	}
	defer s.Close()

	data := []byte(`{"schema_version": 2}`)
	if err := s.Save(ctx, "npc/guard", data); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	got, err := s.Load(ctx, "npc/guard")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if string(got) != string(data) {
		t.Errorf("Load() = %s, want %s", got, data)
	}

	// The .json suffix is optional
	if _, err := s.Load(ctx, "npc/guard.json"); err != nil {
		t.Errorf("Load(with extension) error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.Dir(), "npc", "guard.json")); err != nil {
		t.Errorf("document file missing: %v", err)
	}
}

func TestFileStoreNotFound(t *testing.T) {
	s, _ := NewFileStore(t.TempDir())
	_, err := s.Load(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want ErrNotFound", err)
	}
}

func TestFileStoreRejectsUnsafeNames(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())
	for _, name := range []string{"../escape", "/abs", "a\\b", ""} {
		if err := s.Save(ctx, name, []byte("{}")); !bterrors.Is(err, bterrors.ErrCodeInvalidName) {
			t.Errorf("Save(%q) error = %v, want %v", name, err, bterrors.ErrCodeInvalidName)
		}
	}
}

func TestFileStoreBackupAndList(t *testing.T) {
	ctx := context.Background()
	s, _ := NewFileStore(t.TempDir())

	_ = s.Save(ctx, "b", []byte("{}"))
	_ = s.Save(ctx, "a/c", []byte("{}"))
	if err := s.Backup(ctx, "b", []byte("old")); err != nil {
		t.Fatalf("Backup() error = %v", err)
	}

	backup, err := os.ReadFile(filepath.Join(s.Dir(), "b.json"+BackupSuffix))
	if err != nil || string(backup) != "old" {
		t.Errorf("backup = %q, %v", backup, err)
	}

	names, err := s.List(ctx)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if want := []string{"a/c", "b"}; !reflect.DeepEqual(names, want) {
		t.Errorf("List() = %v, want %v", names, want)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "doc.json")

	if err := WriteFileAtomic(path, []byte("one")); err != nil {
		t.Fatalf("WriteFileAtomic() error = %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two")); err != nil {
		t.Fatalf("WriteFileAtomic() overwrite error = %v", err)
	}
	got, _ := os.ReadFile(path)
	if string(got) != "two" {
		t.Errorf("content = %q, want %q", got, "two")
	}

	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temporary files left behind: %v", entries)
	}
}

func TestBackupPath(t *testing.T) {
	if got := BackupPath("trees/guard.json"); got != "trees/guard.json.v1.backup" {
		t.Errorf("BackupPath() = %q", got)
	}
}

func TestMongoDocumentEncoding(t *testing.T) {
	now := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("X", 3600))
	doc := newMongoDocument("npc/guard", []byte(`{"a": 1}`), now)

	raw, err := bson.Marshal(doc)
	if err != nil {
		t.Fatalf("bson.Marshal() error = %v", err)
	}
	var m bson.M
	if err := bson.Unmarshal(raw, &m); err != nil {
		t.Fatal(err)
	}
	if m["_id"] != "npc/guard" || m["data"] != `{"a": 1}` {
		t.Errorf("encoded = %v", m)
	}
	if !doc.UpdatedAt.Equal(now) || doc.UpdatedAt.Location() != time.UTC {
		t.Errorf("UpdatedAt = %v, want UTC", doc.UpdatedAt)
	}
}

func TestNewMongoStoreRejectsBadURI(t *testing.T) {
	_, err := NewMongoStore(context.Background(), "http://localhost:27017", "")
	if !bterrors.Is(err, bterrors.ErrCodeInvalidInput) {
		t.Errorf("NewMongoStore() error = %v, want %v", err, bterrors.ErrCodeInvalidInput)
	}
}

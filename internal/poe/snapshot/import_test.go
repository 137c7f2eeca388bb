package snapshot

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

func writeBundle(t *testing.T, snap *poe.Snapshot) string {
	t.Helper()

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshaling bundle: %v", err)
	}
	path := filepath.Join(t.TempDir(), "bundle.json")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatalf("writing bundle: %v", err)
	}
	return path
}

func TestImportFile(t *testing.T) {
	store := New(t.TempDir(), nil)
	path := writeBundle(t, testSnapshot("1.2.0", "2025-08-01T10:00:00Z"))

	id, err := store.ImportFile(path)
	if err != nil {
		t.Fatalf("ImportFile: %v", err)
	}
	if id == "" {
		t.Fatal("empty snapshot id")
	}

	loaded, err := store.LoadLatest()
	if err != nil {
		t.Fatalf("LoadLatest after import: %v", err)
	}
	if loaded.Version != "1.2.0" {
		t.Errorf("Version = %q, want 1.2.0", loaded.Version)
	}
}

func TestImportFileRejectsIncompleteBundle(t *testing.T) {
	store := New(t.TempDir(), nil)

	snap := testSnapshot("", "2025-08-01T10:00:00Z")
	snap.Version = ""
	path := writeBundle(t, snap)

	_, err := store.ImportFile(path)
	var ve *poe.ValidationError
	if !errors.As(err, &ve) {
		t.Errorf("error type = %T, want *poe.ValidationError", err)
	}
}

func TestImportFileMissingFile(t *testing.T) {
	store := New(t.TempDir(), nil)

	_, err := store.ImportFile(filepath.Join(t.TempDir(), "absent.json"))
	var se *poe.StorageError
	if !errors.As(err, &se) {
		t.Errorf("error type = %T, want *poe.StorageError", err)
	}
}

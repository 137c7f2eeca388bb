package snapshot

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

// ImportFile reads a bundled single-file snapshot JSON and saves it to
// the store, returning the snapshot directory. The bundle layout is the
// Snapshot type itself; the store splits it into per-document files.
func (s *Store) ImportFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", &poe.StorageError{Message: fmt.Sprintf("reading snapshot bundle %s", path), Err: err}
	}

	var snap poe.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return "", &poe.StorageError{Message: fmt.Sprintf("parsing snapshot bundle %s", path), Err: err}
	}

	if snap.Version == "" {
		return "", &poe.ValidationError{Message: "snapshot bundle has no version"}
	}
	if snap.CreatedAt == "" {
		return "", &poe.ValidationError{Message: "snapshot bundle has no createdAt"}
	}

	dir, err := s.Save(&snap)
	if err != nil {
		return "", err
	}

	s.logger.Info("imported snapshot bundle",
		"path", path, "directory", dir, "version", snap.Version)

	return dir, nil
}

// Package snapshot persists and resolves immutable dataset snapshots.
//
// Each snapshot occupies its own directory containing one JSON document per
// category plus an index manifest; a latest.json pointer at the store root
// names the current snapshot. The pointer is written last during a save so
// a crash mid-write can never expose a partial snapshot as latest.
package snapshot

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

const (
	indexFile     = "index.json"
	latestPointer = "latest.json"
)

type pointerFile struct {
	ID string `json:"id"`
}

// Store is a filesystem-backed snapshot store rooted at a single directory.
type Store struct {
	dir    string
	logger *slog.Logger
}

// New creates a Store over dir. A nil logger disables store-boundary
// warnings.
func New(dir string, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, logger: logger}
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

// EnsureReady creates the backing directory if absent. Idempotent.
func (s *Store) EnsureReady() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return &poe.StorageError{Message: "creating snapshot directory", Err: err}
	}
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0o644)
}

func (s *Store) resolveDir(id string) string {
	if filepath.IsAbs(id) {
		return id
	}
	return filepath.Join(s.dir, id)
}

func (s *Store) readIndex(dir string) (poe.SnapshotIndexFile, error) {
	var index poe.SnapshotIndexFile
	err := readJSON(filepath.Join(dir, indexFile), &index)
	return index, err
}

func (s *Store) readPointer() (string, bool) {
	var p pointerFile
	if err := readJSON(filepath.Join(s.dir, latestPointer), &p); err != nil || p.ID == "" {
		return "", false
	}
	return p.ID, true
}

func (s *Store) writePointer(id string) error {
	return writeJSON(filepath.Join(s.dir, latestPointer), pointerFile{ID: id})
}

// snapshotIDs lists directory names that contain a readable index manifest.
func (s *Store) snapshotIDs() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.dir, entry.Name(), indexFile)); err != nil {
			s.logger.Debug("skipping snapshot without index file", "entry", entry.Name())
			continue
		}
		ids = append(ids, entry.Name())
	}
	sort.Strings(ids)

	return ids, nil
}

// LoadLatest resolves and loads the current snapshot. The pointer file is
// tried first; if it is missing, stale or unreadable, the store scans all
// snapshot directories, picks the greatest createdAt and rewrites the
// pointer as a repair side effect.
func (s *Store) LoadLatest() (*poe.Snapshot, error) {
	if err := s.EnsureReady(); err != nil {
		return nil, err
	}

	if id, ok := s.readPointer(); ok {
		snap, err := s.Load(id)
		if err == nil {
			return snap, nil
		}
		s.logger.Warn("failed to load pointed snapshot, falling back to scan", "id", id, "error", err)
	}

	ids, err := s.snapshotIDs()
	if err != nil {
		return nil, &poe.StorageError{Message: "scanning snapshot directory", Err: err}
	}
	if len(ids) == 0 {
		return nil, &poe.StorageError{
			Message: fmt.Sprintf("no snapshot data found in %s; run the ingestion pipeline first", s.dir),
		}
	}

	latestID := ids[0]
	latestCreatedAt := ""
	for _, id := range ids {
		index, err := s.readIndex(s.resolveDir(id))
		if err != nil {
			s.logger.Warn("skipping unparsable snapshot index", "id", id, "error", err)
			continue
		}
		if index.CreatedAt >= latestCreatedAt {
			latestCreatedAt = index.CreatedAt
			latestID = id
		}
	}

	if err := s.writePointer(latestID); err != nil {
		return nil, &poe.StorageError{Message: "repairing latest pointer", Err: err}
	}

	return s.Load(latestID)
}

// Load reads a specific snapshot by id.
func (s *Store) Load(id string) (*poe.Snapshot, error) {
	dir := s.resolveDir(id)

	index, err := s.readIndex(dir)
	if err != nil {
		return nil, &poe.StorageError{Message: fmt.Sprintf("reading snapshot index for %q", id), Err: err}
	}

	snap := &poe.Snapshot{
		Version:   index.Version,
		CreatedAt: index.CreatedAt,
		Metadata:  index.Metadata,
	}

	load := func(name string, v any) error {
		if err := readJSON(filepath.Join(dir, name), v); err != nil {
			return &poe.StorageError{Message: fmt.Sprintf("reading snapshot document %s", name), Err: err}
		}
		return nil
	}

	if err := load(index.Files.Prices, &snap.Prices); err != nil {
		return nil, err
	}
	if err := load(index.Files.Mods, &snap.Mods); err != nil {
		return nil, err
	}
	if err := load(index.Files.Bases, &snap.Bases); err != nil {
		return nil, err
	}
	if err := load(index.Files.Gems, &snap.Gems); err != nil {
		return nil, err
	}
	if err := load(index.Files.Tags, &snap.Tags); err != nil {
		return nil, err
	}
	if err := load(index.Files.Indices, &snap.NameIndex); err != nil {
		return nil, err
	}
	if err := load(index.Files.Pob, &snap.Pob.Builds); err != nil {
		return nil, err
	}
	if err := load(index.Files.Rules, &snap.Rules); err != nil {
		return nil, err
	}

	// Materialize the item slice deterministically; map order is not.
	snap.Items = make([]poe.ItemPrice, 0, len(snap.Prices.Items))
	for _, item := range snap.Prices.Items {
		snap.Items = append(snap.Items, item)
	}
	sort.Slice(snap.Items, func(i, j int) bool {
		return snap.Items[i].ItemID < snap.Items[j].ItemID
	})

	return snap, nil
}

func sanitizeID(version, createdAt string) string {
	ts := strings.NewReplacer(":", "-", ".", "-").Replace(createdAt)
	var v strings.Builder
	for _, r := range strings.ToLower(version) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			v.WriteRune(r)
		default:
			v.WriteByte('-')
		}
	}
	return v.String() + "-" + ts
}

// Save writes all snapshot sub-documents, then the index manifest, then
// atomically updates the latest pointer last. Returns the snapshot
// directory.
func (s *Store) Save(snap *poe.Snapshot) (string, error) {
	if err := s.EnsureReady(); err != nil {
		return "", err
	}

	id := sanitizeID(snap.Version, snap.CreatedAt)
	dir := s.resolveDir(id)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", &poe.StorageError{Message: "creating snapshot directory", Err: err}
	}

	files := poe.SnapshotFileMap{
		Prices:  "prices.json",
		Mods:    "mods.json",
		Bases:   "bases.json",
		Gems:    "gems.json",
		Tags:    "tags.json",
		Indices: "indices.json",
		Pob:     "pob.json",
		Rules:   "rules.json",
	}

	documents := []struct {
		name  string
		value any
	}{
		{files.Prices, snap.Prices},
		{files.Mods, snap.Mods},
		{files.Bases, snap.Bases},
		{files.Gems, snap.Gems},
		{files.Tags, snap.Tags},
		{files.Indices, snap.NameIndex},
		{files.Pob, snap.Pob.Builds},
		{files.Rules, snap.Rules},
	}
	for _, doc := range documents {
		if err := writeJSON(filepath.Join(dir, doc.name), doc.value); err != nil {
			return "", &poe.StorageError{Message: fmt.Sprintf("writing snapshot document %s", doc.name), Err: err}
		}
	}

	index := poe.SnapshotIndexFile{
		Version:   snap.Version,
		CreatedAt: snap.CreatedAt,
		Metadata:  snap.Metadata,
		Files:     files,
		Stats:     &poe.SnapshotStats{ItemCount: len(snap.Prices.Items)},
	}
	if err := writeJSON(filepath.Join(dir, indexFile), index); err != nil {
		return "", &poe.StorageError{Message: "writing snapshot index", Err: err}
	}

	if err := s.writePointer(id); err != nil {
		return "", &poe.StorageError{Message: "updating latest pointer", Err: err}
	}

	s.logger.Info("snapshot saved", "directory", dir)

	return dir, nil
}

// List enumerates valid snapshots sorted by createdAt. Directories whose
// index fails to parse are skipped with a warning, not a failure.
func (s *Store) List() ([]poe.SnapshotSummary, error) {
	if err := s.EnsureReady(); err != nil {
		return nil, err
	}

	ids, err := s.snapshotIDs()
	if err != nil {
		return nil, &poe.StorageError{Message: "scanning snapshot directory", Err: err}
	}

	summaries := make([]poe.SnapshotSummary, 0, len(ids))
	for _, id := range ids {
		dir := s.resolveDir(id)
		index, err := s.readIndex(dir)
		if err != nil {
			s.logger.Warn("failed to parse snapshot", "id", id, "error", err)
			continue
		}

		itemCount := 0
		if index.Stats != nil {
			itemCount = index.Stats.ItemCount
		} else {
			var prices poe.SnapshotPriceTables
			if err := readJSON(filepath.Join(dir, index.Files.Prices), &prices); err != nil {
				s.logger.Warn("failed to count snapshot items", "id", id, "error", err)
				continue
			}
			itemCount = len(prices.Items)
		}

		summaries = append(summaries, poe.SnapshotSummary{
			ID:        id,
			CreatedAt: index.CreatedAt,
			Version:   index.Version,
			ItemCount: itemCount,
		})
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].CreatedAt < summaries[j].CreatedAt
	})

	return summaries, nil
}

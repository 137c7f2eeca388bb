package archive

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"github.com/exilecraft/poe-crafting-server/internal/poe/normalize"
	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

const lastRecordedKey = "last_recorded_version"

// Archive records snapshot prices and serves history queries.
type Archive struct {
	db *DB
}

// NewArchive creates an Archive over an initialized database.
func NewArchive(db *DB) *Archive {
	return &Archive{db: db}
}

// PricePoint is one archived price observation for an item.
type PricePoint struct {
	SnapshotVersion string  `json:"snapshotVersion"`
	ItemID          string  `json:"itemId"`
	Name            string  `json:"name"`
	Category        string  `json:"category"`
	ChaosValue      float64 `json:"chaosValue"`
	DivineValue     float64 `json:"divineValue"`
	RecordedAt      string  `json:"recordedAt"`
}

// RecordSnapshot archives every item price in the snapshot. Recording is
// idempotent per snapshot version: a version seen before is skipped and
// zero rows are reported.
func (a *Archive) RecordSnapshot(ctx context.Context, snap *poe.Snapshot) (int, error) {
	recorded := time.Now().UTC().Format(time.RFC3339)

	ids := make([]string, 0, len(snap.Prices.Items))
	for id := range snap.Prices.Items {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	inserted := 0
	err := a.db.InTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO snapshots (version, league, created_at, item_count, recorded_at)
			VALUES (?, ?, ?, ?, ?)
		`, snap.Version, snap.Metadata.League, snap.CreatedAt, len(ids), recorded)
		if err != nil {
			return fmt.Errorf("inserting snapshot row: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("checking snapshot row: %w", err)
		}
		if rows == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO price_points
			(snapshot_version, item_id, name, normalized_name, category, chaos_value, divine_value, recorded_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("preparing statement: %w", err)
		}
		defer func() { _ = stmt.Close() }()

		for _, id := range ids {
			item := snap.Prices.Items[id]
			name := item.NormalizedName
			if name == "" {
				name = normalize.Name(item.Name)
			}
			_, err := stmt.ExecContext(ctx,
				snap.Version, item.ItemID, item.Name, name,
				item.Category, item.ChaosValue, item.DivineValue, recorded,
			)
			if err != nil {
				return fmt.Errorf("inserting price point for %s: %w", id, err)
			}
			inserted++
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	if inserted > 0 {
		if err := a.db.SetSyncMetadata(ctx, lastRecordedKey, snap.Version); err != nil {
			return inserted, err
		}
	}

	return inserted, nil
}

// LastRecordedVersion returns the most recently archived snapshot
// version, or "" when nothing has been recorded.
func (a *Archive) LastRecordedVersion(ctx context.Context) (string, error) {
	return a.db.GetSyncMetadata(ctx, lastRecordedKey)
}

// PriceHistory returns archived price points for an item, newest first.
// The identifier matches either the raw item id or the normalized display
// name. A limit below 1 defaults to 20 points.
func (a *Archive) PriceHistory(ctx context.Context, identifier string, limit int) ([]PricePoint, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := a.db.QueryContext(ctx, `
		SELECT snapshot_version, item_id, name, category, chaos_value, divine_value, recorded_at
		FROM price_points
		WHERE item_id = ? OR normalized_name = ?
		ORDER BY recorded_at DESC, snapshot_version DESC
		LIMIT ?
	`, identifier, normalize.Name(identifier), limit)
	if err != nil {
		return nil, fmt.Errorf("querying price history: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var points []PricePoint
	for rows.Next() {
		var p PricePoint
		if err := rows.Scan(
			&p.SnapshotVersion, &p.ItemID, &p.Name, &p.Category,
			&p.ChaosValue, &p.DivineValue, &p.RecordedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning price point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating price history: %w", err)
	}

	return points, nil
}

// PruneOldPoints removes price points older than the given number of
// days, plus any snapshot rows left with no points.
func (a *Archive) PruneOldPoints(ctx context.Context, olderThanDays int) (int64, error) {
	var pruned int64
	err := a.db.InTransaction(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			DELETE FROM price_points
			WHERE recorded_at < datetime('now', ?)
		`, fmt.Sprintf("-%d days", olderThanDays))
		if err != nil {
			return fmt.Errorf("pruning price points: %w", err)
		}
		pruned, err = res.RowsAffected()
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
			DELETE FROM snapshots
			WHERE version NOT IN (SELECT DISTINCT snapshot_version FROM price_points)
		`)
		if err != nil {
			return fmt.Errorf("pruning empty snapshots: %w", err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return pruned, nil
}

package archive

import (
	"context"
	"testing"

	"github.com/exilecraft/poe-crafting-server/pkg/poe"
)

func testArchive(t *testing.T) *Archive {
	t.Helper()

	db, err := OpenAndInit(context.Background(), ":memory:")
	if err != nil {
		t.Fatalf("OpenAndInit: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	return NewArchive(db)
}

func pricedSnapshot(version, createdAt string, chaosValue float64) *poe.Snapshot {
	return &poe.Snapshot{
		Version:   version,
		CreatedAt: createdAt,
		Metadata:  poe.SnapshotMetadata{League: "Settlers"},
		Prices: poe.SnapshotPriceTables{
			Items: map[string]poe.ItemPrice{
				"divine-orb": {
					ItemID: "divine-orb", Name: "Divine Orb", NormalizedName: "divine orb",
					Category: "currency", ChaosValue: chaosValue, DivineValue: 1,
				},
				"chaos-orb": {
					ItemID: "chaos-orb", Name: "Chaos Orb", NormalizedName: "chaos orb",
					Category: "currency", ChaosValue: 1,
				},
			},
		},
	}
}

func TestRecordSnapshotIdempotent(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	n, err := a.RecordSnapshot(ctx, pricedSnapshot("0.1.0", "2025-08-01T00:00:00Z", 200))
	if err != nil {
		t.Fatalf("RecordSnapshot: %v", err)
	}
	if n != 2 {
		t.Errorf("inserted %d points, want 2", n)
	}

	again, err := a.RecordSnapshot(ctx, pricedSnapshot("0.1.0", "2025-08-01T00:00:00Z", 200))
	if err != nil {
		t.Fatalf("second RecordSnapshot: %v", err)
	}
	if again != 0 {
		t.Errorf("re-recording inserted %d points, want 0", again)
	}

	version, err := a.LastRecordedVersion(ctx)
	if err != nil || version != "0.1.0" {
		t.Errorf("LastRecordedVersion = %q, %v", version, err)
	}
}

func TestPriceHistory(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	for i, snap := range []*poe.Snapshot{
		pricedSnapshot("0.1.0", "2025-08-01T00:00:00Z", 190),
		pricedSnapshot("0.2.0", "2025-08-02T00:00:00Z", 200),
		pricedSnapshot("0.3.0", "2025-08-03T00:00:00Z", 210),
	} {
		if _, err := a.RecordSnapshot(ctx, snap); err != nil {
			t.Fatalf("recording snapshot %d: %v", i, err)
		}
	}

	points, err := a.PriceHistory(ctx, "divine-orb", 0)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(points) != 3 {
		t.Fatalf("len(points) = %d, want 3", len(points))
	}
	// Newest first.
	if points[0].SnapshotVersion != "0.3.0" || points[0].ChaosValue != 210 {
		t.Errorf("points[0] = %+v", points[0])
	}

	// Display names resolve through normalization.
	byName, err := a.PriceHistory(ctx, "  Divine Orb! ", 2)
	if err != nil {
		t.Fatalf("PriceHistory by name: %v", err)
	}
	if len(byName) != 2 {
		t.Errorf("limited query returned %d points, want 2", len(byName))
	}

	empty, err := a.PriceHistory(ctx, "mirror-of-kalandra", 0)
	if err != nil {
		t.Fatalf("PriceHistory unknown: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("unknown item returned %d points", len(empty))
	}
}

func TestPruneOldPoints(t *testing.T) {
	a := testArchive(t)
	ctx := context.Background()

	for _, snap := range []*poe.Snapshot{
		pricedSnapshot("0.1.0", "2025-08-01T00:00:00Z", 190),
		pricedSnapshot("0.2.0", "2025-08-02T00:00:00Z", 200),
	} {
		if _, err := a.RecordSnapshot(ctx, snap); err != nil {
			t.Fatalf("RecordSnapshot: %v", err)
		}
	}

	// Backdate the first snapshot's points well past any retention window.
	if _, err := a.db.ExecContext(ctx,
		`UPDATE price_points SET recorded_at = '2020-01-01T00:00:00Z' WHERE snapshot_version = '0.1.0'`,
	); err != nil {
		t.Fatalf("backdating points: %v", err)
	}

	pruned, err := a.PruneOldPoints(ctx, 30)
	if err != nil {
		t.Fatalf("PruneOldPoints: %v", err)
	}
	if pruned != 2 {
		t.Errorf("pruned %d points, want 2", pruned)
	}

	points, err := a.PriceHistory(ctx, "divine-orb", 0)
	if err != nil {
		t.Fatalf("PriceHistory: %v", err)
	}
	if len(points) != 1 || points[0].SnapshotVersion != "0.2.0" {
		t.Errorf("points = %+v", points)
	}

	// The emptied snapshot row goes with its points.
	var remaining int
	if err := a.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM snapshots`).Scan(&remaining); err != nil {
		t.Fatalf("counting snapshots: %v", err)
	}
	if remaining != 1 {
		t.Errorf("snapshots remaining = %d, want 1", remaining)
	}
}

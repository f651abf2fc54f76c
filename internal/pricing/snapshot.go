package pricing

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/clock"
)

// Snapshot is the price of a catalog service captured at a point in time.
type Snapshot struct {
	ServiceID snowflake.ID    `json:"service_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	TakenAt   time.Time       `json:"taken_at"`
}

// CatalogEntry is the catalog view a snapshot needs.
type CatalogEntry struct {
	ID    snowflake.ID
	Name  string
	Price decimal.Decimal
}

// Catalog resolves service ids. Unknown ids are absent from the result.
type Catalog interface {
	Lookup(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]CatalogEntry, error)
}

type Snapshotter struct {
	catalog Catalog
	clock   clock.Clock
}

func NewSnapshotter(catalog Catalog, clk clock.Clock) *Snapshotter {
	if clk == nil {
		clk = clock.SystemClock{}
	}
	return &Snapshotter{catalog: catalog, clock: clk}
}

// Take reads the catalog now and returns snapshots in the order of ids.
// Duplicate ids collapse to their first occurrence; ids the catalog does not
// know are returned in missing.
func (s *Snapshotter) Take(ctx context.Context, ids []snowflake.ID) (snapshots []Snapshot, missing []snowflake.ID, err error) {
	ids = Dedupe(ids)
	if len(ids) == 0 {
		return nil, nil, nil
	}

	entries, err := s.catalog.Lookup(ctx, ids)
	if err != nil {
		return nil, nil, err
	}

	takenAt := s.clock.Now().UTC()
	snapshots = make([]Snapshot, 0, len(ids))
	for _, id := range ids {
		entry, ok := entries[id]
		if !ok {
			missing = append(missing, id)
			continue
		}
		snapshots = append(snapshots, Snapshot{
			ServiceID: entry.ID,
			Name:      entry.Name,
			Price:     Normalize(entry.Price),
			TakenAt:   takenAt,
		})
	}
	return snapshots, missing, nil
}

// Total is the aggregate of the snapshot prices.
func Total(snapshots []Snapshot) decimal.Decimal {
	prices := make([]decimal.Decimal, 0, len(snapshots))
	for _, snap := range snapshots {
		prices = append(prices, snap.Price)
	}
	return ComputeTotal(Included(prices...))
}

// Dedupe keeps the first occurrence of each id and drops zero ids.
func Dedupe(ids []snowflake.ID) []snowflake.ID {
	seen := make(map[snowflake.ID]struct{}, len(ids))
	out := make([]snowflake.ID, 0, len(ids))
	for _, id := range ids {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

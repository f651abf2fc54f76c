package pricing

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/garagedesk/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeTotal(t *testing.T) {
	tests := []struct {
		name  string
		lines []Line
		want  string
	}{
		{"empty", nil, "0"},
		{"all excluded", []Line{{Price: d("10"), Included: false}}, "0"},
		{"two items", Included(d("40.00"), d("12.50")), "52.50"},
		{"skips excluded", []Line{{Price: d("60"), Included: true}, {Price: d("120"), Included: false}, {Price: d("90"), Included: true}}, "150"},
		{"half up", Included(d("0.005")), "0.01"},
		{"half away from zero", Included(d("-0.005")), "-0.01"},
		{"no clamping", Included(d("10"), d("-25.50")), "-15.50"},
		{"float noise", Included(d("0.1"), d("0.2")), "0.30"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeTotal(tt.lines)
			assert.True(t, d(tt.want).Equal(got), "got %s want %s", got, tt.want)
		})
	}
}

func TestComputeTotalKeepsTwoDecimals(t *testing.T) {
	assert.Equal(t, "52.50", ComputeTotal(Included(d("40"), d("12.5"))).StringFixed(Scale))
}

type stubCatalog struct {
	entries map[snowflake.ID]CatalogEntry
	err     error
	calls   int
}

func (s *stubCatalog) Lookup(_ context.Context, ids []snowflake.ID) (map[snowflake.ID]CatalogEntry, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	out := map[snowflake.ID]CatalogEntry{}
	for _, id := range ids {
		if e, ok := s.entries[id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

func TestSnapshotterTake(t *testing.T) {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	catalog := &stubCatalog{entries: map[snowflake.ID]CatalogEntry{
		1: {ID: 1, Name: "Book an MOT", Price: d("60")},
		2: {ID: 2, Name: "Oil Change", Price: d("49.99")},
	}}
	s := NewSnapshotter(catalog, clock.NewFakeClock(now))

	snaps, missing, err := s.Take(context.Background(), []snowflake.ID{2, 1, 2, 9})
	require.NoError(t, err)
	require.Len(t, snaps, 2)
	assert.Equal(t, snowflake.ID(2), snaps[0].ServiceID)
	assert.Equal(t, snowflake.ID(1), snaps[1].ServiceID)
	assert.Equal(t, now, snaps[0].TakenAt)
	assert.Equal(t, []snowflake.ID{9}, missing)
	assert.True(t, d("109.99").Equal(Total(snaps)))
}

func TestSnapshotterTakeIsIndependentOfLaterEdits(t *testing.T) {
	catalog := &stubCatalog{entries: map[snowflake.ID]CatalogEntry{
		1: {ID: 1, Name: "Book a service", Price: d("120")},
	}}
	s := NewSnapshotter(catalog, nil)

	first, _, err := s.Take(context.Background(), []snowflake.ID{1})
	require.NoError(t, err)

	catalog.entries[1] = CatalogEntry{ID: 1, Name: "Book a service", Price: d("150")}
	second, _, err := s.Take(context.Background(), []snowflake.ID{1})
	require.NoError(t, err)

	assert.True(t, d("120").Equal(first[0].Price))
	assert.True(t, d("150").Equal(second[0].Price))
}

func TestSnapshotterTakeEmptyAndErrors(t *testing.T) {
	catalog := &stubCatalog{err: errors.New("boom")}
	s := NewSnapshotter(catalog, nil)

	snaps, missing, err := s.Take(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, snaps)
	assert.Empty(t, missing)
	assert.Equal(t, 0, catalog.calls)

	_, _, err = s.Take(context.Background(), []snowflake.ID{1})
	assert.Error(t, err)
}

func TestDedupe(t *testing.T) {
	assert.Equal(t, []snowflake.ID{3, 1}, Dedupe([]snowflake.ID{3, 0, 1, 3, 1}))
}

func TestFormatKeepsTwoDecimals(t *testing.T) {
	assert.Equal(t, "52.50", Format(d("52.5")))
	assert.Equal(t, "0.00", Format(decimal.Zero))
	assert.Equal(t, "10.01", Format(d("10.005")))
}

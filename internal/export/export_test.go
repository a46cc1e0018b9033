package export

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/parquet-go/parquet-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zip-territory/internal/territory"
)

func sample() []territory.TerritoryAssignment {
	return []territory.TerritoryAssignment{
		{ZIP: "60601", Lat: 41.88, Lng: -87.62, City: "Chicago", StateID: "IL", StateName: "Illinois", CountyName: "Cook",
			OwnerEmail: "ann@example.com", OwnerName: "Ann", OwnerStatus: "ACTIVE", DealCount: 4},
		{ZIP: "60602", Lat: 41.9, Lng: -87, City: "Chicago, South", StateID: "IL", StateName: "Illinois", CountyName: "Cook",
			ProspectiveOwnerEmail: "ann@example.com", ProspectiveOwnerName: "Ann", InferenceReason: "mag=40.000; dominance=1.000; neighbors=1; radius_miles=25.0"},
	}
}

func TestWriteCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "out.csv")
	require.NoError(t, WriteCSV(path, sample()))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	want := "zip,lat,lng,city,state_id,state_name,county_name,owner_email,owner_name,owner_status,deal_count,prospective_owner_email,prospective_owner_name,inference_reason\n" +
		"60601,41.88,-87.62,Chicago,IL,Illinois,Cook,ann@example.com,Ann,ACTIVE,4,,,\n" +
		"60602,41.9,-87,\"Chicago, South\",IL,Illinois,Cook,,,,0,ann@example.com,Ann,mag=40.000; dominance=1.000; neighbors=1; radius_miles=25.0\n"
	assert.Equal(t, want, string(b))
}

func TestWriteCSVIdempotent(t *testing.T) {
	dir := t.TempDir()
	a, b := filepath.Join(dir, "a.csv"), filepath.Join(dir, "b.csv")
	require.NoError(t, WriteCSV(a, sample()))
	require.NoError(t, WriteCSV(b, sample()))
	require.NoError(t, WriteCSV(b, sample()))
	ab, _ := os.ReadFile(a)
	bb, _ := os.ReadFile(b)
	assert.True(t, bytes.Equal(ab, bb))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temporary files must not remain")
}

func TestParquetPath(t *testing.T) {
	assert.Equal(t, "data/territory_assignments.parquet", ParquetPath("data/territory_assignments.csv"))
	assert.Equal(t, "out.parquet", ParquetPath("out"))
	assert.Equal(t, "dir.v1/out.parquet", ParquetPath("dir.v1/out.csv"))
}

func TestWriteParquetRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.parquet")
	require.NoError(t, WriteParquet(path, sample()))
	rows, err := parquet.ReadFile[parquetRow](path)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "60601", rows[0].ZIP)
	assert.Equal(t, int64(4), rows[0].DealCount)
	assert.Equal(t, "", rows[0].ProspectiveOwnerEmail)
	assert.Equal(t, "ann@example.com", rows[1].ProspectiveOwnerEmail)
}

func TestWriteParquetUnwritableDir(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))
	err := WriteParquet(filepath.Join(blocker, "out.parquet"), sample())
	assert.Error(t, err)
}

func TestWriteSummary(t *testing.T) {
	path := SummaryPath(filepath.Join(t.TempDir(), "out.csv"))
	s := &Summary{
		RunID:     "run-1",
		StartedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Counts:    CountsFrom(territory.Summary{Total: 3, Owned: 1, Prospective: 1, Unassigned: 1}),
		StagesMs:  map[string]int64{"load": 12},
	}
	require.NoError(t, WriteSummary(path, s))
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, "run-1", got["run_id"])
	assert.EqualValues(t, 3, got["assignments"].(map[string]any)["total"])
	assert.True(t, filepath.Base(path) == "out.csv.summary.json")
}

package ingest

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zip-territory/internal/territory"
	"zip-territory/internal/zipcode"
)

const zipMasterCSV = "\ufeffzip, lat,lng,city,state_id,state_name,county_name,population,timezone\n" +
	"501,40.81,-73.04,Holtsville,NY,New York,Suffolk,,America/New_York\n" +
	"60601-1234,41.88,-87.62, Chicago ,IL,Illinois,Cook,2000,America/Chicago\n" +
	"N/A,1,1,Nowhere,XX,X,X,1,UTC\n" +
	"99999,bad,1,Broken,XX,X,X,1,UTC\n" +
	"88888,1,1,BadPop,XX,X,X,many,UTC\n" +
	"60601,41.9,-87.6,Chicago Loop,IL,Illinois,Cook,3000,America/Chicago\n"

func TestLoadZipMaster(t *testing.T) {
	idx, err := LoadZipMaster(strings.NewReader(zipMasterCSV))
	require.NoError(t, err)
	require.Equal(t, 2, idx.Len())

	recs := idx.Records()
	assert.Equal(t, "00501", recs[0].ZIP)
	assert.Nil(t, recs[0].Population)
	assert.Equal(t, "60601", recs[1].ZIP)
	// 最后一行生效
	assert.Equal(t, "Chicago Loop", recs[1].City)
	assert.Equal(t, 41.9, recs[1].Lat)
	require.NotNil(t, recs[1].Population)
	assert.Equal(t, 3000, *recs[1].Population)
	assert.False(t, idx.Has("99999"))
	assert.False(t, idx.Has("88888"))
}

func TestLoadZipMaster_TrimsTextFields(t *testing.T) {
	idx, err := LoadZipMaster(strings.NewReader("zip,lat,lng,city,state_id,state_name,county_name,population,timezone\n" +
		"12345, 1.5 ,2.5,  Springfield ,IL ,Illinois,Sangamon,10,America/Chicago\n"))
	require.NoError(t, err)
	g, ok := idx.Get("12345")
	require.True(t, ok)
	assert.Equal(t, "Springfield", g.City)
	assert.Equal(t, "IL", g.StateID)
	assert.Equal(t, 1.5, g.Lat)
}

func TestLoadZipMaster_MissingColumns(t *testing.T) {
	_, err := LoadZipMaster(strings.NewReader("zip,lat,city\n12345,1,X\n"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchema))
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, []string{"county_name", "lng", "population", "state_id", "state_name", "timezone"}, se.Missing)
	assert.Contains(t, err.Error(), "lng")
}

func testGeo(t *testing.T, zips ...string) *territory.GeoIndex {
	t.Helper()
	idx := territory.NewGeoIndex()
	for _, z := range zips {
		idx.Put(territory.GeoRecord{ZIP: z})
	}
	return idx
}

const activityHeader = "d.Property Zip,d.Property State,U.Full Name,User Email,Deal Count,Deal Owner Status\n"

func TestLoadActivity_AggregatesAndDrops(t *testing.T) {
	geo := testGeo(t, "00501", "60601")
	in := activityHeader +
		"501,NY,Ann,ann@example.com,2.9,inactive\n" +
		"00501,NY,,ann@example.com,3,Active\n" +
		"501,NY,Ann B,ann@example.com,abc,0\n" +
		"60601,IL,Bo,bo@example.com,-5,yes\n" +
		"77777,TX,Cy,cy@example.com,9,1\n" +
		",TX,Cy,cy@example.com,9,1\n"
	res, err := LoadActivity(strings.NewReader(in), geo)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Dropped)
	require.Len(t, res.Records, 2)

	ann := res.Records[0]
	assert.Equal(t, "00501", ann.ZIP)
	assert.Equal(t, 5, ann.DealCount)
	assert.Equal(t, zipcode.StatusActive, ann.Status)
	assert.Equal(t, "Ann B", ann.OwnerName)
	assert.Equal(t, "NY", ann.State)

	bo := res.Records[1]
	assert.Equal(t, 0, bo.DealCount)
	assert.Equal(t, zipcode.StatusActive, bo.Status)
}

func TestLoadActivity_LargeDealCountsKeepOrdering(t *testing.T) {
	in := activityHeader +
		"60601,IL,Zed,z@example.com,4000000000,active\n" +
		"60601,IL,Abe,a@example.com,3000000000,active\n"
	res, err := LoadActivity(strings.NewReader(in), testGeo(t, "60601"))
	require.NoError(t, err)

	owners := territory.SelectActiveOwners(res.Records)
	w, ok := owners.Get("60601")
	require.True(t, ok)
	assert.Equal(t, "z@example.com", w.OwnerEmail)
	assert.Equal(t, 4000000000, w.DealCount)
}

func TestLoadActivity_DroppedCountsOnlyZipFailures(t *testing.T) {
	in := activityHeader +
		"60601,IL,Bo \"The Closer\" Diaz,bo@example.com,2,active\n" +
		"12345,IL,Cy,cy@example.com,1,active\n"
	res, err := LoadActivity(strings.NewReader(in), testGeo(t, "60601"))
	require.NoError(t, err)
	assert.Equal(t, 1, res.Dropped)
	assert.Equal(t, 0, res.Skipped)
	require.Len(t, res.Records, 1)
	assert.Equal(t, `Bo "The Closer" Diaz`, res.Records[0].OwnerName)
}

func TestHeaderDuplicateNameLastWins(t *testing.T) {
	cols, err := header(newReader(strings.NewReader("zip,city,city\n")), "test")
	require.NoError(t, err)
	assert.Equal(t, 2, cols["city"])
	assert.Equal(t, 0, cols["zip"])
}

func TestLoadActivity_MissingNativeHeaders(t *testing.T) {
	_, err := LoadActivity(strings.NewReader("zip,owner_email\n501,a@example.com\n"), testGeo(t, "00501"))
	var se *SchemaError
	require.True(t, errors.As(err, &se))
	assert.Contains(t, se.Missing, "User Email")
	assert.Contains(t, se.Missing, "Deal Owner Status")
	assert.ErrorIs(t, err, ErrSchema)
}

func TestParseDealCount(t *testing.T) {
	cases := map[string]int{
		"3.7": 3, "-2": 0, "": 0, "abc": 0, "NaN": 0, "inf": 0, "12": 12, "0.99": 0,
		"4000000000": 4000000000, "3e9": 3000000000, "1e30": math.MaxInt,
	}
	for in, want := range cases {
		assert.Equal(t, want, parseDealCount(in), in)
	}
}

func TestLoadFiles(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "uszips.csv")
	act := filepath.Join(dir, "activity.csv")
	require.NoError(t, os.WriteFile(master, []byte(zipMasterCSV), 0o644))
	require.NoError(t, os.WriteFile(act, []byte(activityHeader+"60601,IL,Bo,bo@example.com,4,active\n"), 0o644))

	geo, err := LoadZipMasterFile(master)
	require.NoError(t, err)
	res, err := LoadActivityFile(act, geo)
	require.NoError(t, err)
	require.Len(t, res.Records, 1)
	assert.Equal(t, 4, res.Records[0].DealCount)

	_, err = LoadZipMasterFile(filepath.Join(dir, "missing.csv"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

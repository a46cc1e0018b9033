package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"zip-territory/internal/territory"
	"zip-territory/internal/zipcode"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	db, err := sql.Open("sqlite", filepath.Join(t.TempDir(), "territory.db"))
	require.NoError(t, err)
	s := AttachDB(db, DriverSQLite)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Prepare(context.Background()))
	return s
}

func seed(t *testing.T, s *Store) []territory.TerritoryAssignment {
	t.Helper()
	ctx := context.Background()
	pop := 1200
	geo := []territory.GeoRecord{
		{ZIP: "60601", Lat: 41.88, Lng: -87.62, City: "Chicago", StateID: "IL", StateName: "Illinois", CountyName: "Cook", Population: &pop, Timezone: "America/Chicago"},
		{ZIP: "60602", Lat: 41.89, Lng: -87.63, City: "Chicago", StateID: "IL", StateName: "Illinois", CountyName: "Cook"},
		{ZIP: "10001", Lat: 40.75, Lng: -73.99, City: "New York", StateID: "NY", StateName: "New York", CountyName: "New York"},
	}
	require.NoError(t, s.SaveZipMaster(ctx, geo))
	require.NoError(t, s.SaveActivity(ctx, []territory.ActivityRecord{
		{ZIP: "60601", State: "IL", OwnerName: "Ann", OwnerEmail: "ann@example.com", DealCount: 4, Status: zipcode.StatusActive},
	}))
	as := []territory.TerritoryAssignment{
		{ZIP: "60601", Lat: 41.88, Lng: -87.62, City: "Chicago", StateID: "IL", StateName: "Illinois", CountyName: "Cook",
			OwnerEmail: "ann@example.com", OwnerName: "Ann", OwnerStatus: zipcode.StatusActive, DealCount: 4},
		{ZIP: "60602", Lat: 41.89, Lng: -87.63, City: "Chicago", StateID: "IL", StateName: "Illinois", CountyName: "Cook",
			ProspectiveOwnerEmail: "ann@example.com", ProspectiveOwnerName: "Ann", InferenceReason: "mag=40.000; dominance=1.000; neighbors=1; radius_miles=25.0"},
		{ZIP: "10001", Lat: 40.75, Lng: -73.99, City: "New York", StateID: "NY", StateName: "New York", CountyName: "New York"},
	}
	require.NoError(t, s.SaveAssignments(ctx, as))
	return as
}

func TestRoundTripSQLite(t *testing.T) {
	s := openTestStore(t)
	want := seed(t, s)
	ctx := context.Background()

	page, err := s.ListAssignments(ctx, Filter{}, 1, 50)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 3)
	// 按邮编升序
	assert.Equal(t, want[2], page.Items[0])
	assert.Equal(t, want[0], page.Items[1])
	assert.Equal(t, want[1], page.Items[2])

	var nullOwners int
	require.NoError(t, s.DB().QueryRow(`SELECT COUNT(*) FROM territory_assignments WHERE owner_email IS NULL`).Scan(&nullOwners))
	assert.Equal(t, 2, nullOwners)
	var pop sql.NullInt64
	require.NoError(t, s.DB().QueryRow(`SELECT population FROM zip_master WHERE zip='60602'`).Scan(&pop))
	assert.False(t, pop.Valid)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, Stats{Total: 3, Owned: 1, Prospective: 2}, *st)

	n, err := s.CountAssignments(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestListAssignmentsFilters(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	ctx := context.Background()
	cases := []struct {
		name string
		f    Filter
		want []string
	}{
		{"zip prefix", Filter{ZIPPrefix: "606"}, []string{"60601", "60602"}},
		{"city substring case insensitive", Filter{City: "YORK"}, []string{"10001"}},
		{"state upper", Filter{State: "il"}, []string{"60601", "60602"}},
		{"active", Filter{Status: "active"}, []string{"60601"}},
		{"prospective includes null", Filter{Status: "PROSPECTIVE"}, []string{"10001", "60602"}},
		{"unknown status", Filter{Status: "bogus"}, nil},
		{"zip prefix wildcard is literal", Filter{ZIPPrefix: "6_6"}, nil},
		{"zip prefix percent is literal", Filter{ZIPPrefix: "%01"}, nil},
		{"city percent is literal", Filter{City: "%"}, nil},
		{"city underscore is literal", Filter{City: "y_rk"}, nil},
		{"combined", Filter{State: "IL", Status: "PROSPECTIVE"}, []string{"60602"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			page, err := s.ListAssignments(ctx, tc.f, 1, 50)
			require.NoError(t, err)
			var got []string
			for _, it := range page.Items {
				got = append(got, it.ZIP)
			}
			assert.Equal(t, tc.want, got)
			assert.Equal(t, len(tc.want), page.Total)
		})
	}
}

func TestListAssignmentsPaging(t *testing.T) {
	s := openTestStore(t)
	seed(t, s)
	page, err := s.ListAssignments(context.Background(), Filter{}, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "60602", page.Items[0].ZIP)

	page, err = s.ListAssignments(context.Background(), Filter{}, 9, 2)
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Empty(t, page.Items)
}

func TestSaveAssignmentsWrapsErrorAndRollsBack(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := AttachDB(db, DriverPostgres)
	defer s.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO territory_assignments \(zip,lat,lng,.*\) VALUES \(\$1,\$2,.*\$14\)`)
	prep.ExpectExec().WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	as := []territory.TerritoryAssignment{{ZIP: "00001"}, {ZIP: "00002"}}
	err = s.SaveAssignments(context.Background(), as)
	require.Error(t, err)
	assert.Equal(t, "persist territory_assignments: disk full", err.Error())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveZipMasterUsesQuestionPlaceholders(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := AttachDB(db, DriverSQLite)
	defer s.Close()

	mock.ExpectBegin()
	prep := mock.ExpectPrepare(`INSERT INTO zip_master \(zip,lat,lng,city,state_id,state_name,county_name,population,timezone\) VALUES \(\?,\?,\?,\?,\?,\?,\?,\?,\?\)`)
	prep.ExpectExec().WithArgs("00501", 1.5, 2.5, "Holtsville", nil, nil, nil, nil, nil).WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err = s.SaveZipMaster(context.Background(), []territory.GeoRecord{{ZIP: "00501", Lat: 1.5, Lng: 2.5, City: "Holtsville"}})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStatsQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	s := AttachDB(db, DriverPostgres)
	defer s.Close()
	mock.ExpectQuery("SELECT COUNT").WillReturnError(fmt.Errorf("conn reset"))
	_, err = s.Stats(context.Background())
	assert.EqualError(t, err, "conn reset")
}

package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunCommandFlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	master := filepath.Join(dir, "uszips.csv")
	act := filepath.Join(dir, "activity.csv")
	require.NoError(t, os.WriteFile(master, []byte("zip,lat,lng,city,state_id,state_name,county_name,population,timezone\n"+
		"60601,41.8858,-87.6181,Chicago,IL,Illinois,Cook,14675,America/Chicago\n"+
		"60602,41.8829,-87.6321,Chicago,IL,Illinois,Cook,,America/Chicago\n"), 0o644))
	require.NoError(t, os.WriteFile(act, []byte("d.Property Zip,d.Property State,U.Full Name,User Email,Deal Count,Deal Owner Status\n"+
		"60601,IL,Ann,ann@example.com,3,active\n"), 0o644))

	for _, k := range []string{"TERRITORY_CONFIG", "STORE_DRIVER", "RADIUS_MILES", "MAX_NEIGHBORS", "INFER_WORKERS", "REP_ACTIVITY_PATH"} {
		t.Setenv(k, "")
	}
	t.Setenv("ZIP_MASTER_PATH", filepath.Join(dir, "missing.csv"))
	export := filepath.Join(dir, "out", "assignments.csv")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"run",
		"--zip-master", master,
		"--rep-activity", act,
		"--db-path", filepath.Join(dir, "out", "territory.db"),
		"--export-path", export,
		"--workers", "2",
	})
	require.NoError(t, root.Execute())
	assert.Contains(t, out.String(), "2 zips, 1 owned, 1 prospective")
	assert.FileExists(t, export)
}

func TestRunCommandInvalidFlag(t *testing.T) {
	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetArgs([]string{"run", "--max-neighbors", "zero"})
	assert.Error(t, root.Execute())
}

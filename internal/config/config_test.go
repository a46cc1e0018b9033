package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var envKeys = []string{"ZIP_MASTER_PATH", "REP_ACTIVITY_PATH", "STORE_DRIVER", "DB_PATH", "EXPORT_PATH",
	"RADIUS_MILES", "MAX_NEIGHBORS", "INFER_WORKERS", "TERRITORY_CONFIG"}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Config{
		ZipMasterPath:   "static/uszips.csv",
		RepActivityPath: "static/Zipcodes_Deal_Count_By_Rep.csv",
		StoreDriver:     "sqlite",
		DBPath:          "data/territory.db",
		ExportPath:      "data/territory_assignments.csv",
		RadiusMiles:     25.0,
		MaxNeighbors:    15,
		Workers:         1,
	}, cfg)
	assert.NoError(t, cfg.Validate())
}

func TestLoadPrecedenceEnvOverFile(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "territory.yaml")
	require.NoError(t, os.WriteFile(path, []byte("zip_master: file.csv\nradius_miles: 10\nmax_neighbors: 4\nworkers: 3\nexport_path: out/file.csv\n"), 0o644))
	t.Setenv("TERRITORY_CONFIG", path)
	t.Setenv("RADIUS_MILES", "12.5")
	t.Setenv("EXPORT_PATH", "out/env.csv")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "file.csv", cfg.ZipMasterPath)
	assert.Equal(t, 12.5, cfg.RadiusMiles)
	assert.Equal(t, 4, cfg.MaxNeighbors)
	assert.Equal(t, 3, cfg.Workers)
	assert.Equal(t, "out/env.csv", cfg.ExportPath)

	opts := cfg.BuildOptions()
	assert.Equal(t, 12.5, opts.RadiusMiles)
	assert.Equal(t, 3, opts.Workers)
}

func TestLoadErrors(t *testing.T) {
	clearEnv(t)
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("radius_miles: [1,2"), 0o644))
	_, err = Load(bad)
	assert.Error(t, err)

	t.Setenv("MAX_NEIGHBORS", "many")
	_, err = Load("")
	assert.ErrorContains(t, err, "MAX_NEIGHBORS")
}

func TestValidate(t *testing.T) {
	clearEnv(t)
	cfg, err := Load("")
	require.NoError(t, err)
	cfg.StoreDriver = "mysql"
	cfg.RadiusMiles = 0
	cfg.MaxNeighbors = 0
	cfg.Workers = 0
	err = cfg.Validate()
	require.Error(t, err)
	for _, part := range []string{"mysql", "radius", "max neighbors", "workers"} {
		assert.ErrorContains(t, err, part)
	}

	cfg, _ = Load("")
	cfg.StoreDriver = "postgres"
	cfg.DBPath = ""
	assert.NoError(t, cfg.Validate())
}

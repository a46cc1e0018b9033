package export

import (
	"encoding/json"
	"os"
	"time"

	"zip-territory/internal/territory"
)

// Summary：单次运行摘要，写在 CSV 旁边（<export>.summary.json）
type Summary struct {
	RunID        string           `json:"run_id"`
	StartedAt    time.Time        `json:"started_at"`
	FinishedAt   time.Time        `json:"finished_at"`
	ZipMaster    string           `json:"zip_master"`
	RepActivity  string           `json:"rep_activity"`
	RadiusMiles  float64          `json:"radius_miles"`
	MaxNeighbors int              `json:"max_neighbors"`
	Workers      int              `json:"workers"`
	Zips         int              `json:"zips"`
	ActivityRows int              `json:"activity_pairs"`
	Dropped      int              `json:"activity_dropped"`
	Skipped      int              `json:"activity_skipped"`
	ActiveOwners int              `json:"active_owners"`
	Counts       SummaryCounts    `json:"assignments"`
	StagesMs     map[string]int64 `json:"stages_ms"`
	ParquetOK    bool             `json:"parquet_ok"`
}

type SummaryCounts struct {
	Total       int `json:"total"`
	Owned       int `json:"owned"`
	Prospective int `json:"prospective"`
	Unassigned  int `json:"unassigned"`
}

func CountsFrom(s territory.Summary) SummaryCounts {
	return SummaryCounts{Total: s.Total, Owned: s.Owned, Prospective: s.Prospective, Unassigned: s.Unassigned}
}

// SummaryPath："data/out.csv" -> "data/out.csv.summary.json"
func SummaryPath(exportPath string) string { return exportPath + ".summary.json" }

func WriteSummary(path string, s *Summary) error {
	return writeAtomic(path, func(f *os.File) error {
		enc := json.NewEncoder(f)
		enc.SetIndent("", "  ")
		return enc.Encode(s)
	})
}

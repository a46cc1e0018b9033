// 包 pipeline：一次完整的领地归属运行（加载 -> 聚合 -> 负责人选择 -> 推断 -> 落库 -> 导出）
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"zip-territory/internal/config"
	"zip-territory/internal/export"
	"zip-territory/internal/ingest"
	"zip-territory/internal/logger"
	"zip-territory/internal/metrics"
	"zip-territory/internal/territory"
	"zip-territory/internal/utils"
)

// Result：运行结果，供命令行输出与测试断言
type Result struct {
	RunID       string
	Assignments []territory.TerritoryAssignment
	Summary     territory.Summary
	Dropped     int
	ParquetPath string
	ParquetOK   bool
}

type stageTimer struct {
	l      *slog.Logger
	stages map[string]int64
}

func (t *stageTimer) track(stage string, start time.Time) {
	ms := time.Since(start).Milliseconds()
	t.stages[stage] = ms
	metrics.StageDurationMs.WithLabelValues(stage).Observe(float64(ms))
	t.l.Debug("stage_done", "stage", stage, "duration_ms", ms)
}

// 文档注释：执行一次流水线
// 约束：
//   - 表头缺列等致命错误在任何写入之前返回；
//   - 结果库整表替换，连接在所有退出路径上关闭；
//   - CSV 导出失败为致命错误，Parquet 导出失败只记录告警。
func Run(ctx context.Context, cfg config.Config) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	runID := uuid.NewString()
	l := logger.WithRun(runID)
	started := time.Now()
	timer := &stageTimer{l: l, stages: map[string]int64{}}
	l.Info("pipeline_start", "zip_master", cfg.ZipMasterPath, "rep_activity", cfg.RepActivityPath,
		"radius_miles", cfg.RadiusMiles, "max_neighbors", cfg.MaxNeighbors, "workers", cfg.Workers)

	t0 := time.Now()
	geoIdx, err := ingest.LoadZipMasterFile(cfg.ZipMasterPath)
	if err != nil {
		return nil, err
	}
	act, err := ingest.LoadActivityFile(cfg.RepActivityPath, geoIdx)
	if err != nil {
		return nil, err
	}
	timer.track("load", t0)

	t0 = time.Now()
	owners := territory.SelectActiveOwners(act.Records)
	assignments, err := territory.BuildAssignments(ctx, geoIdx, owners, cfg.BuildOptions())
	if err != nil {
		return nil, err
	}
	sum := territory.Summarize(assignments)
	timer.track("assign", t0)
	metrics.AssignmentsTotal.WithLabelValues("owned").Add(float64(sum.Owned))
	metrics.AssignmentsTotal.WithLabelValues("prospective").Add(float64(sum.Prospective))
	metrics.AssignmentsTotal.WithLabelValues("unassigned").Add(float64(sum.Unassigned))
	l.Info("assignments_ready", "total", sum.Total, "owned", sum.Owned, "prospective", sum.Prospective,
		"unassigned", sum.Unassigned, "active_owners", owners.Len())

	t0 = time.Now()
	if err := persist(ctx, cfg, geoIdx, act.Records, assignments); err != nil {
		return nil, err
	}
	timer.track("persist", t0)
	l.Info("db_populated", "driver", cfg.StoreDriver, "path", cfg.DBPath)

	t0 = time.Now()
	if err := export.WriteCSV(cfg.ExportPath, assignments); err != nil {
		return nil, err
	}
	res := &Result{
		RunID:       runID,
		Assignments: assignments,
		Summary:     sum,
		Dropped:     act.Dropped,
		ParquetPath: export.ParquetPath(cfg.ExportPath),
	}
	if err := export.WriteParquet(res.ParquetPath, assignments); err != nil {
		metrics.ExportFailuresTotal.WithLabelValues("parquet").Inc()
		l.Warn("parquet_export_failed", "path", res.ParquetPath, "err", err)
	} else {
		res.ParquetOK = true
	}
	timer.track("export", t0)

	summary := &export.Summary{
		RunID:        runID,
		StartedAt:    started.UTC(),
		FinishedAt:   time.Now().UTC(),
		ZipMaster:    cfg.ZipMasterPath,
		RepActivity:  cfg.RepActivityPath,
		RadiusMiles:  cfg.RadiusMiles,
		MaxNeighbors: cfg.MaxNeighbors,
		Workers:      cfg.Workers,
		Zips:         geoIdx.Len(),
		ActivityRows: len(act.Records),
		Dropped:      act.Dropped,
		Skipped:      act.Skipped,
		ActiveOwners: owners.Len(),
		Counts:       export.CountsFrom(sum),
		StagesMs:     timer.stages,
		ParquetOK:    res.ParquetOK,
	}
	if err := export.WriteSummary(export.SummaryPath(cfg.ExportPath), summary); err != nil {
		l.Warn("summary_write_failed", "err", err)
	}
	l.Info("pipeline_done", "export", cfg.ExportPath, "parquet_ok", res.ParquetOK,
		"duration_ms", time.Since(started).Milliseconds())
	return res, nil
}

// persist：建表、清空后依次写入三张表
func persist(ctx context.Context, cfg config.Config, geoIdx *territory.GeoIndex, activity []territory.ActivityRecord, as []territory.TerritoryAssignment) error {
	st, err := utils.OpenStore(cfg.StoreDriver, cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.Prepare(ctx); err != nil {
		return err
	}
	if err := st.SaveZipMaster(ctx, geoIdx.Records()); err != nil {
		return err
	}
	if err := st.SaveActivity(ctx, activity); err != nil {
		return err
	}
	return st.SaveAssignments(ctx, as)
}

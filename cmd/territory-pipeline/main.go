// 批处理工具：读取邮编主数据与销售活动台账，生成全量领地归属并写入结果库与导出文件
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"zip-territory/internal/config"
	"zip-territory/internal/logger"
	"zip-territory/internal/pipeline"
)

type runOptions struct {
	configPath string
	cfg        config.Config
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "territory-pipeline",
		Short:         "ZIP territory assignment pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var opts runOptions
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Load inputs, assign every ZIP, persist and export",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(opts.configPath)
			if err != nil {
				return err
			}
			applyFlags(cmd, &cfg, opts.cfg)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			res, err := pipeline.Run(ctx, cfg)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "run %s: %d zips, %d owned, %d prospective, %d unassigned; export %s\n",
				res.RunID, res.Summary.Total, res.Summary.Owned, res.Summary.Prospective, res.Summary.Unassigned, cfg.ExportPath)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.configPath, "config", "", "YAML config file (env TERRITORY_CONFIG)")
	f.StringVar(&opts.cfg.ZipMasterPath, "zip-master", "", "ZIP master CSV (env ZIP_MASTER_PATH, default static/uszips.csv)")
	f.StringVar(&opts.cfg.RepActivityPath, "rep-activity", "", "Rep activity CSV (env REP_ACTIVITY_PATH)")
	f.StringVar(&opts.cfg.StoreDriver, "store-driver", "", "Store driver: sqlite or postgres (env STORE_DRIVER)")
	f.StringVar(&opts.cfg.DBPath, "db-path", "", "SQLite database path (env DB_PATH, default data/territory.db)")
	f.StringVar(&opts.cfg.ExportPath, "export-path", "", "CSV export path (env EXPORT_PATH)")
	f.Float64Var(&opts.cfg.RadiusMiles, "radius-miles", 0, "Neighbor search radius in miles (env RADIUS_MILES, default 25)")
	f.IntVar(&opts.cfg.MaxNeighbors, "max-neighbors", 0, "Maximum neighbors considered (env MAX_NEIGHBORS, default 15)")
	f.IntVar(&opts.cfg.Workers, "workers", 0, "Inference worker goroutines (env INFER_WORKERS, default 1)")
	return cmd
}

// applyFlags：仅覆盖命令行上显式给出的参数
func applyFlags(cmd *cobra.Command, cfg *config.Config, fl config.Config) {
	set := cmd.Flags().Changed
	if set("zip-master") {
		cfg.ZipMasterPath = fl.ZipMasterPath
	}
	if set("rep-activity") {
		cfg.RepActivityPath = fl.RepActivityPath
	}
	if set("store-driver") {
		cfg.StoreDriver = fl.StoreDriver
	}
	if set("db-path") {
		cfg.DBPath = fl.DBPath
	}
	if set("export-path") {
		cfg.ExportPath = fl.ExportPath
	}
	if set("radius-miles") {
		cfg.RadiusMiles = fl.RadiusMiles
	}
	if set("max-neighbors") {
		cfg.MaxNeighbors = fl.MaxNeighbors
	}
	if set("workers") {
		cfg.Workers = fl.Workers
	}
}

func main() {
	config.LoadDotEnv()
	l := logger.Setup()
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		l.Error("pipeline_error", "err", err)
		os.Exit(1)
	}
}

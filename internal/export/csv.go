// 包 export：归属结果的平面导出（CSV、Parquet）与运行摘要
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"zip-territory/internal/logger"
	"zip-territory/internal/store"
	"zip-territory/internal/territory"
)

// 文档注释：导出 CSV
// 约束：表头与归属表列顺序一致；浮点按最短往返形式输出；空值输出为空单元格；
// 相同输入两次导出字节一致。先写临时文件再重命名，失败时不留下半截文件。
func WriteCSV(path string, as []territory.TerritoryAssignment) error {
	return writeAtomic(path, func(f *os.File) error {
		w := csv.NewWriter(f)
		if err := w.Write(store.AssignmentColumns); err != nil {
			return err
		}
		for i := range as {
			if err := w.Write(csvRow(&as[i])); err != nil {
				return err
			}
		}
		w.Flush()
		return w.Error()
	})
}

func csvRow(a *territory.TerritoryAssignment) []string {
	return []string{
		a.ZIP,
		formatFloat(a.Lat),
		formatFloat(a.Lng),
		a.City,
		a.StateID,
		a.StateName,
		a.CountyName,
		a.OwnerEmail,
		a.OwnerName,
		a.OwnerStatus,
		strconv.Itoa(a.DealCount),
		a.ProspectiveOwnerEmail,
		a.ProspectiveOwnerName,
		a.InferenceReason,
	}
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

// writeAtomic：在目标目录创建临时文件，写入成功后重命名覆盖目标
func writeAtomic(path string, write func(f *os.File) error) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := write(tmp); err != nil {
		tmp.Close()
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("export %s: %w", path, err)
	}
	logger.L().Debug("export_written", "path", path)
	return nil
}

package export

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/parquet-go/parquet-go"

	"zip-territory/internal/territory"
)

// parquetRow：列名与 CSV 一致；optional 字段的空值写为 null
type parquetRow struct {
	ZIP                   string  `parquet:"zip"`
	Lat                   float64 `parquet:"lat"`
	Lng                   float64 `parquet:"lng"`
	City                  string  `parquet:"city,optional"`
	StateID               string  `parquet:"state_id,optional"`
	StateName             string  `parquet:"state_name,optional"`
	CountyName            string  `parquet:"county_name,optional"`
	OwnerEmail            string  `parquet:"owner_email,optional"`
	OwnerName             string  `parquet:"owner_name,optional"`
	OwnerStatus           string  `parquet:"owner_status,optional"`
	DealCount             int64   `parquet:"deal_count"`
	ProspectiveOwnerEmail string  `parquet:"prospective_owner_email,optional"`
	ProspectiveOwnerName  string  `parquet:"prospective_owner_name,optional"`
	InferenceReason       string  `parquet:"inference_reason,optional"`
}

// ParquetPath：将导出路径的扩展名替换为 .parquet（无扩展名时直接追加）
func ParquetPath(exportPath string) string {
	ext := filepath.Ext(exportPath)
	return strings.TrimSuffix(exportPath, ext) + ".parquet"
}

// WriteParquet：列式镜像导出；调用方将失败视为告警，不中断运行
func WriteParquet(path string, as []territory.TerritoryAssignment) error {
	rows := make([]parquetRow, len(as))
	for i, a := range as {
		rows[i] = parquetRow{
			ZIP:                   a.ZIP,
			Lat:                   a.Lat,
			Lng:                   a.Lng,
			City:                  a.City,
			StateID:               a.StateID,
			StateName:             a.StateName,
			CountyName:            a.CountyName,
			OwnerEmail:            a.OwnerEmail,
			OwnerName:             a.OwnerName,
			OwnerStatus:           a.OwnerStatus,
			DealCount:             int64(a.DealCount),
			ProspectiveOwnerEmail: a.ProspectiveOwnerEmail,
			ProspectiveOwnerName:  a.ProspectiveOwnerName,
			InferenceReason:       a.InferenceReason,
		}
	}
	return writeAtomic(path, func(f *os.File) error {
		w := parquet.NewGenericWriter[parquetRow](f)
		if _, err := w.Write(rows); err != nil {
			w.Close()
			return err
		}
		return w.Close()
	})
}

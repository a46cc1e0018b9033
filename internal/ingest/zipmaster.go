package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"zip-territory/internal/logger"
	"zip-territory/internal/metrics"
	"zip-territory/internal/territory"
	"zip-territory/internal/zipcode"
)

var zipMasterColumns = []string{
	"zip", "lat", "lng", "city", "state_id", "state_name", "county_name", "population", "timezone",
}

// 文档注释：加载邮编主数据
// 背景：主数据是全部邮编的唯一来源，后续活动过滤与推断都以此为准。
// 约束：
//   - 缺列直接返回 *SchemaError，不做任何处理；
//   - 邮编无法归一化、坐标或人口解析失败的行静默跳过；
//   - 同一邮编多行时最后一行生效；不校验坐标范围。
func LoadZipMaster(r io.Reader) (*territory.GeoIndex, error) {
	cr := newReader(r)
	cols, err := header(cr, "zip master")
	if err != nil {
		return nil, err
	}
	if err := requireColumns(cols, zipMasterColumns, "zip master"); err != nil {
		return nil, err
	}
	idx := territory.NewGeoIndex()
	line, skipped := 1, 0
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.L().Debug("zip_master_row_unreadable", "line", line, "err", err)
				skipped++
				continue
			}
			return nil, fmt.Errorf("zip master: %w", err)
		}
		rec, ok := parseGeoRow(row, cols)
		if !ok {
			skipped++
			continue
		}
		idx.Put(rec)
	}
	metrics.RowsLoadedTotal.WithLabelValues("zip_master").Add(float64(idx.Len()))
	logger.L().Info("zip_master_loaded", "zips", idx.Len(), "skipped", skipped)
	return idx, nil
}

func parseGeoRow(row []string, cols map[string]int) (territory.GeoRecord, bool) {
	zip, ok := zipcode.Normalize(field(row, cols, "zip"))
	if !ok {
		return territory.GeoRecord{}, false
	}
	lat, err := strconv.ParseFloat(field(row, cols, "lat"), 64)
	if err != nil {
		return territory.GeoRecord{}, false
	}
	lng, err := strconv.ParseFloat(field(row, cols, "lng"), 64)
	if err != nil {
		return territory.GeoRecord{}, false
	}
	var pop *int
	if s := field(row, cols, "population"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil {
			return territory.GeoRecord{}, false
		}
		pop = &n
	}
	return territory.GeoRecord{
		ZIP:        zip,
		Lat:        lat,
		Lng:        lng,
		City:       field(row, cols, "city"),
		StateID:    field(row, cols, "state_id"),
		StateName:  field(row, cols, "state_name"),
		CountyName: field(row, cols, "county_name"),
		Population: pop,
		Timezone:   field(row, cols, "timezone"),
	}, true
}

// LoadZipMasterFile：按路径加载主数据
func LoadZipMasterFile(path string) (*territory.GeoIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open zip master: %w", err)
	}
	defer f.Close()
	return LoadZipMaster(f)
}

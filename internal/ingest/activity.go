package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"

	"zip-territory/internal/logger"
	"zip-territory/internal/metrics"
	"zip-territory/internal/territory"
	"zip-territory/internal/zipcode"
)

// activityColumns：活动台账的原始表头 -> 内部字段名
var activityColumns = map[string]string{
	"d.Property Zip":    "zip",
	"d.Property State":  "state",
	"U.Full Name":       "owner_name",
	"User Email":        "owner_email",
	"Deal Count":        "deal_count",
	"Deal Owner Status": "status",
}

// ActivityResult：聚合后的活动记录
// Dropped 仅统计邮编无法归一化或不在主数据中的行；Skipped 为 CSV 层面无法解析的行
type ActivityResult struct {
	Records []territory.ActivityRecord
	Dropped int
	Skipped int
}

// 文档注释：加载并聚合销售活动台账
// 背景：台账按 (邮编, 负责人邮箱) 可能出现多行，需要先聚合再参与负责人选择。
// 约束：
//   - 原始表头缺失任何一列返回 *SchemaError；
//   - 邮编无法归一化或不在 geo 中的行计入 Dropped，扫描结束后仅告警一次；
//   - CSV 层面无法解析的行计入 Skipped，不影响 Dropped；
//   - 成交数按浮点解析后向零截断，无法解析或非有限值记 0，负数记 0；
//   - 输出为 (邮编, 邮箱) 首次出现顺序。
func LoadActivity(r io.Reader, geo *territory.GeoIndex) (*ActivityResult, error) {
	if geo == nil {
		return nil, territory.ErrNilIndex
	}
	cr := newReader(r)
	cols, err := header(cr, "rep activity")
	if err != nil {
		return nil, err
	}
	native := make([]string, 0, len(activityColumns))
	for k := range activityColumns {
		native = append(native, k)
	}
	if err := requireColumns(cols, native, "rep activity"); err != nil {
		return nil, err
	}
	// 统一到内部字段名
	mapped := make(map[string]int, len(activityColumns))
	for src, dst := range activityColumns {
		mapped[dst] = cols[src]
	}

	agg := territory.NewAggregator()
	dropped, skipped, line := 0, 0, 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				logger.L().Debug("activity_row_unreadable", "line", line, "err", err)
				skipped++
				continue
			}
			return nil, fmt.Errorf("rep activity: %w", err)
		}
		zip, ok := zipcode.Normalize(field(row, mapped, "zip"))
		if !ok || !geo.Has(zip) {
			dropped++
			continue
		}
		agg.Add(territory.ActivityRecord{
			ZIP:        zip,
			State:      field(row, mapped, "state"),
			OwnerName:  field(row, mapped, "owner_name"),
			OwnerEmail: field(row, mapped, "owner_email"),
			DealCount:  parseDealCount(field(row, mapped, "deal_count")),
			Status:     zipcode.ParseStatus(field(row, mapped, "status")),
		})
	}
	if dropped > 0 {
		logger.L().Warn("activity_rows_dropped", "count", dropped, "reason", "zip missing or not in master")
	}
	metrics.RowsDroppedTotal.WithLabelValues("rep_activity").Add(float64(dropped))
	metrics.RowsLoadedTotal.WithLabelValues("rep_activity").Add(float64(agg.Len()))
	logger.L().Info("activity_loaded", "pairs", agg.Len(), "dropped", dropped, "skipped", skipped)
	return &ActivityResult{Records: agg.Records(), Dropped: dropped, Skipped: skipped}, nil
}

// parseDealCount："3.7" -> 3，"-2" -> 0，"" / "abc" / "NaN" -> 0；超出 int 范围的值饱和到 MaxInt
func parseDealCount(s string) int {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	f = math.Trunc(f)
	if f <= 0 {
		return 0
	}
	if f >= math.MaxInt {
		return math.MaxInt
	}
	return int(f)
}

// LoadActivityFile：按路径加载活动台账
func LoadActivityFile(path string, geo *territory.GeoIndex) (*ActivityResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open rep activity: %w", err)
	}
	defer f.Close()
	return LoadActivity(f, geo)
}

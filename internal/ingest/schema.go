// 包 ingest：离线数据通道，负责读取邮编主数据与销售活动两份平面文件并归一化为领域记录
package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
)

// ErrSchema：输入文件表头缺少必需列
var ErrSchema = errors.New("ingest: schema mismatch")

// SchemaError：缺列错误，Missing 已排序
type SchemaError struct {
	Source  string
	Missing []string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s missing columns: %s", e.Source, strings.Join(e.Missing, ", "))
}

func (e *SchemaError) Unwrap() error { return ErrSchema }

// newReader：宽松 CSV 读取器，允许行列数不一致与非规范引号
func newReader(r io.Reader) *csv.Reader {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = true
	return cr
}

// header：读取表头并建立 列名 -> 下标 映射
// 约束：列名去除首尾空白与 UTF-8 BOM；重复列名以最后一次出现为准
func header(cr *csv.Reader, source string) (map[string]int, error) {
	row, err := cr.Read()
	if err == io.EOF {
		return map[string]int{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s header: %w", source, err)
	}
	cols := make(map[string]int, len(row))
	for i, name := range row {
		name = strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))
		cols[name] = i
	}
	return cols, nil
}

func requireColumns(cols map[string]int, required []string, source string) error {
	var missing []string
	for _, c := range required {
		if _, ok := cols[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return &SchemaError{Source: source, Missing: missing}
}

// field：按列名取单元格（已去空白），越界视为空
func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// 包 store: 结果库数据访问层，负责三张表的整表写入以及归属结果的分页查询与统计
package store

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"zip-territory/internal/logger"
	"zip-territory/internal/migrate"
	"zip-territory/internal/territory"
)

// 支持的驱动名
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Store: 数据库访问入口，持有连接池与当前方言的占位符格式
type Store struct {
	db *sql.DB
	ph sq.PlaceholderFormat
}

// AttachDB: 包装已打开的连接；driver 决定占位符（postgres 使用 $n，其余使用 ?）
func AttachDB(db *sql.DB, driver string) *Store {
	var ph sq.PlaceholderFormat = sq.Question
	if driver == DriverPostgres {
		ph = sq.Dollar
	}
	return &Store{db: db, ph: ph}
}

// Close: 关闭数据库连接
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

// Prepare: 建表并清空历史数据，为整表替换做准备
func (s *Store) Prepare(ctx context.Context) error {
	if err := migrate.EnsureSchema(ctx, s.db); err != nil {
		return err
	}
	return migrate.Reset(ctx, s.db)
}

var (
	zipMasterCols = []string{"zip", "lat", "lng", "city", "state_id", "state_name", "county_name", "population", "timezone"}
	activityCols  = []string{"zip", "state", "owner_name", "owner_email", "deal_count", "status"}
	// AssignmentColumns: 归属表列顺序，导出文件沿用同一顺序
	AssignmentColumns = []string{
		"zip", "lat", "lng", "city", "state_id", "state_name", "county_name",
		"owner_email", "owner_name", "owner_status", "deal_count",
		"prospective_owner_email", "prospective_owner_name", "inference_reason",
	}
)

// nullable: 空字符串写为 NULL
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// bulkInsert: 单事务内使用预编译插入逐行写入
// 约束：任何一行失败整表回滚，错误带表名返回
func (s *Store) bulkInsert(ctx context.Context, table string, cols []string, n int, row func(i int) []any) error {
	q, _, err := sq.Insert(table).Columns(cols...).Values(make([]any, len(cols))...).PlaceholderFormat(s.ph).ToSql()
	if err != nil {
		return fmt.Errorf("persist %s: %w", table, err)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("persist %s: %w", table, err)
	}
	defer tx.Rollback()
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("persist %s: %w", table, err)
	}
	defer stmt.Close()
	for i := 0; i < n; i++ {
		if _, err := stmt.ExecContext(ctx, row(i)...); err != nil {
			return fmt.Errorf("persist %s: %w", table, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("persist %s: %w", table, err)
	}
	logger.L().Debug("db_persist_ok", "table", table, "rows", n)
	return nil
}

// SaveZipMaster: 写入邮编主数据，人口缺失写 NULL
func (s *Store) SaveZipMaster(ctx context.Context, recs []territory.GeoRecord) error {
	return s.bulkInsert(ctx, "zip_master", zipMasterCols, len(recs), func(i int) []any {
		g := recs[i]
		var pop any
		if g.Population != nil {
			pop = *g.Population
		}
		return []any{g.ZIP, g.Lat, g.Lng, nullable(g.City), nullable(g.StateID), nullable(g.StateName),
			nullable(g.CountyName), pop, nullable(g.Timezone)}
	})
}

// SaveActivity: 写入聚合后的活动记录
func (s *Store) SaveActivity(ctx context.Context, recs []territory.ActivityRecord) error {
	return s.bulkInsert(ctx, "rep_activity", activityCols, len(recs), func(i int) []any {
		a := recs[i]
		return []any{a.ZIP, nullable(a.State), nullable(a.OwnerName), nullable(a.OwnerEmail), a.DealCount, a.Status}
	})
}

// SaveAssignments: 写入全量归属结果，未使用分支的字段写 NULL
func (s *Store) SaveAssignments(ctx context.Context, as []territory.TerritoryAssignment) error {
	return s.bulkInsert(ctx, "territory_assignments", AssignmentColumns, len(as), func(i int) []any {
		a := as[i]
		return []any{a.ZIP, a.Lat, a.Lng, nullable(a.City), nullable(a.StateID), nullable(a.StateName),
			nullable(a.CountyName), nullable(a.OwnerEmail), nullable(a.OwnerName), nullable(a.OwnerStatus),
			a.DealCount, nullable(a.ProspectiveOwnerEmail), nullable(a.ProspectiveOwnerName), nullable(a.InferenceReason)}
	})
}

// 包 migrate：结果库表结构管理（建表与整表清空），语句同时兼容 SQLite 与 PostgreSQL
package migrate

import (
	"context"
	"database/sql"
	"fmt"

	"zip-territory/internal/logger"
)

// Tables：按依赖顺序排列（被引用者在前）
var Tables = []string{"zip_master", "rep_activity", "territory_assignments"}

// 背景：首次运行自动创建所需表与索引，保障后续写入与查询
// 约束：使用 IF NOT EXISTS，重复执行无副作用；坐标使用 DOUBLE PRECISION 以兼容两种方言
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS zip_master (
            zip TEXT PRIMARY KEY,
            lat DOUBLE PRECISION NOT NULL,
            lng DOUBLE PRECISION NOT NULL,
            city TEXT,
            state_id TEXT,
            state_name TEXT,
            county_name TEXT,
            population INTEGER,
            timezone TEXT
        )`,
		`CREATE TABLE IF NOT EXISTS rep_activity (
            zip TEXT NOT NULL REFERENCES zip_master(zip),
            state TEXT,
            owner_name TEXT,
            owner_email TEXT,
            deal_count INTEGER NOT NULL DEFAULT 0,
            status TEXT NOT NULL
        )`,
		`CREATE INDEX IF NOT EXISTS idx_rep_activity_zip ON rep_activity(zip)`,
		`CREATE TABLE IF NOT EXISTS territory_assignments (
            zip TEXT PRIMARY KEY REFERENCES zip_master(zip),
            lat DOUBLE PRECISION NOT NULL,
            lng DOUBLE PRECISION NOT NULL,
            city TEXT,
            state_id TEXT,
            state_name TEXT,
            county_name TEXT,
            owner_email TEXT,
            owner_name TEXT,
            owner_status TEXT,
            deal_count INTEGER NOT NULL DEFAULT 0,
            prospective_owner_email TEXT,
            prospective_owner_name TEXT,
            inference_reason TEXT
        )`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_state ON territory_assignments(state_id)`,
		`CREATE INDEX IF NOT EXISTS idx_assignments_owner ON territory_assignments(owner_email)`,
	}
	for i, s := range stmts {
		logger.L().Debug("schema_exec", "idx", i)
		if _, err := db.ExecContext(ctx, s); err != nil {
			return fmt.Errorf("schema stmt %d: %w", i, err)
		}
	}
	logger.L().Debug("schema_done")
	return nil
}

// Reset：整表替换前清空三张表，顺序为 归属 -> 活动 -> 主数据，单事务提交
func Reset(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	for i := len(Tables) - 1; i >= 0; i-- {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+Tables[i]); err != nil {
			return fmt.Errorf("reset %s: %w", Tables[i], err)
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	logger.L().Debug("schema_reset_done")
	return nil
}

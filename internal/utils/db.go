// 包 utils：结果库与缓存的连接工具，统一环境变量读取
package utils

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"zip-territory/internal/logger"
	"zip-territory/internal/store"
)

// BuildPostgresDSNFromEnv：由 PG_* 环境变量拼装连接串
func BuildPostgresDSNFromEnv() string {
	host := os.Getenv("PG_HOST")
	if host == "" {
		host = "localhost"
	}
	port := os.Getenv("PG_PORT")
	if port == "" {
		port = "5432"
	}
	user := os.Getenv("PG_USER")
	if user == "" {
		user = "postgres"
	}
	pass := os.Getenv("PG_PASSWORD")
	db := os.Getenv("PG_DB")
	if db == "" {
		db = "territory"
	}
	ssl := os.Getenv("PG_SSLMODE")
	if ssl == "" {
		ssl = "disable"
	}
	dsn := "postgres://" + user
	if pass != "" {
		dsn += ":" + pass
	}
	dsn += "@" + host + ":" + port + "/" + db + "?sslmode=" + ssl
	return dsn
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, e := strconv.Atoi(v); e == nil {
			return n
		}
	}
	return def
}

// OpenPostgresFromEnv：连接池上限由 PG_MAX_OPEN_CONNS / PG_MAX_IDLE_CONNS 控制
func OpenPostgresFromEnv() (*sql.DB, error) {
	db, err := sql.Open("postgres", BuildPostgresDSNFromEnv())
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(envInt("PG_MAX_OPEN_CONNS", 10))
	db.SetMaxIdleConns(envInt("PG_MAX_IDLE_CONNS", 5))
	return db, nil
}

// OpenSQLite：打开（必要时创建）文件库，父目录不存在时自动创建
// 约束：单连接写入，避免 SQLite 多连接下的 database is locked
func OpenSQLite(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	db, err := sql.Open("sqlite", "file:"+path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	return db, nil
}

// OpenStore：按驱动打开结果库并包装为 store.Store；postgres 忽略 dbPath，改读 PG_* 环境变量
func OpenStore(driver, dbPath string) (*store.Store, error) {
	var (
		db  *sql.DB
		err error
	)
	switch driver {
	case store.DriverSQLite:
		db, err = OpenSQLite(dbPath)
	case store.DriverPostgres:
		db, err = OpenPostgresFromEnv()
	default:
		return nil, fmt.Errorf("unsupported store driver %q", driver)
	}
	if err != nil {
		return nil, err
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", driver, err)
	}
	logger.L().Info("db_open_ok", "driver", driver, "path", dbPath)
	return store.AttachDB(db, driver), nil
}

// OpenStoreFromEnv：读取 STORE_DRIVER（缺省 sqlite）与 DB_PATH（缺省 data/territory.db）
func OpenStoreFromEnv() (*store.Store, error) {
	driver := os.Getenv("STORE_DRIVER")
	if driver == "" {
		driver = store.DriverSQLite
	}
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "data/territory.db"
	}
	return OpenStore(driver, path)
}

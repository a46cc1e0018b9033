// 包 config：流水线参数的统一装配
// 优先级：命令行（由 cmd 层覆盖）> 环境变量 > YAML 文件 > 默认值
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"zip-territory/internal/logger"
	"zip-territory/internal/store"
	"zip-territory/internal/territory"
)

const (
	defaultZipMaster   = "static/uszips.csv"
	defaultRepActivity = "static/Zipcodes_Deal_Count_By_Rep.csv"
	defaultDBPath      = "data/territory.db"
	defaultExportPath  = "data/territory_assignments.csv"
)

// Config：单次流水线运行的全部参数
type Config struct {
	ZipMasterPath   string
	RepActivityPath string
	StoreDriver     string
	DBPath          string
	ExportPath      string
	RadiusMiles     float64
	MaxNeighbors    int
	Workers         int
}

// fileConfig：YAML 文件结构，指针字段区分“未配置”与零值
type fileConfig struct {
	ZipMaster    string   `yaml:"zip_master"`
	RepActivity  string   `yaml:"rep_activity"`
	StoreDriver  string   `yaml:"store_driver"`
	DBPath       string   `yaml:"db_path"`
	ExportPath   string   `yaml:"export_path"`
	RadiusMiles  *float64 `yaml:"radius_miles"`
	MaxNeighbors *int     `yaml:"max_neighbors"`
	Workers      *int     `yaml:"workers"`
}

// LoadDotEnv：依次加载 .env 与 data/env/.env，文件不存在时忽略；已存在的环境变量不被覆盖
func LoadDotEnv() {
	_ = godotenv.Load(".env")
	_ = godotenv.Load("data/env/.env")
}

// Load：装配配置；path 为空时读取 TERRITORY_CONFIG，仍为空则不读文件
// 约束：显式给出的 YAML 文件不存在或格式错误时返回错误；数值环境变量格式错误同样返回错误
func Load(path string) (Config, error) {
	if path == "" {
		path = os.Getenv("TERRITORY_CONFIG")
	}
	var fc fileConfig
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &fc); err != nil {
			return Config{}, fmt.Errorf("config file %s: %w", path, err)
		}
		logger.L().Debug("config_file_loaded", "path", path)
	}

	cfg := Config{
		ZipMasterPath:   firstNonEmpty(os.Getenv("ZIP_MASTER_PATH"), fc.ZipMaster, defaultZipMaster),
		RepActivityPath: firstNonEmpty(os.Getenv("REP_ACTIVITY_PATH"), fc.RepActivity, defaultRepActivity),
		StoreDriver:     strings.ToLower(firstNonEmpty(os.Getenv("STORE_DRIVER"), fc.StoreDriver, store.DriverSQLite)),
		DBPath:          firstNonEmpty(os.Getenv("DB_PATH"), fc.DBPath, defaultDBPath),
		ExportPath:      firstNonEmpty(os.Getenv("EXPORT_PATH"), fc.ExportPath, defaultExportPath),
		RadiusMiles:     territory.DefaultRadiusMiles,
		MaxNeighbors:    territory.DefaultMaxNeighbors,
		Workers:         1,
	}
	if fc.RadiusMiles != nil {
		cfg.RadiusMiles = *fc.RadiusMiles
	}
	if fc.MaxNeighbors != nil {
		cfg.MaxNeighbors = *fc.MaxNeighbors
	}
	if fc.Workers != nil {
		cfg.Workers = *fc.Workers
	}
	var err error
	if cfg.RadiusMiles, err = floatEnv("RADIUS_MILES", cfg.RadiusMiles); err != nil {
		return Config{}, err
	}
	if cfg.MaxNeighbors, err = intEnv("MAX_NEIGHBORS", cfg.MaxNeighbors); err != nil {
		return Config{}, err
	}
	if cfg.Workers, err = intEnv("INFER_WORKERS", cfg.Workers); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate：参数合法性检查，在运行前调用（命令行覆盖之后）
func (c Config) Validate() error {
	var errs []error
	if c.ZipMasterPath == "" {
		errs = append(errs, errors.New("zip master path is empty"))
	}
	if c.RepActivityPath == "" {
		errs = append(errs, errors.New("rep activity path is empty"))
	}
	if c.ExportPath == "" {
		errs = append(errs, errors.New("export path is empty"))
	}
	if c.StoreDriver != store.DriverSQLite && c.StoreDriver != store.DriverPostgres {
		errs = append(errs, fmt.Errorf("unsupported store driver %q", c.StoreDriver))
	}
	if c.StoreDriver == store.DriverSQLite && c.DBPath == "" {
		errs = append(errs, errors.New("db path is empty"))
	}
	if !(c.RadiusMiles > 0) {
		errs = append(errs, fmt.Errorf("radius miles must be positive, got %v", c.RadiusMiles))
	}
	if c.MaxNeighbors < 1 {
		errs = append(errs, fmt.Errorf("max neighbors must be >= 1, got %d", c.MaxNeighbors))
	}
	if c.Workers < 1 {
		errs = append(errs, fmt.Errorf("workers must be >= 1, got %d", c.Workers))
	}
	return errors.Join(errs...)
}

// BuildOptions：转换为推断参数
func (c Config) BuildOptions() territory.BuildOptions {
	return territory.BuildOptions{RadiusMiles: c.RadiusMiles, MaxNeighbors: c.MaxNeighbors, Workers: c.Workers}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func floatEnv(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return f, nil
}

func intEnv(key string, def int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}
